package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/checkpoint"
	"github.com/logminer/logminer/pkg/config"
	"github.com/logminer/logminer/pkg/partgraph"
	"github.com/logminer/logminer/pkg/report"
	"github.com/logminer/logminer/pkg/run"
	"github.com/logminer/logminer/pkg/telemetry"
	"github.com/logminer/logminer/pkg/tracein"
	"github.com/logminer/logminer/pkg/watch"
)

// Shared flags across mineCmd, exportCmd, and watchCmd.
var (
	inputPath  string
	formatFlag string
	outputDir  string

	kFlag             int
	closureFlag       bool
	multiRelFlag      bool
	neverConcFlag     bool
	supportFlag       int
	ignoreIntrByFlag  bool
	ignoreTypesFlag   []string
	normalizeFlag     bool
	relationsFlag     []string
	coarsenFlag       bool

	checkpointDirFlag   string
	checkpointRedisFlag string
	otlpEndpointFlag    string
	verboseFlag         bool

	csvCaseIDCol    string
	csvActivityCol  string
	csvTimeCol      string
	csvDelimiter    string
	jsonlCaseField  string
	jsonlActField   string
	jsonlTimeField  string
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine temporal invariants and a k-tails model from an event log",
	Long: `Decode an event log (XES, CSV, or JSONL), mine temporal invariants over
its trace graph, seed a k-tails partition graph, then refine it until every
invariant holds (or is retired as unsatisfiable), optionally coarsening the
result afterward.

Examples:
  logminer mine -i log.xes -o out/
  logminer mine -i events.csv -o out/ --format csv -k 3 --coarsen
  logminer mine -i events.jsonl -o out/ --relation concurrent --relation choice`,
	RunE: runMine,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Mine a log and export the partition graph and invariants",
	Long: `Runs the same pipeline as "mine" and writes the same artifacts (a DOT
partition graph, an xlsx workbook, and a text invariant listing) to
--output, but prints only a one-line run digest and the output directory
instead of mine's summary table.`,
	RunE: runExport,
}

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Re-run mining whenever the watched log file changes",
	Long: `Watches a single log file (or, if a directory is given, the file named
by --input inside it) and re-runs the full mining pipeline on every write,
printing a fresh summary each time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&checkpointDirFlag, "checkpoint-dir", "", "Directory for coarsening progress checkpoints (disabled if empty)")
	rootCmd.PersistentFlags().StringVar(&checkpointRedisFlag, "checkpoint-redis-addr", "", "Redis address to mirror checkpoints to, in addition to --checkpoint-dir (disabled if empty)")
	rootCmd.PersistentFlags().StringVar(&otlpEndpointFlag, "otlp-endpoint", "", "OTLP collector endpoint for span export (disabled if empty)")

	for _, c := range []*cobra.Command{mineCmd, exportCmd, watchCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "Input log file path")
		c.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (xes, csv, jsonl) - auto-detected from extension if unset")
		c.Flags().StringVarP(&outputDir, "output", "o", "out", "Output directory for reports and artifacts")

		c.Flags().IntVarP(&kFlag, "k", "k", 2, "k for the k-tails partition quotient")
		c.Flags().BoolVar(&closureFlag, "closure", false, "Mine invariants via transitive closure instead of path walking")
		c.Flags().BoolVar(&multiRelFlag, "multi-relation", false, "Mine independently over every declared relation")
		c.Flags().BoolVar(&neverConcFlag, "never-concurrent", false, "Also mine NeverConcurrent invariants (no-op: CLI input is always chain-shaped, never a vector-clock DAG)")
		c.Flags().IntVar(&supportFlag, "support-threshold", 0, "Drop invariants with support at or below this count")
		c.Flags().BoolVar(&ignoreIntrByFlag, "ignore-intr-by", false, "Omit IntrBy invariants from the mined set")
		c.Flags().StringArrayVar(&ignoreTypesFlag, "ignore-type", nil, "Drop invariants entirely over this event type (repeatable)")
		c.Flags().BoolVar(&normalizeFlag, "normalize-times", false, "Rescale per-trace event times to [0,1] before mining")
		c.Flags().StringArrayVar(&relationsFlag, "relation", nil, "Additional non-ordering relation to declare on the trace graph (repeatable)")
		c.Flags().BoolVar(&coarsenFlag, "coarsen", false, "Coarsen the refined partition graph by greedy invariant-preserving merges")

		c.Flags().StringVar(&csvCaseIDCol, "csv-case-id", "case:concept:name", "CSV case ID column name")
		c.Flags().StringVar(&csvActivityCol, "csv-activity", "concept:name", "CSV activity column name")
		c.Flags().StringVar(&csvTimeCol, "csv-timestamp", "time:timestamp", "CSV timestamp column name")
		c.Flags().StringVar(&csvDelimiter, "csv-delimiter", ",", "CSV field delimiter")
		c.Flags().StringVar(&jsonlCaseField, "jsonl-case-id", "case_id", "JSONL case ID field name")
		c.Flags().StringVar(&jsonlActField, "jsonl-activity", "activity", "JSONL activity field name")
		c.Flags().StringVar(&jsonlTimeField, "jsonl-timestamp", "timestamp", "JSONL timestamp field name")

		c.MarkFlagRequired("input")
	}
}

// detectFormat resolves the input format from the --format flag or, if
// unset, the input path's extension.
func detectFormat(path, explicit string) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xes":
		return "xes"
	case ".csv":
		return "csv"
	case ".jsonl", ".ndjson":
		return "jsonl"
	default:
		return ""
	}
}

// decodeInput opens path and decodes it per format into trace batches.
func decodeInput(path, format string) ([]model.EventBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if stat, err := f.Stat(); err == nil && stat.Size() > 0 {
		bar := report.ShowProgress(stat.Size(), "decoding")
		defer bar.Close()
		r = io.TeeReader(f, bar)
	}

	switch format {
	case "xes":
		return tracein.DecodeXES(r)
	case "csv":
		cols := tracein.DefaultCSVColumns()
		cols.CaseID, cols.Activity, cols.Timestamp = csvCaseIDCol, csvActivityCol, csvTimeCol
		if len(csvDelimiter) == 1 {
			cols.Delimiter = csvDelimiter[0]
		}
		return tracein.DecodeCSV(r, cols)
	case "jsonl":
		fields := tracein.DefaultJSONLFields()
		fields.CaseID, fields.Activity, fields.Timestamp = jsonlCaseField, jsonlActField, jsonlTimeField
		return tracein.DecodeJSONL(r, fields)
	default:
		return nil, fmt.Errorf("unrecognized input format %q, specify with --format xes/csv/jsonl", format)
	}
}

func optionsFromFlags() run.Options {
	return run.Options{
		K:                          kFlag,
		UseTransitiveClosureMining: closureFlag,
		MultipleRelations:          multiRelFlag,
		MineNeverConcurrentWith:    neverConcFlag,
		SupportCountThreshold:      supportFlag,
		IgnoreIntrBy:               ignoreIntrByFlag,
		IgnoreInvsOverETypeSet:     ignoreTypesFlag,
		TraceNormalization:         normalizeFlag,
		Relations:                  relationsFlag,
		Coarsen:                    coarsenFlag,
	}
}

func optionsFromConfig(cfg *config.MiningConfig) run.Options {
	return run.Options{
		K:                          cfg.K,
		UseTransitiveClosureMining: cfg.UseTransitiveClosureMining,
		MultipleRelations:          cfg.MultipleRelations,
		MineNeverConcurrentWith:    cfg.MineNeverConcurrentWith,
		SupportCountThreshold:      cfg.SupportCountThreshold,
		IgnoreIntrBy:               cfg.IgnoreIntrBy,
		IgnoreInvsOverETypeSet:     cfg.IgnoreInvsOverETypeSet,
		TraceNormalization:         cfg.TraceNormalization,
		Relations:                  cfg.Relations,
		Coarsen:                    cfg.Coarsen,
	}
}

// withSignals returns a context cancelled on SIGINT/SIGTERM, and a cleanup
// func to stop listening.
func withSignals() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()
	return ctx, func() { signal.Stop(sigChan); cancel() }
}

func newTracer() *telemetry.Tracer {
	tracer := telemetry.NewTracer("logminer")
	if otlpEndpointFlag != "" {
		tracer = tracer.WithExportEndpoint(otlpEndpointFlag)
	}
	return tracer
}

func openCheckpoint(ctx context.Context, inputPath string) (*checkpoint.Checkpoint, error) {
	if checkpointDirFlag == "" {
		return nil, nil
	}

	if checkpointRedisFlag == "" {
		mgr, err := checkpoint.NewManager(checkpointDirFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to open checkpoint directory: %w", err)
		}
		if cp, err := mgr.Find(inputPath); err == nil && cp != nil && cp.ShouldResume() {
			if verboseFlag {
				fmt.Printf("resuming coarsening checkpoint %s (%d merges so far)\n", cp.ID, cp.Merges)
			}
			return cp, nil
		}
		id := fmt.Sprintf("%s-%d", filepath.Base(inputPath), time.Now().UnixNano())
		return mgr.Create(id, inputPath), nil
	}

	redisBackend, err := checkpoint.NewRedisBackend(checkpoint.DefaultRedisConfig(checkpointRedisFlag))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to checkpoint redis backend: %w", err)
	}
	mgr, err := checkpoint.NewManagerWithBackend(checkpointDirFlag, redisBackend)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint directory: %w", err)
	}
	if cp, err := mgr.Backend().FindByInput(ctx, inputPath); err == nil && cp != nil && cp.ShouldResume() {
		if verboseFlag {
			fmt.Printf("resuming coarsening checkpoint %s (%d merges so far, via redis)\n", cp.ID, cp.Merges)
		}
		cp = mgr.Resume(cp)
		cp.MirrorTo(redisBackend)
		return cp, nil
	}
	id := fmt.Sprintf("%s-%d", filepath.Base(inputPath), time.Now().UnixNano())
	return mgr.CreateWithBackend(ctx, id, inputPath)
}

func runPipeline(path, format string, opts run.Options) (*run.Result, error) {
	batches, err := decodeInput(path, format)
	if err != nil {
		return nil, err
	}

	ctx, stop := withSignals()
	defer stop()

	tracer := newTracer()
	defer tracer.Close()

	var cp *checkpoint.Checkpoint
	if opts.Coarsen {
		cp, err = openCheckpoint(ctx, path)
		if err != nil {
			return nil, err
		}
	}

	return run.FromBatches(ctx, tracer, cp, batches, opts)
}

func runMine(cmd *cobra.Command, args []string) error {
	format := detectFormat(inputPath, formatFlag)
	if format == "" {
		return fmt.Errorf("unable to detect input format, specify with --format xes/csv/jsonl")
	}

	if verboseFlag {
		fmt.Printf("Input:  %s\n", inputPath)
		fmt.Printf("Format: %s\n", format)
		fmt.Printf("K:      %d\n", kFlag)
	}

	result, err := runPipeline(inputPath, format, optionsFromFlags())
	if err != nil {
		return fmt.Errorf("mining failed: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	summary := report.Summary{
		Partitions: len(result.Graph.Nodes()),
		Mined:      result.Mined.Len(),
		Filtered:   result.Filtered.Len(),
		Splits:     result.Refine.Splits,
		Retired:    len(result.Refine.Retired),
		Merges:     result.Coarsen.Merges,
	}
	report.PrintSummary(os.Stdout, summary)
	if verboseFlag {
		report.PrintInvariants(os.Stdout, result.Filtered)
		fmt.Printf("p50=%s p95=%s p99=%s events=%d counterexamples=%d\n",
			result.Metrics.P50Latency, result.Metrics.P95Latency, result.Metrics.P99Latency,
			result.Metrics.EventsProcessed, result.Metrics.CounterexamplesFound)
	}

	return writeArtifacts(outputDir, result)
}

func runExport(cmd *cobra.Command, args []string) error {
	format := detectFormat(inputPath, formatFlag)
	if format == "" {
		return fmt.Errorf("unable to detect input format, specify with --format xes/csv/jsonl")
	}

	result, err := runPipeline(inputPath, format, optionsFromFlags())
	if err != nil {
		return fmt.Errorf("mining failed: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := writeArtifacts(outputDir, result); err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", run.Summary(result))
	fmt.Printf("artifacts written to %s\n", outputDir)
	return nil
}

func writeArtifacts(dir string, result *run.Result) error {
	if err := writeFile(filepath.Join(dir, "invariants.txt"), func(w io.Writer) error {
		return invariantWriteText(w, result)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "partitions.dot"), func(w io.Writer) error {
		return partgraph.WriteDOT(w, result.Graph)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "report.xlsx"), func(w io.Writer) error {
		return report.WriteWorkbook(w, result.Graph, result.Filtered)
	})
}

func invariantWriteText(w io.Writer, result *run.Result) error {
	report.PrintInvariants(w, result.Filtered)
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	target := inputPath
	if len(args) == 1 {
		target = filepath.Join(args[0], filepath.Base(inputPath))
	}

	format := detectFormat(target, formatFlag)
	if format == "" {
		return fmt.Errorf("unable to detect input format, specify with --format xes/csv/jsonl")
	}

	w, err := watch.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Watch(target); err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}

	opts := optionsFromFlags()
	var lastMined int
	runOnce := func() {
		result, err := runPipeline(target, format, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mining failed: %v\n", err)
			return
		}
		report.PrintSummary(os.Stdout, report.Summary{
			Partitions: len(result.Graph.Nodes()),
			Mined:      result.Mined.Len(),
			Filtered:   result.Filtered.Len(),
			Splits:     result.Refine.Splits,
			Retired:    len(result.Refine.Retired),
			Merges:     result.Coarsen.Merges,
		})
		lastMined = result.Mined.Len()
	}

	fmt.Printf("watching %s, press Ctrl+C to stop\n", target)
	runOnce()

	w.OnChange = func(path string, kind watch.ChangeKind) error {
		switch kind {
		case watch.Rotated:
			fmt.Printf("%s was rotated, re-mining from scratch (previous run mined %d invariants)\n", path, lastMined)
		default:
			fmt.Printf("%s grew, re-mining\n", path)
		}
		runOnce()
		return nil
	}
	w.OnError = func(path string, err error) {
		fmt.Fprintf(os.Stderr, "watch error on %s: %v\n", path, err)
	}

	ctx, stop := withSignals()
	defer stop()
	return w.Run(ctx)
}
