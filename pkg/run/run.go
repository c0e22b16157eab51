// Package run wires the ingest, trace-graph, invariant-mining, k-tails,
// partition-graph, refinement, and coarsening stages into a single mining
// pipeline driven from a config.Config.
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/checkpoint"
	"github.com/logminer/logminer/pkg/coarsen"
	minererrors "github.com/logminer/logminer/pkg/errors"
	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/ktails"
	"github.com/logminer/logminer/pkg/partgraph"
	"github.com/logminer/logminer/pkg/refine"
	"github.com/logminer/logminer/pkg/telemetry"
	"github.com/logminer/logminer/pkg/tracegraph"
	"github.com/logminer/logminer/pkg/validation"
)

// Result is the outcome of a complete mining run.
type Result struct {
	TraceGraph *tracegraph.TraceGraph
	Mined      *invariant.Set
	Filtered   *invariant.Set
	Graph      *partgraph.PartitionGraph
	Refine     refine.Stats
	Coarsen    coarsen.Stats
	Metrics    telemetry.MetricsSummary
}

// Options configures one mining run, mirroring config.MiningConfig.
type Options struct {
	K                          int
	UseTransitiveClosureMining bool
	MultipleRelations          bool
	MineNeverConcurrentWith    bool
	SupportCountThreshold      int
	IgnoreIntrBy               bool
	IgnoreInvsOverETypeSet     []string
	TraceNormalization         bool
	Relations                  []string
	Coarsen                    bool
}

// FromBatches runs the full pipeline over already-decoded trace batches:
// build the trace graph, mine invariants and k-tails equivalence classes,
// seed the partition graph, then refine it and optionally coarsen it.
func FromBatches(ctx context.Context, tracer *telemetry.Tracer, cp *checkpoint.Checkpoint, batches []model.EventBatch, opts Options) (*Result, error) {
	metrics := telemetry.NewMetrics()

	traces := make([][]model.Event, 0, len(batches))
	for _, b := range batches {
		if len(b.Events) == 0 {
			continue
		}
		evts := b.Events
		if opts.TraceNormalization {
			model.NormalizeTimes(evts)
		}
		traces = append(traces, evts)
	}
	if len(traces) == 0 {
		return nil, minererrors.New(minererrors.CodeMissingField, "no non-empty traces to build a trace graph from")
	}
	for _, t := range traces {
		metrics.IncrementEvents(int64(len(t)))
	}

	_, qualitySpan := tracer.StartSpan(ctx, "run.CheckQuality")
	issues := validation.CheckEventBatches(batches)
	qualitySpan.SetAttribute("issue_count", len(issues))
	tracer.EndSpan(qualitySpan)
	if validation.HasCritical(issues) {
		return nil, minererrors.New(minererrors.CodeValidationFailed, "decoded events failed quality validation").
			WithContext("issues", len(issues))
	}

	buildStart := time.Now()
	_, buildSpan := tracer.StartSpan(ctx, "run.BuildTraceGraph")
	tg, err := tracegraph.BuildChains(traces, opts.Relations...)
	tracer.EndSpan(buildSpan)
	metrics.RecordLatency(time.Since(buildStart))
	if err != nil {
		metrics.IncrementErrors()
		return nil, minererrors.WellFormedness(err)
	}

	mineOpts := invariant.MineOptions{
		MultipleRelations: opts.MultipleRelations,
		SupportCount:      opts.SupportCountThreshold > 0,
		IgnoreIntrBy:      opts.IgnoreIntrBy,
	}

	mineStart := time.Now()
	_, mineSpan := tracer.StartSpan(ctx, "run.Mine")
	var mined *invariant.Set
	if opts.UseTransitiveClosureMining {
		mined = invariant.NewSet()
		for _, r := range tg.Relations() {
			tmp, err := invariant.MineClosure(tg, r, mineOpts)
			if err != nil {
				tracer.EndSpan(mineSpan)
				metrics.IncrementErrors()
				return nil, minererrors.Wrap(err, minererrors.CodeParseFailure, "closure mining failed")
			}
			mined.AddAll(tmp)
		}
	} else {
		mined, err = invariant.MineAll(tg, mineOpts)
		if err != nil {
			tracer.EndSpan(mineSpan)
			metrics.IncrementErrors()
			return nil, minererrors.Wrap(err, minererrors.CodeParseFailure, "path mining failed")
		}
	}
	if opts.MineNeverConcurrentWith {
		// tg is always chain-shaped here (built by BuildChains above); no
		// decoder in pkg/tracein attaches vector clocks, so MineNeverConcurrent
		// always returns an empty set against it. Left wired rather than
		// rejected so a caller building a TraceGraph programmatically via
		// BuildDAGs and this same Options struct still gets NeverConcurrent
		// invariants out of a hand-assembled pipeline.
		mined.AddAll(invariant.MineNeverConcurrent(tg))
	}
	mineSpan.SetAttribute("mined_count", mined.Len())
	tracer.EndSpan(mineSpan)
	metrics.RecordLatency(time.Since(mineStart))
	metrics.IncrementInvariantsMined(int64(mined.Len()))

	ignoreSet := make(map[model.EventType]bool, len(opts.IgnoreInvsOverETypeSet))
	for _, label := range opts.IgnoreInvsOverETypeSet {
		ignoreSet[model.NewEventType(label)] = true
	}
	filtered := invariant.Filter(mined, invariant.FilterOptions{
		SupportCountThreshold: opts.SupportCountThreshold,
		IgnoreOverETypeSet:    ignoreSet,
	})

	ktailsStart := time.Now()
	_, ktailsSpan := tracer.StartSpan(ctx, "run.KTails")
	pg := ktails.PerformKTails(tg, opts.K, filtered)
	tracer.EndSpan(ktailsSpan)
	metrics.RecordLatency(time.Since(ktailsStart))

	refineStart := time.Now()
	refineStats := refine.Run(ctx, tracer, pg, filtered)
	metrics.RecordLatency(time.Since(refineStart))
	metrics.IncrementSplits(int64(refineStats.Splits))
	metrics.IncrementInvariantsRetired(int64(len(refineStats.Retired)))

	var coarsenStats coarsen.Stats
	if opts.Coarsen {
		coarsenStart := time.Now()
		coarsenStats = coarsen.Run(ctx, tracer, pg, filtered, opts.K, cp)
		metrics.RecordLatency(time.Since(coarsenStart))
		metrics.IncrementMerges(int64(coarsenStats.Merges))
	}

	tracer.ExportMetrics(metrics)

	return &Result{
		TraceGraph: tg,
		Mined:      mined,
		Filtered:   filtered,
		Graph:      pg,
		Refine:     refineStats,
		Coarsen:    coarsenStats,
		Metrics:    metrics.Summary(),
	}, nil
}

// Summary renders a one-line human-readable digest of a run, used by the
// CLI's non-verbose path.
func Summary(r *Result) string {
	return fmt.Sprintf(
		"partitions=%d mined=%d filtered=%d splits=%d retired=%d merges=%d",
		len(r.Graph.Nodes()), r.Mined.Len(), r.Filtered.Len(), r.Refine.Splits, len(r.Refine.Retired), r.Coarsen.Merges,
	)
}
