// Package report renders a mining run's mined invariants and partition
// graph as a terminal summary, a DOT graph, or an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/xuri/excelize/v2"

	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/partgraph"
)

var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// Summary holds the counts PrintSummary renders.
type Summary struct {
	Partitions int
	Mined      int
	Filtered   int
	Splits     int
	Retired    int
	Merges     int
}

// PrintSummary writes a Swiss-minimal terminal summary of a mining run.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, successStyle.Render("  ✓ MINING COMPLETE"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Partitions:"), titleStyle.Render(fmt.Sprintf("%d", s.Partitions)))
	fmt.Fprintf(w, "  %s %s %s\n", mutedStyle.Render("Invariants:"), titleStyle.Render(fmt.Sprintf("%d", s.Mined)),
		mutedStyle.Render(fmt.Sprintf("(%d after filtering)", s.Filtered)))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Splits:"), titleStyle.Render(fmt.Sprintf("%d", s.Splits)))
	if s.Retired > 0 {
		fmt.Fprintf(w, "  %s %s\n", accentStyle.Render("Unsatisfiable:"), titleStyle.Render(fmt.Sprintf("%d", s.Retired)))
	}
	if s.Merges > 0 {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Merges:"), titleStyle.Render(fmt.Sprintf("%d", s.Merges)))
	}
	fmt.Fprintln(w)
}

// PrintInvariants writes the text-file invariant listing to w, one
// invariant per line, preceded by a section header.
func PrintInvariants(w io.Writer, s *invariant.Set) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, accentStyle.Render("▸ INVARIANTS"))
	invariant.WriteText(w, s)
	fmt.Fprintln(w)
}

// WriteWorkbook renders the partition graph's nodes/edges and the mined
// invariant set into a three-sheet xlsx workbook.
func WriteWorkbook(w io.Writer, g *partgraph.PartitionGraph, mined *invariant.Set) error {
	f := excelize.NewFile()
	defer f.Close()

	const partitionsSheet = "Partitions"
	f.SetSheetName("Sheet1", partitionsSheet)
	f.SetCellValue(partitionsSheet, "A1", "id")
	f.SetCellValue(partitionsSheet, "B1", "event_type")
	f.SetCellValue(partitionsSheet, "C1", "initial")
	f.SetCellValue(partitionsSheet, "D1", "terminal")

	nodes, edges := g.Rows()
	for i, n := range nodes {
		row := i + 2
		f.SetCellValue(partitionsSheet, cell("A", row), int32(n.ID))
		f.SetCellValue(partitionsSheet, cell("B", row), n.EventType)
		f.SetCellValue(partitionsSheet, cell("C", row), n.IsInitial)
		f.SetCellValue(partitionsSheet, cell("D", row), n.IsTerminal)
	}

	const edgesSheet = "Edges"
	if _, err := f.NewSheet(edgesSheet); err != nil {
		return fmt.Errorf("report: failed to create edges sheet: %w", err)
	}
	f.SetCellValue(edgesSheet, "A1", "src")
	f.SetCellValue(edgesSheet, "B1", "dst")
	f.SetCellValue(edgesSheet, "C1", "relation")
	f.SetCellValue(edgesSheet, "D1", "frequency")
	for i, e := range edges {
		row := i + 2
		f.SetCellValue(edgesSheet, cell("A", row), int32(e.Src))
		f.SetCellValue(edgesSheet, cell("B", row), int32(e.Dst))
		f.SetCellValue(edgesSheet, cell("C", row), e.Relation)
		f.SetCellValue(edgesSheet, cell("D", row), e.Frequency)
	}

	const invariantsSheet = "Invariants"
	if _, err := f.NewSheet(invariantsSheet); err != nil {
		return fmt.Errorf("report: failed to create invariants sheet: %w", err)
	}
	f.SetCellValue(invariantsSheet, "A1", "kind")
	f.SetCellValue(invariantsSheet, "B1", "left")
	f.SetCellValue(invariantsSheet, "C1", "right")
	f.SetCellValue(invariantsSheet, "D1", "support")
	for i, inv := range mined.Sorted() {
		row := i + 2
		f.SetCellValue(invariantsSheet, cell("A", row), inv.Kind.String())
		f.SetCellValue(invariantsSheet, cell("B", row), inv.Left.String())
		f.SetCellValue(invariantsSheet, cell("C", row), inv.Right.String())
		if inv.Support > 0 {
			f.SetCellValue(invariantsSheet, cell("D", row), inv.Support)
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// ShowProgress creates a Swiss-minimal progress bar for long-running
// decode or coarsening stages.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
