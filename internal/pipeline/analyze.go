package pipeline

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/backmassage/dsplit/internal/config"
	"github.com/backmassage/dsplit/internal/dataset"
	"github.com/backmassage/dsplit/internal/display"
	"github.com/backmassage/dsplit/internal/logging"
	"github.com/backmassage/dsplit/internal/planner"
)

var (
	extremeColor = color.New(color.FgHiRed, color.Bold)
	outlierColor = color.New(color.FgHiYellow)
)

// classRow holds the per-class data for the analysis table.
type classRow struct {
	Class string
	Files int
	Bytes int64
}

// Analyze enumerates the input without touching it and prints a per-class
// table to w, flagging classes whose file count is an IQR outlier, followed
// by the split sizes the configured quotas would produce.
func Analyze(fsys afero.Fs, cfg *config.Config, log *logging.Logger, w io.Writer) error {
	res, err := dataset.Enumerate(fsys, cfg.InputDir, enumerateOptions(cfg))
	if err != nil {
		log.Error("File discovery failed: %v", err)
		return err
	}
	reportViolations(log, res.Violations)

	if len(res.Files) == 0 {
		log.Warn("No files found in %s", cfg.InputDir)
		return nil
	}

	rows := buildClassRows(res.Files)
	var counts []float64
	for _, r := range rows {
		counts = append(counts, float64(r.Files))
	}
	stats := computeStats(counts)

	printAnalysisTable(w, rows, len(res.Files), stats)
	printAnalysisSummary(log, rows, stats)

	plan, err := planner.BuildPlan(len(res.Files), planner.QuotasFrom(cfg))
	if err != nil {
		log.Error("%v", err)
		return err
	}
	line := fmt.Sprintf("Split with current quotas: test %d", plan.Test.Len())
	if plan.HasVal {
		line += fmt.Sprintf(", val %d", plan.Val.Len())
	}
	line += fmt.Sprintf(", train %d", plan.Train.Len())
	log.Info("%s", line)
	return nil
}

// buildClassRows aggregates entries per class, largest class first.
func buildClassRows(files []dataset.FileEntry) []classRow {
	idx := make(map[string]int)
	var rows []classRow
	for _, f := range files {
		i, ok := idx[f.Class]
		if !ok {
			i = len(rows)
			idx[f.Class] = i
			rows = append(rows, classRow{Class: f.Class})
		}
		rows[i].Files++
		rows[i].Bytes += f.Size
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Files > rows[j].Files })
	return rows
}

// iqrBounds holds the IQR-based thresholds for outlier classification.
type iqrBounds struct {
	q1, q3    float64
	outlierLo float64 // Q1 - 1.5*IQR
	outlierHi float64 // Q3 + 1.5*IQR
	extremeLo float64 // Q1 - 3.0*IQR
	extremeHi float64 // Q3 + 3.0*IQR
	valid     bool
}

func computeStats(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	return iqrBounds{
		q1:        q1,
		q3:        q3,
		outlierLo: q1 - 1.5*iqr,
		outlierHi: q3 + 1.5*iqr,
		extremeLo: q1 - 3.0*iqr,
		extremeHi: q3 + 3.0*iqr,
		valid:     iqr > 0,
	}
}

// classify returns "" (normal), "outlier", or "extreme" for a value.
func (b *iqrBounds) classify(v float64) string {
	if !b.valid {
		return ""
	}
	if v < b.extremeLo || v > b.extremeHi {
		return "extreme"
	}
	if v < b.outlierLo || v > b.outlierHi {
		return "outlier"
	}
	return ""
}

func printAnalysisTable(w io.Writer, rows []classRow, total int, stats iqrBounds) {
	classW := len("Class")
	filesW := len("Files")
	sizeW := len("Size")
	const shareW = len("Share")

	for _, r := range rows {
		if n := utf8.RuneCountInString(classLabel(r.Class)); n > classW {
			classW = n
		}
		if n := len(fmt.Sprint(r.Files)); n > filesW {
			filesW = n
		}
		if n := len(display.FormatBytes(r.Bytes)); n > sizeW {
			sizeW = n
		}
	}
	if classW > 40 {
		classW = 40
	}

	header := fmt.Sprintf("  %-*s  %*s  %*s  %*s", classW, "Class", filesW, "Files", sizeW, "Size", shareW, "Share")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+strings.Repeat("─", len(header)-2))

	for _, r := range rows {
		name := truncate(classLabel(r.Class), classW)
		class := stats.classify(float64(r.Files))
		// Pad the plain text first, then wrap in color, so escape bytes do
		// not count toward the column width.
		filesCell := colorPad(fmt.Sprintf("%*d", filesW, r.Files), class)
		fmt.Fprintf(w, "  %-*s  %s  %*s  %*s  %s\n",
			classW, name,
			filesCell,
			sizeW, display.FormatBytes(r.Bytes),
			shareW, display.FormatPercent(r.Files, total),
			formatFlag(class),
		)
	}
	fmt.Fprintln(w)
}

func printAnalysisSummary(log *logging.Logger, rows []classRow, stats iqrBounds) {
	var outliers, extremes int
	for _, r := range rows {
		switch stats.classify(float64(r.Files)) {
		case "extreme":
			extremes++
		case "outlier":
			outliers++
		}
	}

	log.Info("Analyzed %d class(es)", len(rows))
	if stats.valid {
		log.Info("  Files per class IQR: %.0f – %.0f (outlier < %.0f or > %.0f)",
			stats.q1, stats.q3, stats.outlierLo, stats.outlierHi)
	}
	if outliers > 0 {
		log.Warn("  %d imbalanced class(es) flagged [*]", outliers)
	}
	if extremes > 0 {
		log.Error("  %d severely imbalanced class(es) flagged [!]", extremes)
	}
	if outliers == 0 && extremes == 0 {
		log.Success("  No class imbalance detected")
	}
}

// truncate shortens s to at most n runes, marking the cut with "…".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func classLabel(class string) string {
	if class == "" {
		return "(unlabeled)"
	}
	return class
}

func formatFlag(flag string) string {
	switch flag {
	case "extreme":
		return extremeColor.Sprint("[!]")
	case "outlier":
		return outlierColor.Sprint("[*]")
	default:
		return ""
	}
}

func colorPad(padded, class string) string {
	switch class {
	case "extreme":
		return extremeColor.Sprint(padded)
	case "outlier":
		return outlierColor.Sprint(padded)
	default:
		return padded
	}
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
