package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/backmassage/dsplit/internal/config"
	"github.com/backmassage/dsplit/internal/dataset"
	"github.com/backmassage/dsplit/internal/display"
	"github.com/backmassage/dsplit/internal/logging"
	"github.com/backmassage/dsplit/internal/materialize"
	"github.com/backmassage/dsplit/internal/naming"
	"github.com/backmassage/dsplit/internal/planner"
)

// Run is the top-level split entry point. It enumerates the input, checks
// the quotas against the files found, shuffles, and places every file in
// test, val and train order. Quota errors are returned before anything on
// disk changes; any later error aborts the run with no rollback.
func Run(ctx context.Context, fsys afero.Fs, cfg *config.Config, log *logging.Logger, rng planner.Shuffler) (RunStats, error) {
	var stats RunStats

	res, err := dataset.Enumerate(fsys, cfg.InputDir, enumerateOptions(cfg))
	if err != nil {
		log.Error("File discovery failed: %v", err)
		return stats, err
	}
	stats.Violations = len(res.Violations)
	stats.Excluded = res.Excluded
	reportViolations(log, res.Violations)

	files := res.Files
	stats.Total = len(files)

	plan, err := planner.BuildPlan(len(files), planner.QuotasFrom(cfg))
	if err != nil {
		return stats, err
	}
	planner.Shuffle(rng, files)

	logBatchHeader(cfg, log, plan, res)

	root := cfg.ResolutionRoot()
	layout := naming.NewLayout(fsys, root, cfg.Dataset, cfg.DryRun)
	resolver := naming.NewCollisionResolver()
	mode := materialize.ModeCopy
	if cfg.InPlace() {
		mode = materialize.ModeMove
	}
	mat := materialize.New(fsys, mode)

	for _, c := range plan.Active() {
		if err := layout.EnsureCategory(c); err != nil {
			log.Error("Cannot create split directory: %v", err)
			return stats, err
		}
	}

	for _, c := range plan.Active() {
		r := plan.Range(c)
		for _, e := range files[r.Start:r.End] {
			if err := ctx.Err(); err != nil {
				log.Warn("Interrupted")
				return stats, err
			}
			stats.Current++
			if err := placeFile(cfg, log, layout, resolver, mat, c, e, &stats); err != nil {
				log.Error("%v", err)
				return stats, err
			}
		}
		log.Info("%-5s %d file(s) -> %s", c, stats.For(c), layout.CategoryDir(c))
	}

	if cfg.Dataset {
		if err := cleanup(fsys, cfg, log, root, &stats); err != nil {
			return stats, err
		}
	}

	log.Debug(cfg.Verbose, "Split directories created: %d", layout.Created())
	logSummary(cfg, log, &stats)
	return stats, nil
}

// placeFile resolves the destination for one entry and moves or copies it.
func placeFile(
	cfg *config.Config,
	log *logging.Logger,
	layout *naming.Layout,
	resolver *naming.CollisionResolver,
	mat *materialize.Materializer,
	c planner.Category,
	e dataset.FileEntry,
	stats *RunStats,
) error {
	requested, err := layout.Destination(c, e)
	if err != nil {
		return err
	}
	dst, err := resolver.Resolve(e.Path, requested)
	if err != nil {
		return fmt.Errorf("%s: %w", e.Path, err)
	}
	if dst != requested {
		stats.Renamed++
		log.Warn("Name collision: %s -> %s", filepath.Base(requested), filepath.Base(dst))
	}

	if cfg.DryRun {
		log.Plan("[%d/%d] %s %s -> %s", stats.Current, stats.Total, mat.Mode(), e.Path, dst)
	} else {
		if _, err := mat.Place(e.Path, dst); err != nil {
			return err
		}
		log.Debug(cfg.Verbose, "[%d/%d] %s -> %s", stats.Current, stats.Total, e.Path, dst)
	}
	stats.Bytes += e.Size
	stats.count(c)
	return nil
}

// cleanup removes everything at the resolution root except the split
// directories. In dry-run it only reports what it would remove.
func cleanup(fsys afero.Fs, cfg *config.Config, log *logging.Logger, root string, stats *RunStats) error {
	keep := categoryNames()
	if name, ok := inputChild(cfg, root); ok {
		log.Warn("Keeping %s: it holds the input directory", filepath.Join(root, name))
		keep = append(keep, name)
	}
	if cfg.DryRun {
		entries, err := afero.ReadDir(fsys, root)
		if err != nil {
			// A fresh output root does not exist yet in dry-run.
			return nil
		}
		for _, e := range entries {
			if !contains(keep, e.Name()) {
				log.Plan("remove %s", filepath.Join(root, e.Name()))
				stats.Removed++
			}
		}
		return nil
	}

	removed, err := materialize.Cleanup(fsys, root, keep)
	stats.Removed = len(removed)
	for _, p := range removed {
		log.Debug(cfg.Verbose, "Removed %s", p)
	}
	if err != nil {
		log.Error("Cleanup failed: %v", err)
		return err
	}
	return nil
}

// inputChild returns the name of the root child that contains the input
// directory, when a copy run's input lies below its output root.
func inputChild(cfg *config.Config, root string) (string, bool) {
	if cfg.InPlace() {
		return "", false
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	inputAbs, err := filepath.Abs(cfg.InputDir)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(rootAbs, inputAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return strings.SplitN(filepath.ToSlash(rel), "/", 2)[0], true
}

// enumerateOptions maps the config onto enumerator options. The split
// directory names are reserved when the input root also receives the split.
func enumerateOptions(cfg *config.Config) dataset.Options {
	opts := dataset.Options{Dataset: cfg.Dataset, Excludes: cfg.Excludes}
	if cfg.InPlace() {
		opts.Reserved = categoryNames()
	}
	return opts
}

func categoryNames() []string {
	names := make([]string, len(planner.Categories))
	for i, c := range planner.Categories {
		names[i] = string(c)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- Logging helpers ---

func reportViolations(log *logging.Logger, violations []dataset.Violation) {
	for _, v := range violations {
		log.Warn("Skipping %s", v)
	}
}

func logBatchHeader(cfg *config.Config, log *logging.Logger, plan *planner.Plan, res *dataset.Result) {
	if cfg.Dataset {
		log.Info("Found %d files in %d class(es)", plan.Total, len(res.Classes()))
	} else {
		log.Info("Found %d files", plan.Total)
	}
	if res.Excluded > 0 {
		log.Info("Excluded: %d entries", res.Excluded)
	}

	if cfg.InPlace() {
		log.Info("Mode: in-place (move within %s)", cfg.InputDir)
	} else {
		log.Info("Mode: copy to %s", cfg.OutputDir)
	}

	testLabel := fmt.Sprintf("%d", plan.Test.Len())
	if plan.TestDefaulted {
		testLabel += fmt.Sprintf(" (default %d%%)", config.DefaultTestPercent)
	}
	if plan.HasVal {
		log.Info("Split: test %s, val %d, train %d", testLabel, plan.Val.Len(), plan.Train.Len())
	} else {
		log.Info("Split: test %s, train %d (no val)", testLabel, plan.Train.Len())
	}
	if cfg.DryRun {
		log.Info("Dry run: no files will be changed")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	verb := "Split"
	if cfg.DryRun {
		verb = "Would split"
	}
	log.Success("%s %d files (%s): %d test, %d val, %d train",
		verb, stats.Placed(), display.FormatBytes(stats.Bytes), stats.Test, stats.Val, stats.Train)
	if stats.Renamed > 0 {
		log.Warn("  Renamed on collision: %d", stats.Renamed)
	}
	if stats.Violations > 0 {
		log.Warn("  Skipped entries: %d", stats.Violations)
	}
	if stats.Removed > 0 {
		log.Info("  Removed leftover directories: %d", stats.Removed)
	}
}
