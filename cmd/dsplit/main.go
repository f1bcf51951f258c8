// Command dsplit is the CLI entrypoint for the dsplit dataset splitter.
//
// It parses flags, validates configuration and paths, and either prints the
// per-class analysis (--analyze) or runs the train/test/val split.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/backmassage/dsplit/internal/check"
	"github.com/backmassage/dsplit/internal/config"
	"github.com/backmassage/dsplit/internal/display"
	"github.com/backmassage/dsplit/internal/logging"
	"github.com/backmassage/dsplit/internal/pipeline"
	"github.com/backmassage/dsplit/internal/planner"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	cfg := config.DefaultConfig()
	if err := config.LoadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "dsplit: %v\n", err)
		return 1
	}
	if err := config.ParseFlags(&cfg, version); err != nil {
		if errors.Is(err, config.ErrHelp) || errors.Is(err, config.ErrVersion) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "dsplit: %v\n", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "dsplit: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dsplit: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available. All output goes through log from here on.
	display.PrintBanner(os.Stdout)
	fsys := afero.NewOsFs()

	if err := check.Preflight(fsys, &cfg, log); err != nil {
		log.Error("%v", err)
		if errors.Is(err, check.ErrOutputInsideInput) {
			log.Error("Choose an output path outside: %s", cfg.InputDir)
		}
		return 1
	}

	if cfg.Analyze {
		if err := pipeline.Analyze(fsys, &cfg, log, os.Stdout); err != nil {
			return 1
		}
		return 0
	}

	log.Info("=== dsplit v%s (%s) ===", version, commit)
	log.Info("In:  %s", cfg.InputDir)
	if cfg.InPlace() {
		log.Info("Out: %s (in place)", cfg.InputDir)
	} else {
		log.Info("Out: %s", cfg.OutputDir)
	}
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be moved or copied")
	}
	log.Info("")

	// Phase 3: Signal handling. Cancel the context on SIGINT/SIGTERM so the
	// pipeline stops between files.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, stopping after current file…")
		cancel()
	}()

	// Phase 4: Run pipeline (enumerate → plan → shuffle → place → cleanup).
	if _, err := pipeline.Run(ctx, fsys, &cfg, log, planner.RandomShuffler{}); err != nil {
		var cfgErr *planner.ConfigError
		if errors.As(err, &cfgErr) {
			log.Error("%v", cfgErr)
			log.Error("Nothing was moved or copied")
		}
		return 1
	}
	return 0
}
