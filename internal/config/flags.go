package config

// This file implements CLI flag parsing and help text.
// Quota flags are only applied when Changed, so "not supplied" and an
// explicit zero stay distinguishable.

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Sentinels returned by ParseArgs when the user asked for help or the
// version string. Both have already been printed; callers should exit 0.
var (
	ErrHelp    = errors.New("help requested")
	ErrVersion = errors.New("version requested")
)

// ParseFlags parses os.Args into cfg. See [ParseArgs].
func ParseFlags(cfg *Config, version string) error {
	return ParseArgs(cfg, os.Args[1:], version, os.Stderr)
}

// ParseArgs parses args into cfg. Usage and version text go to out.
func ParseArgs(cfg *Config, args []string, version string, out io.Writer) error {
	fs := pflag.NewFlagSet("dsplit", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { printUsage(out, version) }
	fs.SortFlags = false

	var (
		testSize, valSize   int
		forceColor, noColor bool
		showHelp, showVer   bool
	)

	fs.IntVarP(&testSize, "test", "t", 0, "Test split size (default: 20% of files)")
	fs.IntVarP(&valSize, "val", "v", 0, "Validation split size (default: no val directory)")
	fs.BoolVarP(&cfg.Dataset, "dataset", "d", cfg.Dataset, "Input is a class-labeled dataset directory")
	fs.StringSliceVarP(&cfg.Excludes, "exclude", "e", cfg.Excludes, "Skip entries matching a glob (repeatable)")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", cfg.DryRun, "Print the plan without touching files")
	fs.BoolVarP(&cfg.Analyze, "analyze", "a", cfg.Analyze, "Print a per-class report and exit")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output")
	fs.BoolVar(&forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored logs")
	fs.StringVarP(&cfg.LogFile, "log", "l", cfg.LogFile, "Append logs to file")
	fs.BoolVarP(&showVer, "version", "V", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(out, version)
		return ErrHelp
	}
	if showVer {
		fmt.Fprintln(out, "dsplit v"+version)
		return ErrVersion
	}

	if fs.Changed("test") {
		cfg.TestSize = &testSize
	}
	if fs.Changed("val") {
		cfg.ValSize = &valSize
	}
	if noColor {
		cfg.ColorMode = ColorNever
	} else if forceColor {
		cfg.ColorMode = ColorAlways
	}
	cfg.Excludes = normalizeExcludes(cfg.Excludes)

	return parsePositionalArgs(fs, cfg)
}

// parsePositionalArgs sets InputDir and the optional OutputDir.
func parsePositionalArgs(fs *pflag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("need input_dir and optional output_dir (got %d arguments)", len(args))
	}
	cfg.InputDir = NormalizeDirArg(args[0])
	cfg.OutputDir = ""
	if len(args) == 2 {
		cfg.OutputDir = NormalizeDirArg(args[1])
	}
	return nil
}

// normalizeExcludes trims patterns and drops empty ones.
func normalizeExcludes(patterns []string) []string {
	out := patterns[:0]
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// printUsage writes the help text. Column-aligned for readability.
func printUsage(out io.Writer, version string) {
	const col1 = 26 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "dsplit v" + version + " - random train/test/validation splitter"},
		{"", ""},
		{"  dsplit [OPTIONS] <input_dir> [output_dir]", ""},
		{"", ""},
		{"Without output_dir, files are moved inside input_dir.", ""},
		{"With output_dir, files are copied and input_dir is left intact.", ""},
		{"", ""},
		{"Split", ""},
		{"  -t, --test <n>", "Test split size (default: 20% of files)"},
		{"  -v, --val <n>", "Validation split size (default: no val/)"},
		{"  -d, --dataset", "Input holds one subdirectory per class"},
		{"  -e, --exclude <glob>", "Skip matching entries (repeatable)"},
		{"", ""},
		{"Behavior", ""},
		{"  -n, --dry-run", "Print the plan without touching files"},
		{"  -a, --analyze", "Print a per-class report and exit"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  --verbose", "Verbose output"},
		{"  -l, --log <path>", "Append logs to file"},
		{"", ""},
		{"Utility", ""},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(out)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(out, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(out, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(out, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}
