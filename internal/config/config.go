// Package config holds runtime configuration: defaults, environment and CLI
// flag parsing, and validation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// DefaultTestPercent is the share of files assigned to test when no test
// quota is given. The resulting count is truncated, not rounded.
const DefaultTestPercent = 20

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by [LoadEnv] and [ParseArgs], before being passed (by pointer) to
// packages that need it.
type Config struct {
	// Paths (set from positional args). OutputDir is empty for in-place runs.
	InputDir  string
	OutputDir string

	// Quotas. Nil means "not supplied": test falls back to DefaultTestPercent,
	// and no val/ directory is created.
	TestSize *int
	ValSize  *int

	// Behavior flags.
	Dataset  bool     // Class-labeled mode: one subdirectory per class.
	DryRun   bool     // Print the plan only.
	Analyze  bool     // Print a per-class report and exit.
	Excludes []string // doublestar globs relative to InputDir.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
}

// DefaultConfig returns a Config with all defaults applied. Used as the base
// before [LoadEnv] and [ParseArgs] apply overrides.
func DefaultConfig() Config {
	return Config{
		Dataset:   false,
		DryRun:    false,
		Analyze:   false,
		Verbose:   false,
		ColorMode: ColorAuto,
	}
}

// InPlace reports whether files are moved within the input root (no output
// root given) rather than copied to a separate tree.
func (c *Config) InPlace() bool {
	return c.OutputDir == ""
}

// ResolutionRoot is the directory that receives train/, test/ and val/.
func (c *Config) ResolutionRoot() string {
	if c.InPlace() {
		return c.InputDir
	}
	return c.OutputDir
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and quota signs, and requires an input path.
// Quotas are checked against the real file count later, by the planner.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	if c.TestSize != nil && *c.TestSize < 0 {
		return fmt.Errorf("test size must not be negative (got %d)", *c.TestSize)
	}
	if c.ValSize != nil && *c.ValSize < 0 {
		return fmt.Errorf("validation size must not be negative (got %d)", *c.ValSize)
	}

	if c.InputDir == "" {
		return errors.New("need input_dir")
	}
	return nil
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) the resolved input directory. A nested output root would be picked up
// by enumeration and, in dataset mode, deleted by cleanup. Both arguments
// must be absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return errors.New("output directory must not be inside input directory")
	}
	return nil
}
