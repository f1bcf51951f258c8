// Package check provides the pre-run validation (Preflight) of the input and
// output roots. Nothing on disk is modified here.
package check

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/backmassage/dsplit/internal/config"
)

// Sentinel errors returned by Preflight.
var (
	ErrInputNotFound     = errors.New("input directory not found")
	ErrInputNotDir       = errors.New("input path is not a directory")
	ErrOutputInsideInput = errors.New("output directory must not be inside input directory")
	ErrInputInsideOutput = errors.New("input directory must not be inside output directory")
	ErrOutputNotDir      = errors.New("output path is not a directory")
)

// Logger is the minimal logging interface needed by Preflight.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Debug(bool, string, ...interface{})
}

// Preflight verifies that the input root is an existing directory and, for
// copy runs, that neither root contains the other and the output root can
// be created. Symlinks are resolved on the OS filesystem before
// comparing. Returns a wrapped sentinel error on failure.
func Preflight(fsys afero.Fs, cfg *config.Config, log Logger) error {
	fi, err := fsys.Stat(cfg.InputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, cfg.InputDir)
		}
		return fmt.Errorf("stat %s: %w", cfg.InputDir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputNotDir, cfg.InputDir)
	}

	if cfg.InPlace() {
		log.Debug(cfg.Verbose, "Preflight: in-place run in %s", cfg.InputDir)
		return nil
	}

	inputAbs, err := absPath(fsys, cfg.InputDir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cfg.InputDir, err)
	}
	outputAbs, err := absPath(fsys, cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cfg.OutputDir, err)
	}
	log.Debug(cfg.Verbose, "Preflight: input %s, output %s", inputAbs, outputAbs)

	if err := cfg.ValidatePaths(inputAbs, outputAbs); err != nil {
		return fmt.Errorf("%w: %s", ErrOutputInsideInput, cfg.OutputDir)
	}
	if within(inputAbs, outputAbs) {
		return fmt.Errorf("%w: %s", ErrInputInsideOutput, cfg.InputDir)
	}
	return checkCreatable(fsys, cfg.OutputDir)
}

// within reports whether path is strictly below dir.
func within(path, dir string) bool {
	sep := string(filepath.Separator)
	return path != dir && strings.HasPrefix(path+sep, strings.TrimSuffix(dir, sep)+sep)
}

// checkCreatable walks up from path to the nearest existing entry, which
// must be a directory for MkdirAll to succeed later.
func checkCreatable(fsys afero.Fs, path string) error {
	dir := filepath.Clean(path)
	for {
		fi, err := fsys.Stat(dir)
		if err == nil {
			if !fi.IsDir() {
				return fmt.Errorf("%w: %s", ErrOutputNotDir, dir)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// absPath returns the absolute path for safe comparison of input vs output
// directory hierarchies. On the OS filesystem the longest existing prefix is
// symlink-resolved; the output root may not exist yet.
func absPath(fsys afero.Fs, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, ok := fsys.(*afero.OsFs); !ok {
		return abs, nil
	}

	dir, rest := abs, ""
	for {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(dir), rest)
		dir = parent
	}
}
