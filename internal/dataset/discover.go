// Package dataset enumerates the candidate files of a split run.
//
// A flat input is treated as a dataset with a single unlabeled class rooted
// at the input directory itself, so both layouts share one per-class scan.
package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// FileEntry is one candidate file. Class is empty in flat mode.
type FileEntry struct {
	Path  string
	Class string
	Size  int64
}

// Name returns the file's base name.
func (e FileEntry) Name() string { return filepath.Base(e.Path) }

// Violation describes an entry whose shape does not fit the expected
// layout. Violations are reported and the entry is skipped.
type Violation struct {
	Path   string
	Reason string
}

func (v Violation) String() string { return v.Path + ": " + v.Reason }

// Options controls enumeration.
type Options struct {
	// Dataset expects root/<class>/<file>; otherwise root/<file>.
	Dataset bool
	// Excludes are doublestar globs matched against slash-separated paths
	// relative to root. Matching entries are skipped without a violation.
	Excludes []string
	// Reserved root-level directory names that are never treated as classes.
	Reserved []string
}

// Result is the output of [Enumerate].
type Result struct {
	Files      []FileEntry
	Violations []Violation
	Excluded   int
}

// Classes returns the distinct class labels in first-seen order.
func (r *Result) Classes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range r.Files {
		if !seen[f.Class] {
			seen[f.Class] = true
			out = append(out, f.Class)
		}
	}
	return out
}

// Enumerate lists the candidate files under root. Entries come back sorted
// by class, then by name, so the shuffle is the only source of ordering
// randomness. It fails only when root or a class directory cannot be read.
func Enumerate(fsys afero.Fs, root string, opts Options) (*Result, error) {
	for _, p := range opts.Excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	res := &Result{}
	if !opts.Dataset {
		if err := scanClass(fsys, root, root, "", opts, res); err != nil {
			return nil, err
		}
		return res, nil
	}

	entries, err := afero.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	reserved := make(map[string]bool, len(opts.Reserved))
	for _, name := range opts.Reserved {
		reserved[name] = true
	}

	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if excluded(root, path, opts.Excludes) {
			res.Excluded++
			continue
		}
		switch {
		case e.IsDir() && reserved[e.Name()]:
			res.Violations = append(res.Violations, Violation{path, "split output directory, not a class"})
		case e.IsDir():
			if err := scanClass(fsys, root, path, e.Name(), opts, res); err != nil {
				return nil, err
			}
		case e.Mode().IsRegular():
			res.Violations = append(res.Violations, Violation{path, "file where a class directory was expected"})
		default:
			res.Violations = append(res.Violations, Violation{path, "not a regular file or directory"})
		}
	}
	return res, nil
}

// scanClass collects the regular files directly inside dir.
func scanClass(fsys afero.Fs, root, dir, class string, opts Options, res *Result) error {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if class == "" {
			return fmt.Errorf("read input directory: %w", err)
		}
		return fmt.Errorf("read class directory %q: %w", class, err)
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if excluded(root, path, opts.Excludes) {
			res.Excluded++
			continue
		}
		switch {
		case e.IsDir():
			res.Violations = append(res.Violations, Violation{path, "directory where a file was expected"})
		case e.Mode().IsRegular():
			res.Files = append(res.Files, FileEntry{Path: path, Class: class, Size: e.Size()})
		default:
			res.Violations = append(res.Violations, Violation{path, "not a regular file or directory"})
		}
	}
	return nil
}

func excluded(root, path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
