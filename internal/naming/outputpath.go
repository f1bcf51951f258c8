package naming

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/backmassage/dsplit/internal/dataset"
	"github.com/backmassage/dsplit/internal/planner"
)

// Layout builds destination paths under the resolution root and creates the
// split directories they need, each at most once.
//
//	Flat:    <root>/<category>/<name>
//	Dataset: <root>/<category>/<class>/<name>
type Layout struct {
	fs      afero.Fs
	root    string
	dataset bool
	dryRun  bool
	created map[string]bool
}

// NewLayout returns a Layout rooted at root. With dryRun set, paths are
// computed but no directory is created.
func NewLayout(fsys afero.Fs, root string, datasetMode, dryRun bool) *Layout {
	return &Layout{
		fs:      fsys,
		root:    root,
		dataset: datasetMode,
		dryRun:  dryRun,
		created: make(map[string]bool),
	}
}

// CategoryDir returns <root>/<category>.
func (l *Layout) CategoryDir(c planner.Category) string {
	return filepath.Join(l.root, string(c))
}

// EnsureCategory creates <root>/<category> if this layout has not done so yet.
func (l *Layout) EnsureCategory(c planner.Category) error {
	return l.ensure(l.CategoryDir(c))
}

// Destination returns the target path for e in category c, creating the
// class subdirectory on first use in dataset mode.
func (l *Layout) Destination(c planner.Category, e dataset.FileEntry) (string, error) {
	dir := l.CategoryDir(c)
	if l.dataset {
		dir = filepath.Join(dir, e.Class)
		if err := l.ensure(dir); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, e.Name()), nil
}

// Created returns the number of directories this layout has made (or, in
// dry-run, would have made).
func (l *Layout) Created() int {
	return len(l.created)
}

func (l *Layout) ensure(dir string) error {
	if l.created[dir] {
		return nil
	}
	if !l.dryRun {
		if err := l.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	l.created[dir] = true
	return nil
}
