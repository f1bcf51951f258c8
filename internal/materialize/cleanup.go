package materialize

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrNotDirectory is wrapped by OpError when cleanup meets a leftover file
// at the resolution root.
var ErrNotDirectory = errors.New("leftover file is not a class directory")

// Cleanup removes every direct child of root whose name is not in keep.
// Directories are removed recursively; any other leftover is an error.
// It stops at the first failure and returns the paths removed so far.
func Cleanup(fsys afero.Fs, root string, keep []string) ([]string, error) {
	entries, err := afero.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}

	var removed []string
	for _, e := range entries {
		if keepSet[e.Name()] {
			continue
		}
		path := filepath.Join(root, e.Name())
		if !e.IsDir() {
			return removed, &OpError{Op: "remove", Src: path, Err: ErrNotDirectory}
		}
		if err := fsys.RemoveAll(path); err != nil {
			return removed, &OpError{Op: "remove", Src: path, Err: err}
		}
		removed = append(removed, path)
	}
	return removed, nil
}
