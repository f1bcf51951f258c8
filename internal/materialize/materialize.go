// Package materialize places split files at their destinations, by rename
// (in-place runs) or by byte copy (runs with an output root), and removes
// emptied class directories afterwards.
package materialize

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// Mode selects how a file reaches its destination.
type Mode int

const (
	ModeMove Mode = iota // rename within the input root
	ModeCopy             // byte copy, source left intact
)

func (m Mode) String() string {
	if m == ModeMove {
		return "move"
	}
	return "copy"
}

// ErrDestinationExists is wrapped by OpError when the target already exists.
var ErrDestinationExists = errors.New("destination already exists")

// OpError records a failed placement.
type OpError struct {
	Op  string // "move", "copy", "remove"
	Src string
	Dst string
	Err error
}

func (e *OpError) Error() string {
	if e.Dst == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Src, e.Err)
	}
	return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.Src, e.Dst, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Materializer moves or copies files on a filesystem.
type Materializer struct {
	fs   afero.Fs
	mode Mode
}

// New returns a Materializer for fsys.
func New(fsys afero.Fs, mode Mode) *Materializer {
	return &Materializer{fs: fsys, mode: mode}
}

// Mode returns the placement mode.
func (m *Materializer) Mode() Mode { return m.mode }

// Place puts src at dst. An existing dst is never overwritten. Returns the
// number of bytes copied (0 for moves).
func (m *Materializer) Place(src, dst string) (int64, error) {
	if _, err := m.fs.Stat(dst); err == nil {
		return 0, &OpError{Op: m.mode.String(), Src: src, Dst: dst, Err: ErrDestinationExists}
	} else if !os.IsNotExist(err) {
		return 0, &OpError{Op: m.mode.String(), Src: src, Dst: dst, Err: err}
	}

	if m.mode == ModeMove {
		if err := m.fs.Rename(src, dst); err != nil {
			return 0, &OpError{Op: "move", Src: src, Dst: dst, Err: err}
		}
		return 0, nil
	}
	n, err := m.copyFile(src, dst)
	if err != nil {
		return n, &OpError{Op: "copy", Src: src, Dst: dst, Err: err}
	}
	return n, nil
}

// copyFile copies src into a freshly created dst with src's permissions.
// A partially written dst is removed on failure.
func (m *Materializer) copyFile(src, dst string) (int64, error) {
	in, err := m.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := m.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		_ = m.fs.Remove(dst)
		return n, err
	}
	if err := out.Close(); err != nil {
		_ = m.fs.Remove(dst)
		return n, err
	}
	return n, nil
}
