package check

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dsplit/internal/config"
)

type mockLogger struct {
	lines []string
}

func (m *mockLogger) Debug(_ bool, format string, args ...interface{}) {
	m.lines = append(m.lines, fmt.Sprintf(format, args...))
}

func cfgFor(input, output string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.InputDir = input
	cfg.OutputDir = output
	return &cfg
}

func TestPreflight(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/data/in/cat", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/data/file.txt", []byte("x"), 0o644))

	cases := []struct {
		name    string
		input   string
		output  string
		wantErr error
	}{
		{"in-place", "/data/in", "", nil},
		{"copy to sibling", "/data/in", "/data/out", nil},
		{"copy to new nested path", "/data/in", "/data/out/a/b", nil},
		{"missing input", "/data/nope", "", ErrInputNotFound},
		{"input is a file", "/data/file.txt", "", ErrInputNotDir},
		{"output equals input", "/data/in", "/data/in", ErrOutputInsideInput},
		{"output inside input", "/data/in", "/data/in/split", ErrOutputInsideInput},
		{"input inside output", "/data/in", "/data", ErrInputInsideOutput},
		{"input deep inside output", "/data/in/cat", "/data", ErrInputInsideOutput},
		{"output under a file", "/data/in", "/data/file.txt/out", ErrOutputNotDir},
		{"output prefix is not nesting", "/data/in", "/data/input-split", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Preflight(fsys, cfgFor(tc.input, tc.output), &mockLogger{})
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.wantErr), "got %v, want %v", err, tc.wantErr)
		})
	}

	ok, err := afero.Exists(fsys, "/data/out")
	require.NoError(t, err)
	assert.False(t, ok, "preflight must not create the output root")
}

func TestPreflight_LogsResolvedPaths(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/in", 0o755))
	log := &mockLogger{}

	require.NoError(t, Preflight(fsys, cfgFor("/in", "/out"), log))
	require.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], "/out")
}

func TestPreflight_SymlinkedOutputInsideInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "nested"), 0o755))
	link := filepath.Join(dir, "link")
	if err := os.Symlink(filepath.Join(in, "nested"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	err := Preflight(afero.NewOsFs(), cfgFor(in, filepath.Join(link, "out")), &mockLogger{})
	assert.True(t, errors.Is(err, ErrOutputInsideInput), "got %v", err)

	err = Preflight(afero.NewOsFs(), cfgFor(in, filepath.Join(dir, "out")), &mockLogger{})
	assert.NoError(t, err)
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/a/b", "/a"))
	assert.True(t, within("/a/b/c", "/a/"))
	assert.True(t, within("/a", "/"))
	assert.False(t, within("/a", "/a"))
	assert.False(t, within("/ab", "/a"))
	assert.False(t, within("/a", "/a/b"))
}

func TestPreflight_OsFsInputBelowOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "cat"), 0o755))

	err := Preflight(afero.NewOsFs(), cfgFor(in, dir), &mockLogger{})
	assert.True(t, errors.Is(err, ErrInputInsideOutput), "got %v", err)
}
