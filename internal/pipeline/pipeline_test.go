package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dsplit/internal/config"
	"github.com/backmassage/dsplit/internal/dataset"
	"github.com/backmassage/dsplit/internal/logging"
	"github.com/backmassage/dsplit/internal/materialize"
	"github.com/backmassage/dsplit/internal/planner"
)

// identity leaves the enumeration order (class, then name) untouched.
type identity struct{}

func (identity) Shuffle(int, func(i, j int)) {}

// reverse reverses the slice, so the last files land in test.
type reverse struct{}

func (reverse) Shuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func intp(v int) *int { return &v }

func newTestLogger(t *testing.T, cfg *config.Config) (*logging.Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg.ColorMode = config.ColorNever
	log, err := logging.NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	var out, errOut bytes.Buffer
	log.SetOutput(&out, &errOut)
	return log, &out, &errOut
}

func touch(t *testing.T, fsys afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte(filepath.Base(path)), 0o644))
}

func names(t *testing.T, fsys afero.Fs, dir string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fsys, dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

// filesUnder returns every regular file below root, relative and sorted.
func filesUnder(t *testing.T, fsys afero.Fs, root string) []string {
	t.Helper()
	var out []string
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, _ := filepath.Rel(root, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func flatInput(t *testing.T, fsys afero.Fs, root string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		touch(t, fsys, filepath.Join(root, fmt.Sprintf("f%02d.txt", i)))
	}
}

func catDog(t *testing.T, fsys afero.Fs, root string) {
	t.Helper()
	for i := 0; i < 5; i++ {
		touch(t, fsys, filepath.Join(root, "cat", fmt.Sprintf("c%d.jpg", i)))
		touch(t, fsys, filepath.Join(root, "dog", fmt.Sprintf("d%d.jpg", i)))
	}
}

func TestRun_FlatInPlaceDefaultQuota(t *testing.T) {
	fsys := afero.NewMemMapFs()
	flatInput(t, fsys, "/data", 10)

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	log, _, _ := newTestLogger(t, &cfg)

	stats, err := Run(context.Background(), fsys, &cfg, log, identity{})
	require.NoError(t, err)

	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 2, stats.Test)
	assert.Equal(t, 0, stats.Val)
	assert.Equal(t, 8, stats.Train)
	assert.Equal(t, []string{"test", "train"}, names(t, fsys, "/data"), "no val dir without a val quota")
	assert.Equal(t, []string{"f00.txt", "f01.txt"}, names(t, fsys, "/data/test"))
	assert.Len(t, names(t, fsys, "/data/train"), 8)
}

func TestRun_ShuffleDecidesAssignment(t *testing.T) {
	fsys := afero.NewMemMapFs()
	flatInput(t, fsys, "/data", 5)

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.TestSize = intp(2)
	log, _, _ := newTestLogger(t, &cfg)

	_, err := Run(context.Background(), fsys, &cfg, log, reverse{})
	require.NoError(t, err)
	assert.Equal(t, []string{"f03.txt", "f04.txt"}, names(t, fsys, "/data/test"))
	assert.Equal(t, []string{"f00.txt", "f01.txt", "f02.txt"}, names(t, fsys, "/data/train"))
}

func TestRun_DatasetInPlaceWithVal(t *testing.T) {
	fsys := afero.NewMemMapFs()
	catDog(t, fsys, "/data")

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.Dataset = true
	cfg.TestSize = intp(2)
	cfg.ValSize = intp(2)
	log, _, _ := newTestLogger(t, &cfg)

	stats, err := Run(context.Background(), fsys, &cfg, log, rand.New(rand.NewPCG(7, 11)))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Test)
	assert.Equal(t, 2, stats.Val)
	assert.Equal(t, 6, stats.Train)
	assert.Equal(t, 2, stats.Removed)
	assert.Equal(t, []string{"test", "train", "val"}, names(t, fsys, "/data"), "root holds only the split dirs")

	all := filesUnder(t, fsys, "/data")
	require.Len(t, all, 10)
	seen := make(map[string]bool)
	for _, rel := range all {
		parts := strings.Split(rel, "/")
		require.Len(t, parts, 3, rel)
		class, name := parts[1], parts[2]
		assert.Equal(t, class[0], name[0], "%s keeps its class label", rel)
		assert.False(t, seen[name], "%s placed twice", name)
		seen[name] = true
	}
}

func TestRun_CopyModeLeavesSources(t *testing.T) {
	fsys := afero.NewMemMapFs()
	catDog(t, fsys, "/in")

	cfg := config.DefaultConfig()
	cfg.InputDir = "/in"
	cfg.OutputDir = "/out"
	cfg.Dataset = true
	cfg.TestSize = intp(3)
	log, _, _ := newTestLogger(t, &cfg)

	stats, err := Run(context.Background(), fsys, &cfg, log, identity{})
	require.NoError(t, err)
	assert.Equal(t, int64(60), stats.Bytes)

	assert.Len(t, filesUnder(t, fsys, "/in"), 10, "copy mode must not touch the input")
	assert.Equal(t, []string{"test", "train"}, names(t, fsys, "/out"))
	assert.Equal(t, []string{"test/cat/c0.jpg", "test/cat/c1.jpg", "test/cat/c2.jpg"},
		filesUnder(t, fsys, "/out")[:3])
	assert.Len(t, filesUnder(t, fsys, "/out"), 10)
	assert.Equal(t, []string{"cat"}, names(t, fsys, "/out/test"), "only classes that received files")
}

func TestRun_ZeroValQuotaCreatesEmptyValDir(t *testing.T) {
	fsys := afero.NewMemMapFs()
	flatInput(t, fsys, "/data", 4)

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.ValSize = intp(0)
	log, _, _ := newTestLogger(t, &cfg)

	_, err := Run(context.Background(), fsys, &cfg, log, identity{})
	require.NoError(t, err)
	assert.Equal(t, []string{"test", "train", "val"}, names(t, fsys, "/data"))
	assert.Empty(t, names(t, fsys, "/data/val"))
	assert.Empty(t, names(t, fsys, "/data/test"), "floor(4 * 20%) is 0")
}

func TestRun_QuotaExceedsFilesFailsBeforeMutation(t *testing.T) {
	fsys := afero.NewMemMapFs()
	flatInput(t, fsys, "/data", 10)

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.TestSize = intp(15)
	log, _, _ := newTestLogger(t, &cfg)

	_, err := Run(context.Background(), fsys, &cfg, log, identity{})
	var cfgErr *planner.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, 15, cfgErr.Test)
	assert.Equal(t, 10, cfgErr.Total)
	assert.Len(t, names(t, fsys, "/data"), 10)
	for _, n := range names(t, fsys, "/data") {
		assert.NotContains(t, []string{"test", "train", "val"}, n)
	}
}

func TestRun_DryRunChangesNothing(t *testing.T) {
	fsys := afero.NewMemMapFs()
	catDog(t, fsys, "/data")

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.Dataset = true
	cfg.DryRun = true
	cfg.ValSize = intp(1)
	log, out, _ := newTestLogger(t, &cfg)

	stats, err := Run(context.Background(), fsys, &cfg, log, identity{})
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Placed())
	assert.Equal(t, 2, stats.Removed, "cat and dog would be removed")
	assert.Equal(t, []string{"cat", "dog"}, names(t, fsys, "/data"))
	assert.Len(t, filesUnder(t, fsys, "/data"), 10)
	assert.Contains(t, out.String(), "move /data/cat/c0.jpg -> /data/test/cat/c0.jpg")
}

func TestRun_InPlaceFlatLeavesNothingBehind(t *testing.T) {
	fsys := afero.NewMemMapFs()
	flatInput(t, fsys, "/data", 7)

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.TestSize = intp(3)
	cfg.ValSize = intp(1)
	log, _, _ := newTestLogger(t, &cfg)

	_, err := Run(context.Background(), fsys, &cfg, log, identity{})
	require.NoError(t, err)
	assert.Equal(t, []string{"test", "train", "val"}, names(t, fsys, "/data"))
	assert.Len(t, filesUnder(t, fsys, "/data"), 7)
}

func TestRun_ViolationsAreSkipped(t *testing.T) {
	fsys := afero.NewMemMapFs()
	catDog(t, fsys, "/data")
	touch(t, fsys, "/data/stray.txt")
	touch(t, fsys, "/data/cat/nested/deep.jpg")
	require.NoError(t, fsys.MkdirAll("/data/train", 0o755))

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.Dataset = true
	log, _, errOut := newTestLogger(t, &cfg)

	stats, err := Run(context.Background(), fsys, &cfg, log, identity{})
	assert.Equal(t, 3, stats.Violations)
	assert.Contains(t, errOut.String(), "stray.txt")
	assert.Contains(t, errOut.String(), "/data/cat/nested")
	assert.Contains(t, errOut.String(), "/data/train: split output directory")

	// The stray file is a non-directory leftover at the root.
	assert.True(t, errors.Is(err, materialize.ErrNotDirectory), "got %v", err)
	assert.Equal(t, 10, stats.Placed())
}

func TestRun_ExcludedFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	catDog(t, fsys, "/in")
	touch(t, fsys, "/in/cat/.DS_Store")

	cfg := config.DefaultConfig()
	cfg.InputDir = "/in"
	cfg.OutputDir = "/out"
	cfg.Dataset = true
	cfg.Excludes = []string{"**/.DS_Store"}
	log, _, _ := newTestLogger(t, &cfg)

	stats, err := Run(context.Background(), fsys, &cfg, log, identity{})
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 1, stats.Excluded)
	assert.Zero(t, stats.Violations)
}

func TestRun_CancelledContext(t *testing.T) {
	fsys := afero.NewMemMapFs()
	flatInput(t, fsys, "/data", 3)

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	log, _, _ := newTestLogger(t, &cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := Run(ctx, fsys, &cfg, log, identity{})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Zero(t, stats.Placed())
}

func TestRun_ExistingDestinationIsFatal(t *testing.T) {
	fsys := afero.NewMemMapFs()
	flatInput(t, fsys, "/in", 5)
	touch(t, fsys, "/out/test/f00.txt")

	cfg := config.DefaultConfig()
	cfg.InputDir = "/in"
	cfg.OutputDir = "/out"
	cfg.TestSize = intp(1)
	log, _, _ := newTestLogger(t, &cfg)

	_, err := Run(context.Background(), fsys, &cfg, log, identity{})
	assert.True(t, errors.Is(err, materialize.ErrDestinationExists), "got %v", err)
}

func TestRun_OsFsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	fsys := afero.NewOsFs()
	catDog(t, fsys, in)

	cfg := config.DefaultConfig()
	cfg.InputDir = in
	cfg.OutputDir = out
	cfg.Dataset = true
	cfg.TestSize = intp(2)
	cfg.ValSize = intp(2)
	log, _, _ := newTestLogger(t, &cfg)

	stats, err := Run(context.Background(), fsys, &cfg, log, planner.RandomShuffler{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Test)
	assert.Equal(t, 2, stats.Val)
	assert.Equal(t, 6, stats.Train)
	assert.Equal(t, []string{"test", "train", "val"}, names(t, fsys, out))
	assert.Len(t, filesUnder(t, fsys, out), 10)
	assert.Len(t, filesUnder(t, fsys, in), 10)
}

func TestAnalyze(t *testing.T) {
	fsys := afero.NewMemMapFs()
	catDog(t, fsys, "/data")
	touch(t, fsys, "/data/bird/b0.jpg")

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.Dataset = true
	cfg.ValSize = intp(1)
	log, out, _ := newTestLogger(t, &cfg)

	var table bytes.Buffer
	require.NoError(t, Analyze(fsys, &cfg, log, &table))

	text := table.String()
	assert.Contains(t, text, "Class")
	assert.Contains(t, text, "45.5%")
	assert.Contains(t, text, "bird")
	assert.Contains(t, out.String(), "test 2, val 1, train 8")
	assert.Len(t, filesUnder(t, fsys, "/data"), 11, "analyze never touches files")
}

func TestAnalyze_QuotaTooLarge(t *testing.T) {
	fsys := afero.NewMemMapFs()
	flatInput(t, fsys, "/data", 3)

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.TestSize = intp(4)
	log, _, _ := newTestLogger(t, &cfg)

	var table bytes.Buffer
	err := Analyze(fsys, &cfg, log, &table)
	var cfgErr *planner.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Contains(t, table.String(), "(unlabeled)")
}

func TestComputeStatsAndClassify(t *testing.T) {
	stats := computeStats([]float64{10, 11, 12, 13, 100})
	require.True(t, stats.valid)
	assert.Equal(t, "", stats.classify(12))
	assert.Equal(t, "extreme", stats.classify(100))

	assert.False(t, computeStats([]float64{1, 2, 3}).valid, "fewer than four classes")
	assert.False(t, computeStats([]float64{5, 5, 5, 5}).valid, "zero spread")
}

func TestBuildClassRows(t *testing.T) {
	rows := buildClassRows([]dataset.FileEntry{
		{Path: "/d/cat/1", Class: "cat", Size: 10},
		{Path: "/d/dog/1", Class: "dog", Size: 1},
		{Path: "/d/dog/2", Class: "dog", Size: 2},
		{Path: "/d/eel/1", Class: "eel", Size: 4},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, classRow{Class: "dog", Files: 2, Bytes: 3}, rows[0])
	assert.Equal(t, "cat", rows[1].Class, "ties keep first-seen order")
	assert.Equal(t, "eel", rows[2].Class)
}

func TestRun_CopyIntoParentKeepsInput(t *testing.T) {
	fsys := afero.NewMemMapFs()
	catDog(t, fsys, "/work/raw")
	touch(t, fsys, "/work/notes/readme.txt")

	cfg := config.DefaultConfig()
	cfg.InputDir = "/work/raw"
	cfg.OutputDir = "/work"
	cfg.Dataset = true
	log, _, errOut := newTestLogger(t, &cfg)

	stats, err := Run(context.Background(), fsys, &cfg, log, identity{})
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Placed())
	assert.Equal(t, 1, stats.Removed, "only the unrelated directory goes")
	assert.Len(t, filesUnder(t, fsys, "/work/raw"), 10, "copy mode must not touch the input")
	assert.Equal(t, []string{"raw", "test", "train"}, names(t, fsys, "/work"))
	assert.Contains(t, errOut.String(), "holds the input directory")
}

func TestRun_OsFsCopyIntoParentKeepsInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw")
	fsys := afero.NewOsFs()
	catDog(t, fsys, in)

	cfg := config.DefaultConfig()
	cfg.InputDir = in
	cfg.OutputDir = dir
	cfg.Dataset = true
	log, _, _ := newTestLogger(t, &cfg)

	_, err := Run(context.Background(), fsys, &cfg, log, planner.RandomShuffler{})
	require.NoError(t, err)
	assert.Len(t, filesUnder(t, fsys, in), 10)
	assert.Len(t, filesUnder(t, fsys, filepath.Join(dir, "test")), 2)
}

func TestInputChild(t *testing.T) {
	cases := []struct {
		name, input, output string
		want                string
		ok                  bool
	}{
		{"in-place", "/work", "", "", false},
		{"sibling", "/in", "/out", "", false},
		{"output below input", "/in", "/in/out", "", false},
		{"direct child", "/work/raw", "/work", "raw", true},
		{"nested", "/work/a/b/raw", "/work", "a", true},
		{"dotted sibling name", "/work/..raw", "/work", "..raw", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.InputDir = tc.input
			cfg.OutputDir = tc.output
			got, ok := inputChild(&cfg, cfg.ResolutionRoot())
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAnalyze_DiscoveryFailureIsLogged(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.InputDir = "/missing"
	cfg.Dataset = true
	log, _, errOut := newTestLogger(t, &cfg)

	var table bytes.Buffer
	err := Analyze(afero.NewMemMapFs(), &cfg, log, &table)
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "File discovery failed")
	assert.Empty(t, table.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "cat", truncate("cat", 5))
	assert.Equal(t, "abcde", truncate("abcde", 5))
	assert.Equal(t, "abcd…", truncate("abcdef", 5))
	assert.Equal(t, "日本語の…", truncate("日本語のクラス", 5))
}

func TestAnalyze_LongMultibyteClassName(t *testing.T) {
	fsys := afero.NewMemMapFs()
	long := strings.Repeat("é", 45)
	touch(t, fsys, filepath.Join("/data", long, "1.jpg"))
	touch(t, fsys, "/data/cat/1.jpg")

	cfg := config.DefaultConfig()
	cfg.InputDir = "/data"
	cfg.Dataset = true
	log, _, _ := newTestLogger(t, &cfg)

	var table bytes.Buffer
	require.NoError(t, Analyze(fsys, &cfg, log, &table))
	assert.True(t, utf8.ValidString(table.String()))
	assert.Contains(t, table.String(), strings.Repeat("é", 39)+"…")
	assert.NotContains(t, table.String(), strings.Repeat("é", 40))
}
