package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrDuplicateSource is returned when one source path is resolved twice in a
// run. The planner's ranges are disjoint, so this means a planner bug.
var ErrDuplicateSource = errors.New("source file assigned to more than one split")

// CollisionResolver tracks, for one materialization run, which source paths
// have been placed and which destination paths they claimed. Distinct
// sources that ask for the same destination get "-N" suffixes. It is meant
// for sequential use and is not goroutine-safe.
type CollisionResolver struct {
	seen     map[string]bool   // source paths already resolved
	owners   map[string]string // destination path → source path that owns it
	counters map[string]int    // requested destination → next suffix
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		seen:     make(map[string]bool),
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the final destination for source. The first claim on
// requested keeps it unchanged; later claims by other sources get
// Disambiguate(requested, N) for the lowest unclaimed N ≥ 1.
func (cr *CollisionResolver) Resolve(source, requested string) (string, error) {
	if cr.seen[source] {
		return "", fmt.Errorf("%w: %s", ErrDuplicateSource, source)
	}
	cr.seen[source] = true

	if _, claimed := cr.owners[requested]; !claimed {
		cr.owners[requested] = source
		return requested, nil
	}

	counter := cr.counters[requested]
	if counter == 0 {
		counter = 1
	}
	for {
		candidate := Disambiguate(requested, counter)
		if _, claimed := cr.owners[candidate]; !claimed {
			cr.counters[requested] = counter + 1
			cr.owners[candidate] = source
			return candidate, nil
		}
		counter++
	}
}

// Disambiguate inserts "-n" before the final extension of path's base name,
// or appends it when the name has no '.': photo.jpg → photo-1.jpg,
// README → README-1, archive.tar.gz → archive.tar-1.gz.
func Disambiguate(path string, n int) string {
	dir, base := filepath.Split(path)
	suffix := fmt.Sprintf("-%d", n)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return dir + base[:i] + suffix + base[i:]
	}
	return dir + base + suffix
}
