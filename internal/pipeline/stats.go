package pipeline

import "github.com/backmassage/dsplit/internal/planner"

// RunStats tracks aggregate counters and byte totals across a split run.
type RunStats struct {
	Total      int
	Current    int
	Test       int
	Val        int
	Train      int
	Bytes      int64
	Violations int
	Excluded   int
	Renamed    int
	Removed    int
}

// Placed returns the number of files placed (or planned, in dry-run) so far.
func (s *RunStats) Placed() int {
	return s.Test + s.Val + s.Train
}

func (s *RunStats) count(c planner.Category) {
	switch c {
	case planner.CategoryTest:
		s.Test++
	case planner.CategoryVal:
		s.Val++
	default:
		s.Train++
	}
}

// For returns the placed count for c.
func (s *RunStats) For(c planner.Category) int {
	switch c {
	case planner.CategoryTest:
		return s.Test
	case planner.CategoryVal:
		return s.Val
	default:
		return s.Train
	}
}
