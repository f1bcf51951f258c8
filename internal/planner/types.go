package planner

import "fmt"

// Category names a split bucket. The string value is also the directory name
// created under the resolution root.
type Category string

const (
	CategoryTest  Category = "test"
	CategoryVal   Category = "val"
	CategoryTrain Category = "train"
)

// Categories lists every bucket in processing order.
var Categories = []Category{CategoryTest, CategoryVal, CategoryTrain}

// Range is a half-open index range [Start, End) over the shuffled file list.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.End - r.Start }

// Plan holds three contiguous, disjoint ranges that together cover
// [0, Total) in the fixed order test, val, train. It is produced by
// BuildPlan and consumed by the pipeline to materialize each bucket.
type Plan struct {
	Total int
	Test  Range
	Val   Range
	Train Range

	// HasVal is true when a validation quota was supplied, even if zero.
	// Only then is a val/ directory created.
	HasVal bool
	// TestDefaulted is true when the test size came from the default percentage.
	TestDefaulted bool
}

// Range returns the index range for c.
func (p *Plan) Range(c Category) Range {
	switch c {
	case CategoryTest:
		return p.Test
	case CategoryVal:
		return p.Val
	default:
		return p.Train
	}
}

// Active returns the categories that get a directory, in processing order.
func (p *Plan) Active() []Category {
	if p.HasVal {
		return Categories
	}
	return []Category{CategoryTest, CategoryTrain}
}

// ConfigError reports a quota combination that cannot be satisfied by the
// files actually found. It is returned before anything is moved or copied.
type ConfigError struct {
	Test   int
	Val    int
	Total  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid split (test=%d, val=%d, files=%d): %s", e.Test, e.Val, e.Total, e.Reason)
}
