package planner

import "github.com/backmassage/dsplit/internal/config"

// Quotas are the optional absolute sizes requested for test and val.
// A nil pointer means "not supplied".
type Quotas struct {
	Test *int
	Val  *int
}

// QuotasFrom extracts the quotas from cfg.
func QuotasFrom(cfg *config.Config) Quotas {
	return Quotas{Test: cfg.TestSize, Val: cfg.ValSize}
}

// DefaultTestSize is floor(total * 20%), computed in integers.
func DefaultTestSize(total int) int {
	return total * config.DefaultTestPercent / 100
}

// BuildPlan resolves the quotas against total and returns the three ranges.
//
// Flow:
//  1. test = quota, else floor(total * 0.2)
//  2. val = quota, else 0
//  3. reject negative sizes and test+val > total with a *ConfigError
//  4. slice [0,test) test, [test,test+val) val, [test+val,total) train
func BuildPlan(total int, q Quotas) (*Plan, error) {
	plan := &Plan{Total: total, HasVal: q.Val != nil}

	test := DefaultTestSize(total)
	plan.TestDefaulted = true
	if q.Test != nil {
		test = *q.Test
		plan.TestDefaulted = false
	}
	val := 0
	if q.Val != nil {
		val = *q.Val
	}

	switch {
	case test < 0:
		return nil, &ConfigError{Test: test, Val: val, Total: total, Reason: "test size must not be negative"}
	case val < 0:
		return nil, &ConfigError{Test: test, Val: val, Total: total, Reason: "validation size must not be negative"}
	case test+val > total:
		return nil, &ConfigError{Test: test, Val: val, Total: total, Reason: "test and validation sizes exceed the number of files"}
	}

	plan.Test = Range{0, test}
	plan.Val = Range{test, test + val}
	plan.Train = Range{test + val, total}
	return plan, nil
}
