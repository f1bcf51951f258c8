// Package planner decides which shuffled file lands in which split and
// builds the Plan the pipeline consumes.
//
//   - Plan, Range, Category, ConfigError (types.go)
//   - BuildPlan: quota resolution and disjoint slicing (planner.go)
//   - Shuffler, RandomShuffler, Shuffle: the single source of randomness (shuffle.go)
package planner
