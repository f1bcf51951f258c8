// Package naming builds destination paths for split files and keeps them
// unique within a run.
//
//   - Layout: category and class directory construction (outputpath.go)
//   - CollisionResolver, Disambiguate: in-run duplicate handling with an
//     owner map and per-path counter (collision.go)
package naming
