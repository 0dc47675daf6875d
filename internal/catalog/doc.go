// Package catalog owns the static CCAM reference table.
//
// Ownership boundary:
// - act shape and categories
// - table loading (embedded or override file)
// - code lookup and keyword search
//
// The table is read-only once loaded and safe for concurrent use.
package catalog
