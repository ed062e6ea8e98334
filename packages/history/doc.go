// Package history keeps the ordered log of completed exchanges.
//
// Index i always refers to the i-th exchange appended since the last
// Clear. Entries are never removed individually.
package history
