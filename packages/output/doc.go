// Package output renders exchanges, history and configuration.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: the history document form of each exchange
package output
