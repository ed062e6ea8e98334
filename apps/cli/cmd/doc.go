// Package cmd implements the httpcraft CLI commands using Cobra.
//
// Available commands:
//   - send: Build and send one request, then print the exchange
//   - history: List, show, export and clear archived exchanges
//   - import: Turn a curl command into a state file
//   - init: Write a starter settings file and state file
//   - version: Show httpcraft version information
//   - completion: Generate shell completion scripts
//
// Flags fall back to HTTPCRAFT_* environment variables.
package cmd
