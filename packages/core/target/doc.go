// Package target resolves where httpcraft sends requests.
//
// A Target keeps the scheme, host and optional port of the system under
// test and builds per-request URLs from a path, optionally overriding the
// port for a single call.
package target
