// Package state holds the mutable request state of an httpcraft client.
//
// It keeps three independent maps that outlive any single request:
//   - headers sent with every request
//   - cookies sent with every request
//   - the stored payload, plus the mode (json or form) it is sent in
//
// Single-key lookups never fail: a missing key yields NoEntry and ok=false.
package state
