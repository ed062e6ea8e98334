// Package persist reads and writes httpcraft state on disk.
//
// It covers four kinds of files:
//   - the client configuration document (JSON, or YAML by extension)
//   - single state slices: headers, cookies or payload
//   - the exchange history as a JSON array
//   - saved response bodies, with the extension inferred from the
//     content type, the response kind or the leading bytes
//
// Every failure is a *PersistenceError matching ErrPersistence.
package persist
