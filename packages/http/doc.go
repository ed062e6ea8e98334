// Package http is the transport used by httpcraft clients.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts and redirect handling
//   - A session cookie jar merged with explicit cookies
//   - JSON, form and query payload encoding
//   - Optional rate limiting
//   - Capture of the headers actually sent
package http
