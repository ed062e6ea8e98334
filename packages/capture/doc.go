// Package capture extracts values from recorded exchanges.
//
// It supports capturing values from:
//   - Response body (gjson paths over JSON bodies, or the whole text)
//   - Response headers
//   - Response status code and duration
//   - Cookies sent with the request
package capture
