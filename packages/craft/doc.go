// Package craft is the httpcraft exchange engine.
//
// A Client owns a target, the request state (headers, cookies, payload),
// a CSRF extractor and the history ledger. Each verb call builds a request
// from that state, dispatches it through the transport, classifies the
// reply, propagates any CSRF token into the cookies and records an
// immutable exchange.
//
//	c, err := craft.New("http://localhost:5000", craft.WithCSRF(csrf.ModeInput, ""))
//	ex, err := c.Get(ctx, "/form")
//	ex, err = c.Post(ctx, "/submit", craft.WithForm(map[string]any{"user": "admin"}))
//
// Calls block until the exchange is recorded. A Client serializes access
// to its state but is meant to be driven from one goroutine.
package craft
