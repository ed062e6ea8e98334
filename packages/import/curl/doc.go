// Package curl converts curl command lines into httpcraft state documents.
//
// Target, headers, cookies and a JSON or form payload are taken from the
// command; the method and path are returned alongside so the request can
// be sent with the loaded state.
package curl
