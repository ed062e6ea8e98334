// Package builtin provides the generator functions available in request
// placeholders.
//
// Available functions:
//   - uuid(): Random UUID v4
//   - now(): Current time in RFC 3339, UTC
//   - timestamp(), timestampMs(): Unix time in seconds or milliseconds
//   - date(layout): Current UTC date, 2006-01-02 by default
//   - randomInt(min, max): Random integer in [min, max]
//   - randomString(length): Random alphanumeric string
//   - base64(value), urlEncode(value), sha256(value): Encoders
//
// Functions are written as {{name(args)}} in header, cookie and payload
// values.
package builtin
