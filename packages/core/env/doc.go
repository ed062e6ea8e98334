// Package env expands {{...}} placeholders in request state values.
//
// A placeholder is one of:
//   - {{name}}: a variable from a .env file, HTTPCRAFT_VAR_* environment
//     variables or values set by the caller
//   - {{$NAME}}: the process environment variable NAME
//   - {{fn(args)}}: a builtin generator such as uuid() or timestamp()
//
// Unresolved placeholders are left in place. History files written with
// header redaction use the {{NAME}} form, so a .env file holding those
// names fills them back in.
package env
