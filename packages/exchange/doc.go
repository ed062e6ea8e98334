// Package exchange defines the immutable records produced by one
// request/response cycle and the classification of response bodies.
//
// A response body is a tagged variant: Kind says which field of Body
// carries the decoded value. Code that renders or saves a body switches on
// Kind and never inspects the dynamic type of the value.
package exchange
