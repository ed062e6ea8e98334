package http

import (
	"strings"
	"time"
)

// Response is a reply read to the end. Repeated header values are joined
// with ", ".
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
	// Method and URL of the final request, after redirects
	Method string
	URL    string
	// SentHeaders are the headers of the request as dispatched
	SentHeaders map[string]string
}

// Header returns the response header named key, ignoring case.
func (r *Response) Header(key string) string {
	return lookup(r.Headers, key)
}

// SentHeader returns the dispatched request header named key, ignoring case.
func (r *Response) SentHeader(key string) string {
	return lookup(r.SentHeaders, key)
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Failed reports a 4xx or 5xx status.
func (r *Response) Failed() bool {
	return r.StatusCode >= 400
}

func lookup(h map[string]string, key string) string {
	if v, ok := h[key]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
