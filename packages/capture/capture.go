package capture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
)

// ErrInvalidCapture is returned by ParseSpec for malformed specs
var ErrInvalidCapture = errors.New("invalid capture")

// Source selects the part of an exchange a value is read from.
type Source string

const (
	SourceBody     Source = "body"
	SourceHeader   Source = "header"
	SourceStatus   Source = "status"
	SourceDuration Source = "duration"
	SourceCookie   Source = "cookie"
)

// Capture names one value to extract.
type Capture struct {
	Name   string
	Source Source
	Path   string
}

// ParseSpec parses "name=source:path" or "name=source". The path is a
// gjson path for body, a header name for header and a cookie name for
// cookie.
func ParseSpec(spec string) (*Capture, error) {
	name, rest, ok := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: %q (want name=source:path)", ErrInvalidCapture, spec)
	}
	src, path, _ := strings.Cut(rest, ":")
	c := &Capture{Name: name, Source: Source(strings.ToLower(strings.TrimSpace(src))), Path: strings.TrimSpace(path)}

	switch c.Source {
	case SourceBody, SourceStatus, SourceDuration:
	case SourceHeader, SourceCookie:
		if c.Path == "" {
			return nil, fmt.Errorf("%w: %q needs a name after %s:", ErrInvalidCapture, spec, c.Source)
		}
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidCapture, src)
	}
	return c, nil
}

type Extractor struct {
	ex       *exchange.Exchange
	bodyJSON gjson.Result
}

func NewExtractor(ex *exchange.Exchange) *Extractor {
	e := &Extractor{
		ex: ex,
	}
	if ex.Response.Kind() == exchange.KindJSON {
		e.bodyJSON = gjson.ParseBytes(ex.Response.Body.Raw)
	}
	return e
}

// Extract reads one value. ok is false when the value is absent.
func (e *Extractor) Extract(source Source, path string) (any, bool) {
	switch source {
	case SourceBody:
		return e.extractFromBody(path)
	case SourceHeader:
		return e.extractFromHeader(path)
	case SourceStatus:
		return e.ex.Response.StatusCode, true
	case SourceDuration:
		return e.ex.Response.Elapsed.Milliseconds(), true
	case SourceCookie:
		v, ok := e.ex.Request.Cookies[path]
		return v, ok
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.ex.Response.Body.String(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	for k, v := range e.ex.Response.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Extract reads a single value from ex.
func Extract(ex *exchange.Exchange, source Source, path string) (any, bool) {
	return NewExtractor(ex).Extract(source, path)
}

// ExtractAll returns the captured values by name, skipping absent ones.
func ExtractAll(ex *exchange.Exchange, captures []*Capture) map[string]any {
	extractor := NewExtractor(ex)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c.Source, c.Path); ok {
			results[c.Name] = value
		}
	}

	return results
}
