// Package csrf extracts anti-forgery tokens from HTML documents.
package csrf

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultField is the token field name used when none is configured.
const DefaultField = "csrf_token"

// ErrInvalidMode is returned for unknown extraction modes
var ErrInvalidMode = errors.New("invalid csrf mode")

// Mode selects where a token is looked up.
type Mode string

const (
	// ModeNone disables extraction
	ModeNone Mode = "none"
	// ModeInput reads the value of <input type="hidden" name=FIELD>
	ModeInput Mode = "input"
	// ModeMeta reads the content of <meta name=FIELD>
	ModeMeta Mode = "meta"
)

func (m Mode) Valid() bool {
	return m == ModeNone || m == ModeInput || m == ModeMeta
}

// ParseMode converts a mode name into a Mode. The empty string means none.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeNone, nil
	}
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q (must be none, input or meta)", ErrInvalidMode, s)
	}
	return m, nil
}

// Extractor finds a token in HTML according to its mode and field name.
type Extractor struct {
	mode  Mode
	field string
}

// New creates an Extractor. An empty field selects DefaultField and an
// invalid mode behaves as ModeNone.
func New(mode Mode, field string) *Extractor {
	if !mode.Valid() {
		mode = ModeNone
	}
	if field == "" {
		field = DefaultField
	}
	return &Extractor{mode: mode, field: field}
}

func (e *Extractor) Mode() Mode {
	return e.mode
}

func (e *Extractor) Field() string {
	return e.field
}

// Enabled reports whether the extractor looks for tokens at all.
func (e *Extractor) Enabled() bool {
	return e.mode != ModeNone
}

// Extract returns the token found in doc. ok is false when extraction is
// disabled, nothing matches, or the first matching element lacks the value
// attribute. Malformed markup is never an error.
func (e *Extractor) Extract(doc string) (token string, ok bool) {
	switch e.mode {
	case ModeInput:
		attrs, found := FindFirst(doc, "input", map[string]string{"type": "hidden", "name": e.field})
		if !found {
			return "", false
		}
		token, ok = attrs["value"]
		return token, ok
	case ModeMeta:
		attrs, found := FindFirst(doc, "meta", map[string]string{"name": e.field})
		if !found {
			return "", false
		}
		token, ok = attrs["content"]
		return token, ok
	default:
		return "", false
	}
}

// FindFirst returns the attributes of the first element named tag whose
// attributes include every pair in match. The type attribute is compared
// case-insensitively, all other values exactly.
func FindFirst(doc, tag string, match map[string]string) (map[string]string, bool) {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF, or a read error from a reader that cannot fail
			return nil, false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != tag {
				continue
			}
			attrs := make(map[string]string, len(tok.Attr))
			for _, a := range tok.Attr {
				if _, seen := attrs[a.Key]; !seen {
					attrs[a.Key] = a.Val
				}
			}
			if matches(attrs, match) {
				return attrs, true
			}
		}
	}
}

func matches(attrs, want map[string]string) bool {
	for k, v := range want {
		got, ok := attrs[k]
		if !ok {
			return false
		}
		if k == "type" {
			if !strings.EqualFold(got, v) {
				return false
			}
			continue
		}
		if got != v {
			return false
		}
	}
	return true
}
