package exchange

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError reports a body that claimed to be JSON but did not parse.
// Classify absorbs it into a text body; it is returned for logging only.
type DecodeError struct {
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s body: %v", e.ContentType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// KindOf maps a content type to a Kind. Matching is case-insensitive and
// ordered: json, html, any text type, image or octet-stream, else unknown.
func KindOf(contentType string) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/json"):
		return KindJSON
	case strings.Contains(ct, "text/html"):
		return KindHTML
	case strings.Contains(ct, "text"):
		return KindText
	case strings.Contains(ct, "image"), strings.Contains(ct, "application/octet-stream"):
		return KindBinary
	default:
		return KindUnknown
	}
}

// Classify decodes raw according to contentType. The returned Body is
// always usable. A non-nil error is a *DecodeError and means a JSON body
// was degraded to text.
func Classify(contentType string, raw []byte) (Body, error) {
	body := Body{Kind: KindOf(contentType), Raw: raw}

	switch body.Kind {
	case KindJSON:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			body.Kind = KindText
			body.Text = string(raw)
			return body, &DecodeError{ContentType: contentType, Err: err}
		}
		body.JSON = v
	case KindHTML, KindText:
		body.Text = string(raw)
	}

	return body, nil
}
