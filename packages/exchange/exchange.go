package exchange

import (
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
)

// TimestampLayout is the millisecond precision layout of Exchange.Stamp
const TimestampLayout = "2006-01-02 15:04:05.000"

// Kind classifies a response body.
type Kind string

const (
	KindJSON    Kind = "json"
	KindHTML    Kind = "html"
	KindText    Kind = "text"
	KindBinary  Kind = "binary"
	KindUnknown Kind = "unknown"
)

func (k Kind) String() string {
	return string(k)
}

// IsText reports whether bodies of this kind are stored as UTF-8 text.
func (k Kind) IsText() bool {
	return k == KindJSON || k == KindHTML || k == KindText
}

// ParseKind maps a stored kind name back to a Kind. Unrecognized names
// yield KindUnknown.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(s)); k {
	case KindJSON, KindHTML, KindText, KindBinary:
		return k
	default:
		return KindUnknown
	}
}

// Body is a decoded response body. JSON is set for KindJSON, Text for
// KindHTML and KindText. Raw always holds the bytes as received.
type Body struct {
	Kind Kind
	JSON any
	Text string
	Raw  []byte
}

// Value returns the decoded value selected by Kind.
func (b Body) Value() any {
	switch b.Kind {
	case KindJSON:
		return b.JSON
	case KindHTML, KindText:
		return b.Text
	default:
		return b.Raw
	}
}

// String returns the body as text. Binary bodies are decoded leniently.
func (b Body) String() string {
	switch b.Kind {
	case KindHTML, KindText:
		return b.Text
	default:
		return string(b.Raw)
	}
}

func (b Body) Bytes() []byte {
	return b.Raw
}

func (b Body) Len() int {
	return len(b.Raw)
}

// Request is the request as it was sent.
type Request struct {
	// URL is the target base URL, scheme://host, without port
	URL     string
	Port    int
	Path    string
	Method  string
	Headers map[string]string
	Cookies map[string]string
	Payload any
	// PayloadKind is how Payload was transmitted
	PayloadKind state.Mode
}

func (r Request) WasJSON() bool {
	return r.PayloadKind == state.ModeJSON
}

func (r Request) WasForm() bool {
	return r.PayloadKind == state.ModeForm
}

// FullURL joins URL, Port and Path the way they were dispatched, minus any
// query string.
func (r Request) FullURL() string {
	u := r.URL
	if r.Port > 0 {
		u += ":" + strconv.Itoa(r.Port)
	}
	return u + "/" + strings.TrimLeft(r.Path, "/")
}

type Response struct {
	StatusCode int
	Elapsed    time.Duration
	Body       Body
	Headers    map[string]string
}

func (r Response) Kind() Kind {
	return r.Body.Kind
}

// ElapsedSeconds returns Elapsed as fractional seconds.
func (r Response) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}

func (r Response) ContentType() string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, "Content-Type") {
			return v
		}
	}
	return ""
}

// Exchange is one completed request/response pair. It is a snapshot:
// mutating client state afterwards never changes it.
type Exchange struct {
	ID               string
	Timestamp        time.Time
	Request          Request
	Response         Response
	CSRFTokenUpdated bool
}

// Clone returns a deep copy of e.
func (e *Exchange) Clone() *Exchange {
	if e == nil {
		return nil
	}
	out := *e
	out.Request.Headers = cloneStrings(e.Request.Headers)
	out.Request.Cookies = cloneStrings(e.Request.Cookies)
	out.Request.Payload = state.CopyValue(e.Request.Payload)
	out.Response.Headers = cloneStrings(e.Response.Headers)
	out.Response.Body.JSON = state.CopyValue(e.Response.Body.JSON)
	if e.Response.Body.Raw != nil {
		out.Response.Body.Raw = append([]byte(nil), e.Response.Body.Raw...)
	}
	return &out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Stamp formats Timestamp with TimestampLayout.
func (e *Exchange) Stamp() string {
	return e.Timestamp.Format(TimestampLayout)
}

// ParseStamp parses a timestamp written by Stamp in local time.
func ParseStamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}
