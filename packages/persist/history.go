package persist

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
)

// DefaultRedactedHeaders are replaced by placeholders when redaction is on
var DefaultRedactedHeaders = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key", "Api-Key"}

// ExchangeDoc is the persisted form of one exchange.
type ExchangeDoc struct {
	ID               string      `json:"id,omitempty"`
	Timestamp        string      `json:"timestamp"`
	Request          RequestDoc  `json:"request"`
	Response         ResponseDoc `json:"response"`
	CSRFTokenUpdated bool        `json:"csrf_token_updated"`
}

type RequestDoc struct {
	URL         string            `json:"url"`
	Port        *int              `json:"port"`
	Path        string            `json:"path"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Cookies     map[string]string `json:"cookies"`
	Payload     any               `json:"payload"`
	PayloadKind string            `json:"payload_kind"`
}

// ResponseDoc holds the body according to ResponseKind: the decoded value
// for json, a string for html and text, base64 for binary and unknown.
type ResponseDoc struct {
	StatusCode   int               `json:"status_code"`
	ElapsedTime  float64           `json:"elapsed_time"`
	ResponseKind string            `json:"response_kind"`
	Body         any               `json:"body"`
	RawHeaders   map[string]string `json:"raw_headers"`
}

type historyOptions struct {
	redact []string
}

// HistoryOption configures SaveHistory.
type HistoryOption func(*historyOptions)

// WithRedaction replaces the values of the named headers, or of
// DefaultRedactedHeaders when none are given, with {{NAME}} placeholders.
func WithRedaction(headers ...string) HistoryOption {
	return func(o *historyOptions) {
		if len(headers) == 0 {
			headers = DefaultRedactedHeaders
		}
		o.redact = headers
	}
}

// EncodeExchange converts ex to its document form.
func EncodeExchange(ex *exchange.Exchange) ExchangeDoc {
	doc := ExchangeDoc{
		ID:        ex.ID,
		Timestamp: ex.Stamp(),
		Request: RequestDoc{
			URL:         ex.Request.URL,
			Path:        ex.Request.Path,
			Method:      ex.Request.Method,
			Headers:     copyStrings(ex.Request.Headers),
			Cookies:     copyStrings(ex.Request.Cookies),
			Payload:     state.CopyValue(ex.Request.Payload),
			PayloadKind: string(ex.Request.PayloadKind),
		},
		Response: ResponseDoc{
			StatusCode:   ex.Response.StatusCode,
			ElapsedTime:  ex.Response.ElapsedSeconds(),
			ResponseKind: string(ex.Response.Kind()),
			RawHeaders:   copyStrings(ex.Response.Headers),
		},
		CSRFTokenUpdated: ex.CSRFTokenUpdated,
	}
	if ex.Request.Port > 0 {
		p := ex.Request.Port
		doc.Request.Port = &p
	}

	body := ex.Response.Body
	switch body.Kind {
	case exchange.KindJSON:
		doc.Response.Body = state.CopyValue(body.JSON)
	case exchange.KindHTML, exchange.KindText:
		doc.Response.Body = body.Text
	default:
		doc.Response.Body = base64.StdEncoding.EncodeToString(body.Raw)
	}
	return doc
}

// DecodeExchange rebuilds an exchange from its document form.
func DecodeExchange(doc ExchangeDoc) (*exchange.Exchange, error) {
	ts, err := exchange.ParseStamp(doc.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("timestamp %q: %w", doc.Timestamp, err)
	}

	ex := &exchange.Exchange{
		ID:        doc.ID,
		Timestamp: ts,
		Request: exchange.Request{
			URL:         doc.Request.URL,
			Path:        doc.Request.Path,
			Method:      doc.Request.Method,
			Headers:     copyStrings(doc.Request.Headers),
			Cookies:     copyStrings(doc.Request.Cookies),
			Payload:     doc.Request.Payload,
			PayloadKind: state.Mode(doc.Request.PayloadKind),
		},
		Response: exchange.Response{
			StatusCode: doc.Response.StatusCode,
			Elapsed:    time.Duration(math.Round(doc.Response.ElapsedTime * float64(time.Second))),
			Headers:    copyStrings(doc.Response.RawHeaders),
		},
		CSRFTokenUpdated: doc.CSRFTokenUpdated,
	}
	if doc.Request.Port != nil {
		ex.Request.Port = *doc.Request.Port
	}

	body, err := decodeBody(exchange.ParseKind(doc.Response.ResponseKind), doc.Response.Body)
	if err != nil {
		return nil, err
	}
	ex.Response.Body = body
	return ex, nil
}

func decodeBody(kind exchange.Kind, v any) (exchange.Body, error) {
	body := exchange.Body{Kind: kind}
	switch kind {
	case exchange.KindJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return body, fmt.Errorf("json body: %w", err)
		}
		body.JSON = v
		body.Raw = raw
	case exchange.KindHTML, exchange.KindText:
		s, _ := v.(string)
		body.Text = s
		body.Raw = []byte(s)
	default:
		s, _ := v.(string)
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return body, fmt.Errorf("%s body: %w", kind, err)
		}
		body.Raw = raw
	}
	return body, nil
}

// SaveHistory writes exchanges to path as a JSON array in the given order.
func SaveHistory(path string, exchanges []*exchange.Exchange, opts ...HistoryOption) error {
	o := historyOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	docs := make([]ExchangeDoc, 0, len(exchanges))
	for _, ex := range exchanges {
		doc := EncodeExchange(ex)
		if len(o.redact) > 0 {
			doc.Request.Headers = redactHeaders(doc.Request.Headers, o.redact)
			doc.Response.RawHeaders = redactHeaders(doc.Response.RawHeaders, o.redact)
		}
		docs = append(docs, doc)
	}
	return writeJSON("save history", path, docs, "  ")
}

// LoadHistory reads a file written by SaveHistory.
func LoadHistory(path string) ([]*exchange.Exchange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap("load history", path, err)
	}
	var docs []ExchangeDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, wrap("load history", path, err)
	}

	out := make([]*exchange.Exchange, 0, len(docs))
	for i, doc := range docs {
		ex, err := DecodeExchange(doc)
		if err != nil {
			return nil, wrap("load history", path, fmt.Errorf("entry %d: %w", i, err))
		}
		out = append(out, ex)
	}
	return out, nil
}

func redactHeaders(h map[string]string, names []string) map[string]string {
	out := make(map[string]string, len(h))
	for key, value := range h {
		out[key] = value
		for _, s := range names {
			if strings.EqualFold(key, s) {
				out[key] = "{{" + strings.ToUpper(strings.ReplaceAll(key, "-", "_")) + "}}"
				break
			}
		}
	}
	return out
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
