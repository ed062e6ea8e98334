package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

// JSONFormatter writes exchanges as history documents
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

// FormatExchange writes a single exchange document.
func (f *JSONFormatter) FormatExchange(ex *exchange.Exchange) error {
	return f.encode(persist.EncodeExchange(ex))
}

// FormatHistory writes exchanges as a JSON array.
func (f *JSONFormatter) FormatHistory(exchanges []*exchange.Exchange) error {
	docs := make([]persist.ExchangeDoc, 0, len(exchanges))
	for _, ex := range exchanges {
		docs = append(docs, persist.EncodeExchange(ex))
	}
	return f.encode(docs)
}

// FormatValues writes captured values as an object.
func (f *JSONFormatter) FormatValues(values map[string]any) error {
	if values == nil {
		values = map[string]any{}
	}
	return f.encode(values)
}
