package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/tidwall/pretty"

	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
	"github.com/abdul-hamid-achik/httpcraft/packages/history"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

// DefaultTruncate is the number of body characters shown before cutting
const DefaultTruncate = 500

const (
	separator    = "------------------------------"
	emptyHistory = "[!] No request history available."
)

// truncate cuts s after max runes and marks the cut. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// indentJSON renders v as two-space indented JSON.
func indentJSON(v any) string {
	data, err := persist.MarshalIndent(v, "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func prettyJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	opts := &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: true}
	return strings.TrimRight(string(pretty.PrettyOptions(data, opts)), "\n")
}

// renderBody formats a body for display. JSON is pretty-printed, then JSON
// and text are cut at max. Binary content is summarized by size.
func renderBody(b exchange.Body, max int) string {
	switch b.Kind {
	case exchange.KindJSON:
		return truncate(prettyJSON(b.JSON), max)
	case exchange.KindHTML, exchange.KindText:
		return truncate(b.Text, max)
	default:
		if len(b.Raw) == 0 {
			return ""
		}
		return fmt.Sprintf("<%s body, %s>", b.Kind, humanize.Bytes(uint64(len(b.Raw))))
	}
}

func portLabel(port int) string {
	if port <= 0 {
		return "default"
	}
	return fmt.Sprintf("%d", port)
}

type ConsoleFormatter struct {
	writer   io.Writer
	noColor  bool
	truncate int

	bold   *color.Color
	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:   os.Stdout,
		truncate: DefaultTruncate,
		bold:     color.New(color.Bold),
		green:    color.New(color.FgGreen),
		red:      color.New(color.FgRed),
		yellow:   color.New(color.FgYellow),
		cyan:     color.New(color.FgCyan),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		for _, c := range []*color.Color{f.bold, f.green, f.red, f.yellow, f.cyan} {
			c.DisableColor()
		}
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithTruncate sets the body length limit. Zero shows whole bodies.
func WithTruncate(n int) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if n >= 0 {
			f.truncate = n
		}
	}
}

func (f *ConsoleFormatter) label(name string) string {
	return f.bold.Sprint(fmt.Sprintf("%-15s", name+":"))
}

func (f *ConsoleFormatter) status(code int) string {
	s := fmt.Sprintf("%d", code)
	switch {
	case code >= 500:
		return f.red.Sprint(s)
	case code >= 400:
		return f.yellow.Sprint(s)
	case code >= 200 && code < 300:
		return f.green.Sprint(s)
	default:
		return f.cyan.Sprint(s)
	}
}

// FormatExchange prints one exchange as a multi-field block.
func (f *ConsoleFormatter) FormatExchange(ex *exchange.Exchange) {
	req := ex.Request
	res := ex.Response
	w := f.writer

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "%s%s\n", f.label("Timestamp"), ex.Stamp())
	fmt.Fprintf(w, "%s%s\n", f.label("Base URL"), req.URL)
	fmt.Fprintf(w, "%s%s\n", f.label("Port"), portLabel(req.Port))
	fmt.Fprintf(w, "%s%s\n", f.label("Path"), req.Path)
	fmt.Fprintf(w, "%s%s\n", f.label("Method"), req.Method)
	fmt.Fprintf(w, "%s%s\n", f.label("Status Code"), f.status(res.StatusCode))
	fmt.Fprintf(w, "%s%s\n", f.label("Response Type"), res.Kind())
	fmt.Fprintf(w, "%s%s\n", f.label("Payload Mode"), req.PayloadKind)
	fmt.Fprintf(w, "%s%t\n", f.label("CSRF Updated"), ex.CSRFTokenUpdated)
	fmt.Fprintln(w, f.bold.Sprint("Headers:"))
	fmt.Fprintln(w, indentJSON(req.Headers))
	fmt.Fprintln(w, f.bold.Sprint("Cookies:"))
	fmt.Fprintln(w, indentJSON(req.Cookies))
	fmt.Fprintln(w, f.bold.Sprint("Payload:"))
	fmt.Fprintln(w, indentJSON(req.Payload))
	fmt.Fprintf(w, "%s%s\n", f.label("Elapsed Time"), f.cyan.Sprintf("%.2f ms", float64(res.Elapsed.Microseconds())/1000))
	fmt.Fprintln(w, f.bold.Sprint("Response Body:"))
	fmt.Fprintln(w, renderBody(res.Body, f.truncate))
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w)
}

// FormatHistory prints every exchange prefixed by its index.
func (f *ConsoleFormatter) FormatHistory(exchanges []*exchange.Exchange) {
	if len(exchanges) == 0 {
		fmt.Fprintln(f.writer, f.yellow.Sprint(emptyHistory))
		return
	}
	for i, ex := range exchanges {
		fmt.Fprintf(f.writer, "[%d]\n", i)
		f.FormatExchange(ex)
	}
}

// FormatConfig prints the client configuration.
func (f *ConsoleFormatter) FormatConfig(cfg persist.Config) {
	w := f.writer
	port := 0
	if cfg.Port != nil {
		port = *cfg.Port
	}

	fmt.Fprintln(w, f.bold.Sprint("--- httpcraft configuration ---"))
	fmt.Fprintf(w, "%s%s\n", f.label("Target URL"), cfg.BaseURL)
	fmt.Fprintf(w, "%s%s\n", f.label("Host"), cfg.Host)
	fmt.Fprintf(w, "%s%s\n", f.label("Port"), portLabel(port))
	fmt.Fprintf(w, "%s%s\n", f.label("CSRF Mode"), cfg.CSRFMode)
	fmt.Fprintf(w, "%s%s\n", f.label("CSRF Field"), cfg.CSRFField)
	fmt.Fprintln(w, f.bold.Sprint("Headers:"))
	fmt.Fprintln(w, indentJSON(cfg.Headers))
	fmt.Fprintln(w, f.bold.Sprint("Cookies:"))
	fmt.Fprintln(w, indentJSON(cfg.Cookies))
	fmt.Fprintf(w, "%s%s\n", f.label("Payload Mode"), cfg.PayloadMode)
	fmt.Fprintln(w, f.bold.Sprint("Payload:"))
	fmt.Fprintln(w, indentJSON(cfg.Payload))
}

// FormatStats prints latency percentiles and status code counts.
func (f *ConsoleFormatter) FormatStats(s history.Stats) {
	w := f.writer
	fmt.Fprintf(w, "%s%d\n", f.label("Requests"), s.Count)
	if s.Count == 0 {
		return
	}
	fmt.Fprintf(w, "%s%.1f%%\n", f.label("Success"), s.SuccessRate())
	fmt.Fprintf(w, "%s%s\n", f.label("Latency"), f.cyan.Sprintf("min %v  mean %v  max %v", s.Min, s.Mean, s.Max))
	fmt.Fprintf(w, "%s%s\n", f.label("Percentiles"), f.cyan.Sprintf("p50 %v  p95 %v  p99 %v", s.P50, s.P95, s.P99))

	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s x%d", f.status(code), s.StatusCodes[code]))
	}
	fmt.Fprintf(w, "%s%s\n", f.label("Status Codes"), strings.Join(parts, ", "))
	if s.CSRFUpdates > 0 {
		fmt.Fprintf(w, "%s%d\n", f.label("CSRF Updates"), s.CSRFUpdates)
	}
}

// FormatValues prints captured name=value pairs sorted by name.
func (f *ConsoleFormatter) FormatValues(values map[string]any) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := values[name]
		if s, ok := v.(string); ok {
			fmt.Fprintf(f.writer, "%s = %s\n", f.cyan.Sprint(name), s)
			continue
		}
		fmt.Fprintf(f.writer, "%s = %s\n", f.cyan.Sprint(name), indentJSON(v))
	}
}

func (f *ConsoleFormatter) FormatSuccess(msg string) {
	fmt.Fprintf(f.writer, "%s %s\n", f.green.Sprint("[+]"), msg)
}

func (f *ConsoleFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "%s %v\n", f.red.Sprint("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	fmt.Fprintf(f.writer, "%s %s\n", f.bold.Sprint("httpcraft"), version)
}

// RenderSummary returns the uncolored block FormatExchange prints.
func RenderSummary(ex *exchange.Exchange, truncateAt int) string {
	var sb strings.Builder
	NewConsoleFormatter(WithWriter(&sb), WithNoColor(true), WithTruncate(truncateAt)).FormatExchange(ex)
	return sb.String()
}
