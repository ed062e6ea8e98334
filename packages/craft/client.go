package craft

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
	"github.com/abdul-hamid-achik/httpcraft/packages/core/target"
	"github.com/abdul-hamid-achik/httpcraft/packages/csrf"
	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
	"github.com/abdul-hamid-achik/httpcraft/packages/history"
	"github.com/abdul-hamid-achik/httpcraft/packages/http"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

// Transport dispatches one request. *http.Client implements it.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Expander fills placeholders in header, cookie and payload values at
// send time. *env.Expander implements it.
type Expander interface {
	ExpandMap(m map[string]string) map[string]string
	ExpandValue(v any) any
}

// Recorder receives every recorded exchange. *archive.Archive implements it.
type Recorder interface {
	Add(ctx context.Context, ex *exchange.Exchange) error
}

type Client struct {
	mu sync.Mutex

	target  *target.Target
	state   *state.Store
	csrf    *csrf.Extractor
	history *history.Ledger

	transport    Transport
	httpOpts     []http.ClientOption
	recorder     Recorder
	expander     Expander
	logger       zerolog.Logger
	responsesDir string

	now       func() time.Time
	lastStamp time.Time
}

type Option func(*Client)

// New creates a client for rawTarget. An empty rawTarget leaves the target
// unset; Send fails until SetTarget is called.
func New(rawTarget string, opts ...Option) (*Client, error) {
	c := &Client{
		target:       &target.Target{},
		state:        state.NewStore(),
		csrf:         csrf.New(csrf.ModeNone, ""),
		history:      history.NewLedger(),
		logger:       zerolog.Nop(),
		responsesDir: persist.DefaultResponsesDir,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = http.NewClient(c.httpOpts...)
	}
	c.logger = c.logger.With().Str("component", "craft").Logger()

	if strings.TrimSpace(rawTarget) != "" {
		if err := c.target.Set(rawTarget); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithTransport replaces the default net/http based transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPOptions configures the default transport.
func WithHTTPOptions(opts ...http.ClientOption) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, opts...)
	}
}

// WithRateLimit caps the request rate of the default transport.
func WithRateLimit(rps float64, burst int) Option {
	return WithHTTPOptions(http.WithRateLimit(rps, burst))
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithArchive copies every recorded exchange to r.
func WithArchive(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithExpander expands placeholders in every request. The stored state
// keeps the unexpanded values.
func WithExpander(e Expander) Option {
	return func(c *Client) {
		c.expander = e
	}
}

// WithCSRF enables token extraction. An invalid mode disables it.
func WithCSRF(mode csrf.Mode, field string) Option {
	return func(c *Client) {
		c.csrf = csrf.New(mode, field)
	}
}

// WithResponsesDir sets where SaveResponse derives paths.
func WithResponsesDir(dir string) Option {
	return func(c *Client) {
		if dir != "" {
			c.responsesDir = dir
		}
	}
}

// WithClock replaces time.Now for exchange timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// State returns the request state. It is safe to mutate between calls.
func (c *Client) State() *state.Store {
	return c.state
}

// History returns the exchange ledger.
func (c *Client) History() *history.Ledger {
	return c.history
}

// SetTarget replaces the target. On error the previous target is kept.
func (c *Client) SetTarget(rawURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.Set(rawURL)
}

func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.BaseURL()
}

func (c *Client) Host() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.Host()
}

func (c *Client) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.Port()
}

func (c *Client) SetPort(port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.SetPort(port)
}

// ResetTarget clears target and port. Headers, cookies and payload stay.
func (c *Client) ResetTarget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target.Reset()
}

// URL returns the URL a request for path would be sent to.
func (c *Client) URL(path string, overridePort int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.BuildURL(path, overridePort)
}

// SetCSRF changes the extraction mode and field. An empty field selects
// csrf.DefaultField.
func (c *Client) SetCSRF(mode, field string) error {
	m, err := csrf.ParseMode(mode)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.csrf = csrf.New(m, field)
	return nil
}

func (c *Client) CSRFMode() csrf.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrf.Mode()
}

func (c *Client) CSRFField() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrf.Field()
}

type sessionResetter interface {
	ResetSession()
}

// Reset restores a freshly created client: no target, empty state and
// history, CSRF disabled and a new cookie session.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target.Reset()
	c.state.Reset()
	c.history.Clear()
	c.csrf = csrf.New(csrf.ModeNone, "")
	if r, ok := c.transport.(sessionResetter); ok {
		r.ResetSession()
	}
}

// Exchange returns the i-th recorded exchange.
func (c *Client) Exchange(i int) (*exchange.Exchange, error) {
	return c.history.Get(i)
}

// LastExchange returns the most recent exchange.
func (c *Client) LastExchange() (*exchange.Exchange, bool) {
	return c.history.Last()
}

func (c *Client) Stats() history.Stats {
	return c.history.Stats()
}

type idleCloser interface {
	CloseIdleConnections()
}

// Close releases pooled connections and closes the archive if it is a
// Closer.
func (c *Client) Close() error {
	if t, ok := c.transport.(idleCloser); ok {
		t.CloseIdleConnections()
	}
	if closer, ok := c.recorder.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// stamp returns a millisecond timestamp strictly after the previous one.
func (c *Client) stamp() time.Time {
	t := c.now().Round(0).Truncate(time.Millisecond)
	if !c.lastStamp.IsZero() && !t.After(c.lastStamp) {
		t = c.lastStamp.Add(time.Millisecond)
	}
	c.lastStamp = t
	return t
}

// WithHTTPClient uses hc as the transport.
func WithHTTPClient(hc *http.Client) Option {
	return WithTransport(hc)
}

// Target returns a copy of the current target.
func (c *Client) Target() target.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.target
}
