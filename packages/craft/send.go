package craft

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
	"github.com/abdul-hamid-achik/httpcraft/packages/core/target"
	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
	"github.com/abdul-hamid-achik/httpcraft/packages/http"
)

type sendOptions struct {
	json    any
	hasJSON bool
	form    map[string]any
	hasForm bool
	port    int
}

// SendOption overrides the stored state for one request.
type SendOption func(*sendOptions)

// WithJSON sends v as the JSON body instead of the stored payload.
func WithJSON(v any) SendOption {
	return func(o *sendOptions) {
		o.json = v
		o.hasJSON = true
	}
}

// WithForm sends fields form encoded instead of the stored payload.
func WithForm(fields map[string]any) SendOption {
	return func(o *sendOptions) {
		o.form = fields
		o.hasForm = true
	}
}

// WithPort overrides the target port for one request.
func WithPort(port int) SendOption {
	return func(o *sendOptions) {
		o.port = port
	}
}

func (c *Client) Get(ctx context.Context, path string, opts ...SendOption) (*exchange.Exchange, error) {
	return c.Send(ctx, "GET", path, opts...)
}

func (c *Client) Post(ctx context.Context, path string, opts ...SendOption) (*exchange.Exchange, error) {
	return c.Send(ctx, "POST", path, opts...)
}

func (c *Client) Put(ctx context.Context, path string, opts ...SendOption) (*exchange.Exchange, error) {
	return c.Send(ctx, "PUT", path, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...SendOption) (*exchange.Exchange, error) {
	return c.Send(ctx, "DELETE", path, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, opts ...SendOption) (*exchange.Exchange, error) {
	return c.Send(ctx, "PATCH", path, opts...)
}

func (c *Client) Head(ctx context.Context, path string, opts ...SendOption) (*exchange.Exchange, error) {
	return c.Send(ctx, "HEAD", path, opts...)
}

// pending is a request built from a state snapshot, ready for dispatch.
type pending struct {
	req    *http.Request
	record exchange.Request
}

// Send performs one exchange and records it. Transport failures return a
// *TransportError and leave history untouched.
func (c *Client) Send(ctx context.Context, method, path string, opts ...SendOption) (*exchange.Exchange, error) {
	o := &sendOptions{}
	for _, opt := range opts {
		opt(o)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "GET"
	}

	p, err := c.build(method, path, o)
	if err != nil {
		return nil, err
	}

	log := c.logger.With().Str("method", method).Str("url", p.req.URL).Logger()
	log.Debug().Msg("dispatching request")

	resp, err := c.transport.Do(ctx, p.req)
	if err == nil && resp == nil {
		err = errors.New("transport returned no response")
	}
	if err != nil {
		log.Debug().Err(err).Msg("request failed")
		return nil, &TransportError{Method: method, URL: p.req.URL, Err: err}
	}

	contentType := resp.ContentType()
	body, err := exchange.Classify(contentType, resp.Body)
	if err != nil {
		var decodeErr *exchange.DecodeError
		if errors.As(err, &decodeErr) {
			log.Debug().Err(err).Str("content_type", contentType).Msg("json body kept as text")
		}
	}
	log.Debug().
		Int("status", resp.StatusCode).
		Str("kind", body.Kind.String()).
		Dur("elapsed", resp.Duration).
		Msg("response received")

	ex := c.record(p, resp, body, &log)

	if c.recorder != nil {
		if err := c.recorder.Add(ctx, ex); err != nil {
			log.Warn().Err(err).Str("id", ex.ID).Msg("archive write failed")
		}
	}
	return ex, nil
}

func (c *Client) build(method, path string, o *sendOptions) (*pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.target.IsSet() {
		return nil, fmt.Errorf("%w: no target set", target.ErrInvalidTarget)
	}
	snap := c.state.Snapshot()

	var (
		payload any
		kind    state.Mode
	)
	switch {
	case o.hasJSON:
		payload, kind = o.json, state.ModeJSON
	case o.hasForm:
		payload, kind = o.form, state.ModeForm
	default:
		payload, kind = snap.Payload, snap.Mode
	}
	if c.expander != nil {
		snap.Headers = c.expander.ExpandMap(snap.Headers)
		snap.Cookies = c.expander.ExpandMap(snap.Cookies)
		payload = c.expander.ExpandValue(payload)
	}
	if m, ok := payload.(map[string]any); payload == nil || (ok && m == nil) {
		payload = map[string]any{}
	}

	req := http.NewRequest(method, c.target.BuildURL(path, o.port))
	for k, v := range snap.Headers {
		req.SetHeader(k, v)
	}
	for k, v := range snap.Cookies {
		req.SetCookie(k, v)
	}

	var err error
	switch {
	case method == "GET" || method == "HEAD":
		kind = state.ModeForm
		err = req.SetQuery(payload)
	case kind == state.ModeForm:
		err = req.SetFormBody(payload)
	default:
		err = req.SetJSONBody(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return &pending{
		req: req,
		record: exchange.Request{
			URL:         c.target.BaseURL(),
			Port:        c.target.EffectivePort(o.port),
			Path:        path,
			Method:      method,
			Cookies:     snap.Cookies,
			Payload:     state.CopyValue(payload),
			PayloadKind: kind,
		},
	}, nil
}

// record applies CSRF propagation and appends the exchange to the ledger.
func (c *Client) record(p *pending, resp *http.Response, body exchange.Body, log *zerolog.Logger) *exchange.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()

	updated := false
	if c.csrf.Enabled() {
		if token, ok := c.csrf.Extract(string(body.Raw)); ok && token != "" {
			c.state.AddCookie(c.csrf.Field(), token)
			updated = true
			log.Debug().Str("field", c.csrf.Field()).Msg("csrf token stored")
		}
	}

	rec := p.record
	rec.Headers = resp.SentHeaders

	ex := &exchange.Exchange{
		ID:        uuid.NewString(),
		Timestamp: c.stamp(),
		Request:   rec,
		Response: exchange.Response{
			StatusCode: resp.StatusCode,
			Elapsed:    resp.Duration,
			Body:       body,
			Headers:    resp.Headers,
		},
		CSRFTokenUpdated: updated,
	}
	c.history.Append(ex)
	return ex
}
