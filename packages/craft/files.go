package craft

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
	"github.com/abdul-hamid-achik/httpcraft/packages/core/target"
	"github.com/abdul-hamid-achik/httpcraft/packages/csrf"
	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

// Config returns the current configuration document.
func (c *Client) Config() persist.Config {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.state.Snapshot()
	cfg := persist.Config{
		BaseURL:     c.target.BaseURL(),
		Host:        c.target.Host(),
		CSRFMode:    string(c.csrf.Mode()),
		CSRFField:   c.csrf.Field(),
		Headers:     snap.Headers,
		Cookies:     snap.Cookies,
		Payload:     snap.Payload,
		PayloadMode: string(snap.Mode),
	}
	if p := c.target.Port(); p > 0 {
		cfg.Port = &p
	}
	return cfg
}

// ApplyConfig replaces target, CSRF settings and state with cfg. Nothing
// changes when cfg is rejected.
//
// An unusable base_url falls back to http://host when host is set and
// clears the target otherwise.
func (c *Client) ApplyConfig(cfg persist.Config) error {
	t := &target.Target{}
	if err := t.Set(cfg.BaseURL); err != nil {
		if host := strings.TrimSpace(cfg.Host); host == "" || t.Set("http://"+host) != nil {
			t.Reset()
		}
	}
	if cfg.Port != nil {
		if err := t.SetPort(*cfg.Port); err != nil {
			return err
		}
	}

	mode, err := csrf.ParseMode(cfg.CSRFMode)
	if err != nil {
		return err
	}
	payloadMode := state.DefaultMode
	if cfg.PayloadMode != "" {
		if payloadMode, err = state.ParseMode(cfg.PayloadMode); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	*c.target = *t
	c.csrf = csrf.New(mode, cfg.CSRFField)
	c.state.Restore(state.Snapshot{
		Headers: cfg.Headers,
		Cookies: cfg.Cookies,
		Payload: cfg.Payload,
		Mode:    payloadMode,
	})
	return nil
}

// SaveConfig writes the current configuration to path.
func (c *Client) SaveConfig(path string) error {
	return persist.SaveConfig(path, c.Config())
}

// LoadConfig reads path and applies it. A failed read leaves the client
// untouched.
func (c *Client) LoadConfig(path string) error {
	cfg, err := persist.LoadConfig(path)
	if err != nil {
		return err
	}
	return c.ApplyConfig(cfg)
}

func (c *Client) SaveHeaders(path string) error {
	return persist.SaveHeaders(path, c.state.Headers())
}

func (c *Client) LoadHeaders(path string) error {
	headers, err := persist.LoadHeaders(path)
	if err != nil {
		return err
	}
	c.state.SetHeaders(headers)
	return nil
}

func (c *Client) SaveCookies(path string) error {
	return persist.SaveCookies(path, c.state.Cookies())
}

func (c *Client) LoadCookies(path string) error {
	cookies, err := persist.LoadCookies(path)
	if err != nil {
		return err
	}
	c.state.SetCookies(cookies)
	return nil
}

func (c *Client) SavePayload(path string) error {
	return persist.SavePayload(path, c.state.Payload())
}

// LoadPayload replaces the stored payload and keeps the payload mode.
func (c *Client) LoadPayload(path string) error {
	payload, err := persist.LoadPayload(path)
	if err != nil {
		return err
	}
	return c.state.SetPayload(payload, c.state.PayloadMode())
}

// SaveHistory writes every recorded exchange to path.
func (c *Client) SaveHistory(path string, opts ...persist.HistoryOption) error {
	return persist.SaveHistory(path, c.history.All(), opts...)
}

// ImportHistory appends the exchanges stored in path to the ledger and
// returns how many were added. A file that fails to load adds nothing.
func (c *Client) ImportHistory(path string) (int, error) {
	exs, err := persist.LoadHistory(path)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ex := range exs {
		c.history.Append(ex)
	}
	return len(exs), nil
}

// SaveResponse writes the body of ex, deriving a path under the responses
// directory when path is empty.
func (c *Client) SaveResponse(ex *exchange.Exchange, path string) (string, error) {
	return persist.SaveResponse(ex, path, persist.WithDir(c.responsesDir))
}

func (c *Client) SaveLastResponse(path string) (string, error) {
	ex, ok := c.history.Last()
	if !ok {
		return "", ErrNoHistory
	}
	return c.SaveResponse(ex, path)
}

func (c *Client) SaveResponseAt(index int, path string) (string, error) {
	ex, err := c.history.Get(index)
	if err != nil {
		return "", err
	}
	return c.SaveResponse(ex, path)
}

// Replay sends the request of the index-th exchange again against the
// current target, using its recorded path, port and payload.
func (c *Client) Replay(ctx context.Context, index int) (*exchange.Exchange, error) {
	ex, err := c.history.Get(index)
	if err != nil {
		return nil, err
	}
	req := ex.Request

	opts := []SendOption{WithPort(req.Port)}
	if req.WasForm() {
		fields, ok := req.Payload.(map[string]any)
		if !ok && req.Payload != nil {
			return nil, fmt.Errorf("%w: recorded form payload is %T", ErrInvalidPayload, req.Payload)
		}
		opts = append(opts, WithForm(fields))
	} else {
		opts = append(opts, WithJSON(req.Payload))
	}
	return c.Send(ctx, req.Method, req.Path, opts...)
}
