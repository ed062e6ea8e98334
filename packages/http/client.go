package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
	// DefaultUserAgent is sent unless a User-Agent header is set
	DefaultUserAgent = "httpcraft/1.0"
)

type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	userAgent      string
	defaultHeaders map[string]string
	sessionCookies bool
	jar            http.CookieJar
	limiter        *rate.Limiter
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		userAgent:      DefaultUserAgent,
		defaultHeaders: make(map[string]string),
		sessionCookies: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	// Configure TLS verification
	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	// Configure proxy if specified
	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	if c.sessionCookies {
		c.jar, _ = cookiejar.New(nil)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithUserAgent replaces DefaultUserAgent
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithSessionCookies toggles the session cookie jar that keeps cookies set
// by servers between requests
func WithSessionCookies(enabled bool) ClientOption {
	return func(c *Client) {
		c.sessionCookies = enabled
	}
}

// WithRateLimit caps the request rate. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Do sends req and reads the whole response body.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// Validate URL before making request
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	sent := c.sentHeaders(httpReq, len(req.Body))

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if c.jar != nil && httpResp.Request != nil {
		if cookies := httpResp.Cookies(); len(cookies) > 0 {
			c.jar.SetCookies(httpResp.Request.URL, cookies)
		}
	}

	final := httpReq
	if httpResp.Request != nil {
		final = httpResp.Request
	}

	return &Response{
		StatusCode:  httpResp.StatusCode,
		Status:      httpResp.Status,
		Headers:     flattenHeaders(httpResp.Header),
		Body:        respBody,
		Duration:    duration,
		Method:      final.Method,
		URL:         final.URL.String(),
		SentHeaders: sent,
	}, nil
}

// sentHeaders lists the request headers as they go on the wire, including
// the ones net/http adds while writing the request.
func (c *Client) sentHeaders(httpReq *http.Request, bodyLen int) map[string]string {
	sent := flattenHeaders(httpReq.Header)
	if httpReq.Host != "" {
		sent["Host"] = httpReq.Host
	} else {
		sent["Host"] = httpReq.URL.Host
	}
	if bodyLen > 0 {
		sent["Content-Length"] = strconv.Itoa(bodyLen)
	}
	// mirrors the transparent gzip request of http.Transport
	if !c.disableCompression() &&
		httpReq.Header.Get("Accept-Encoding") == "" &&
		httpReq.Header.Get("Range") == "" &&
		httpReq.Method != http.MethodHead {
		sent["Accept-Encoding"] = "gzip"
	}
	return sent
}

func (c *Client) disableCompression() bool {
	if t, ok := c.httpClient.Transport.(*http.Transport); ok {
		return t.DisableCompression
	}
	return true
}

func (c *Client) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u, err := neturl.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "*/*")

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}

	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if cookie := c.cookieHeader(u, req.Cookies); cookie != "" {
		httpReq.Header.Set("Cookie", cookie)
	}

	return httpReq, nil
}

// cookieHeader merges session cookies for u with explicit ones. Explicit
// cookies win on name clashes. Names are sorted so the header is stable.
func (c *Client) cookieHeader(u *neturl.URL, explicit map[string]string) string {
	merged := make(map[string]string)
	if c.jar != nil {
		for _, ck := range c.jar.Cookies(u) {
			merged[ck.Name] = ck.Value
		}
	}
	for k, v := range explicit {
		merged[k] = v
	}
	if len(merged) == 0 {
		return ""
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, (&http.Cookie{Name: name, Value: merged[name]}).String())
	}
	return strings.Join(parts, "; ")
}

// SessionCookies returns the cookies servers have set for rawURL.
func (c *Client) SessionCookies(rawURL string) map[string]string {
	result := make(map[string]string)
	if c.jar == nil {
		return result
	}
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return result
	}
	for _, ck := range c.jar.Cookies(u) {
		result[ck.Name] = ck.Value
	}
	return result
}

// ResetSession drops every cookie the servers have set.
func (c *Client) ResetSession() {
	if c.sessionCookies {
		c.jar, _ = cookiejar.New(nil)
	}
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  "GET",
		URL:     url,
		Headers: headers,
	})
}

func (c *Client) Post(ctx context.Context, url string, body []byte, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  "POST",
		URL:     url,
		Body:    body,
		Headers: headers,
	})
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	// Check for valid scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	// Check for valid host
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, vs := range h {
		headers[k] = strings.Join(vs, ", ")
	}
	return headers
}
