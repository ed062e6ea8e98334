package target

import (
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
)

var (
	// ErrInvalidTarget is returned when a target URL has no scheme or no host
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidPort is returned for ports that are not positive integers
	ErrInvalidPort = errors.New("invalid port")
)

// Target holds the scheme, host and optional port requests are sent to.
// A zero port means no explicit port.
type Target struct {
	scheme  string
	host    string
	port    int
	baseURL string
}

// Parse creates a Target from a URL that includes an explicit scheme.
func Parse(rawURL string) (*Target, error) {
	t := &Target{}
	if err := t.Set(rawURL); err != nil {
		return nil, err
	}
	return t, nil
}

// Set replaces scheme, host and port with the ones parsed from rawURL.
// The target is left unchanged when rawURL is rejected.
func (t *Target) Set(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidTarget, rawURL, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%w: %q: URL must include a scheme (http:// or https://)", ErrInvalidTarget, rawURL)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: %q: URL must have a host", ErrInvalidTarget, rawURL)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%w: %q: port %q out of range", ErrInvalidTarget, rawURL, p)
		}
	}

	t.scheme = strings.ToLower(u.Scheme)
	t.host = host
	t.port = port
	t.baseURL = t.scheme + "://" + bracketHost(host)
	return nil
}

// IsSet reports whether a target has been configured.
func (t *Target) IsSet() bool {
	return t.scheme != "" && t.host != ""
}

func (t *Target) Scheme() string {
	return t.scheme
}

func (t *Target) Host() string {
	return t.host
}

// BaseURL returns scheme://host without port or path.
func (t *Target) BaseURL() string {
	return t.baseURL
}

// Port returns the configured port, or 0 when none is set.
func (t *Target) Port() int {
	return t.port
}

// SetPort sets the port used by BuildURL when no override is given.
func (t *Target) SetPort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	t.port = port
	return nil
}

// ClearPort drops the explicit port so BuildURL omits the port segment.
func (t *Target) ClearPort() {
	t.port = 0
}

// Reset clears the target and its port.
func (t *Target) Reset() {
	t.scheme = ""
	t.host = ""
	t.port = 0
	t.baseURL = ""
}

// BuildURL joins the target and path with exactly one slash. A positive
// overridePort wins over the target's own port.
func (t *Target) BuildURL(path string, overridePort int) string {
	port := t.port
	if overridePort > 0 {
		port = overridePort
	}

	host := bracketHost(t.host)
	if port > 0 {
		host = net.JoinHostPort(t.host, strconv.Itoa(port))
	}

	return t.scheme + "://" + host + "/" + strings.TrimLeft(path, "/")
}

// EffectivePort returns the port BuildURL would use for overridePort.
func (t *Target) EffectivePort(overridePort int) int {
	if overridePort > 0 {
		return overridePort
	}
	return t.port
}

func bracketHost(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}
