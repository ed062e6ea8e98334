package curl

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
	"github.com/abdul-hamid-achik/httpcraft/packages/http"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

var (
	// ErrNoURL is returned when a command names no http or https URL
	ErrNoURL = errors.New("no URL found in curl command")
	// ErrUnsupportedBody is returned for bodies that are neither a JSON
	// object nor form encoded
	ErrUnsupportedBody = errors.New("body is neither a JSON object nor form data")
)

// Command is a parsed curl command line.
type Command struct {
	Method          string
	URL             string
	Headers         map[string]string
	Cookies         map[string]string
	Body            string
	JSON            bool
	Insecure        bool
	FollowRedirects bool
}

// flags that consume the next token
var valueFlags = map[string]bool{
	"-X": true, "--request": true,
	"-H": true, "--header": true,
	"-d": true, "--data": true, "--data-raw": true, "--data-binary": true, "--data-urlencode": true,
	"--json": true,
	"-u": true, "--user": true,
	"-A": true, "--user-agent": true,
	"-e": true, "--referer": true,
	"-b": true, "--cookie": true,
	"-o": true, "--output": true,
	"-m": true, "--max-time": true,
	"--connect-timeout": true,
	"-x": true, "--proxy": true,
}

// Parse reads one curl command. The leading "curl" word is optional.
func Parse(cmdline string) (*Command, error) {
	c := &Command{
		Headers: make(map[string]string),
		Cookies: make(map[string]string),
	}

	tokens := tokenize(strings.TrimSpace(cmdline))
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}

	var data []string
	getMode := false
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		var val string
		if valueFlags[tok] {
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for %s", tok)
			}
			i++
			val = tokens[i]
		}

		switch tok {
		case "-X", "--request":
			c.Method = strings.ToUpper(val)
		case "-H", "--header":
			if k, v, ok := strings.Cut(val, ":"); ok {
				c.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		case "-d", "--data", "--data-raw", "--data-binary":
			data = append(data, val)
		case "--data-urlencode":
			data = append(data, encodeDataArg(val))
		case "--json":
			data = append(data, val)
			c.JSON = true
		case "-u", "--user":
			c.Headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(val))
		case "-A", "--user-agent":
			c.Headers["User-Agent"] = val
		case "-e", "--referer":
			c.Headers["Referer"] = val
		case "-b", "--cookie":
			parseCookies(val, c.Cookies)
		case "-k", "--insecure":
			c.Insecure = true
		case "-L", "--location":
			c.FollowRedirects = true
		case "-G", "--get":
			getMode = true
		default:
			if strings.HasPrefix(tok, "-") {
				continue
			}
			if c.URL == "" && (strings.HasPrefix(tok, "http://") || strings.HasPrefix(tok, "https://")) {
				c.URL = tok
			}
		}
	}

	if c.URL == "" {
		return nil, ErrNoURL
	}

	// a Cookie header is folded into the cookie map
	for k, v := range c.Headers {
		if strings.EqualFold(k, "Cookie") {
			parseCookies(v, c.Cookies)
			delete(c.Headers, k)
		}
	}

	if c.JSON {
		c.Body = strings.Join(data, "")
	} else {
		c.Body = strings.Join(data, "&")
	}
	switch {
	case c.Method != "":
	case getMode:
		c.Method = "GET"
	case c.Body != "":
		c.Method = "POST"
	default:
		c.Method = "GET"
	}
	return c, nil
}

func encodeDataArg(v string) string {
	if name, value, ok := strings.Cut(v, "="); ok {
		return name + "=" + url.QueryEscape(value)
	}
	return url.QueryEscape(v)
}

func parseCookies(s string, into map[string]string) {
	for _, part := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name != "" {
			into[name] = value
		}
	}
}

// Path returns the request path and query of the command URL.
func (c *Command) Path() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "/"
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// contentType returns the declared Content-Type, if any.
func (c *Command) contentType() string {
	for k, v := range c.Headers {
		if strings.EqualFold(k, "Content-Type") {
			return strings.ToLower(v)
		}
	}
	return ""
}

// Payload decodes the body. A JSON object gives json mode, anything that
// looks like key=value pairs gives form mode.
func (c *Command) Payload() (map[string]any, state.Mode, error) {
	body := strings.TrimSpace(c.Body)
	if body == "" {
		return map[string]any{}, state.DefaultMode, nil
	}

	if c.JSON || strings.Contains(c.contentType(), "json") || strings.HasPrefix(body, "{") {
		var payload map[string]any
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedBody, err)
		}
		return payload, state.ModeJSON, nil
	}

	if !strings.Contains(body, "=") {
		return nil, "", ErrUnsupportedBody
	}
	payload := make(map[string]any)
	for k, v := range http.ParseFormBody(body) {
		payload[k] = v
	}
	return payload, state.ModeForm, nil
}

// Config builds the state document for the command. The Content-Type
// header is dropped since it follows from the payload mode.
func (c *Command) Config() (persist.Config, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return persist.Config{}, fmt.Errorf("invalid URL %q: %w", c.URL, err)
	}
	payload, mode, err := c.Payload()
	if err != nil {
		return persist.Config{}, err
	}

	cfg := persist.DefaultConfig()
	cfg.BaseURL = u.Scheme + "://" + u.Host
	cfg.Host = u.Hostname()
	cfg.Payload = payload
	cfg.PayloadMode = string(mode)
	for k, v := range c.Headers {
		if !strings.EqualFold(k, "Content-Type") {
			cfg.Headers[k] = v
		}
	}
	for k, v := range c.Cookies {
		cfg.Cookies[k] = v
	}
	return cfg, nil
}

// ParseFile reads one command per logical line. Trailing backslashes
// continue a command, blank lines and # comments are skipped.
func ParseFile(path string) ([]*Command, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ParseAll(f)
}

func ParseAll(r io.Reader) ([]*Command, error) {
	var (
		commands []*Command
		current  strings.Builder
	)
	flush := func() error {
		if current.Len() == 0 {
			return nil
		}
		c, err := Parse(current.String())
		if err != nil {
			return fmt.Errorf("command %d: %w", len(commands)+1, err)
		}
		commands = append(commands, c)
		current.Reset()
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if current.Len() == 0 && (line == "" || strings.HasPrefix(line, "#")) {
			continue
		}
		if strings.HasSuffix(line, "\\") {
			current.WriteString(strings.TrimSuffix(line, "\\"))
			current.WriteString(" ")
			continue
		}
		current.WriteString(line)
		if err := flush(); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return commands, nil
}

// tokenize splits a command line on unquoted whitespace. Single quotes
// are literal, backslash escapes the next rune outside single quotes.
func tokenize(cmd string) []string {
	var (
		tokens  []string
		current strings.Builder
		single  bool
		double  bool
		escaped bool
		started bool
	)
	for _, r := range cmd {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && !single:
			escaped = true
			started = true
		case r == '\'' && !double:
			single = !single
			started = true
		case r == '"' && !single:
			double = !double
			started = true
		case (r == ' ' || r == '\t' || r == '\n') && !single && !double:
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		tokens = append(tokens, current.String())
	}
	return tokens
}
