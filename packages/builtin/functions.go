package builtin

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownFunc is returned by Call for an unregistered function name
var ErrUnknownFunc = errors.New("unknown function")

// Func computes a placeholder value from its arguments.
type Func func(args []string) (string, error)

type Registry struct {
	funcs map[string]Func
	now   func() time.Time
}

type Option func(*Registry)

// WithClock replaces time.Now for the time based functions.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.funcs["uuid"] = func(_ []string) (string, error) { return uuid.NewString(), nil }
	r.funcs["now"] = func(_ []string) (string, error) { return r.now().UTC().Format(time.RFC3339), nil }
	r.funcs["timestamp"] = func(_ []string) (string, error) { return strconv.FormatInt(r.now().Unix(), 10), nil }
	r.funcs["timestampMs"] = func(_ []string) (string, error) { return strconv.FormatInt(r.now().UnixMilli(), 10), nil }
	r.funcs["date"] = r.date
	r.funcs["randomInt"] = randomInt
	r.funcs["randomString"] = randomString
	r.funcs["base64"] = unary(func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) })
	r.funcs["urlEncode"] = unary(url.QueryEscape)
	r.funcs["sha256"] = unary(func(s string) string {
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

var callPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// IsCall reports whether expr has the name(args) shape.
func IsCall(expr string) bool {
	return callPattern.MatchString(expr)
}

// Call evaluates an expression of the form name(arg, "quoted, arg").
func (r *Registry) Call(expr string) (string, error) {
	m := callPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", fmt.Errorf("%w: %q is not a call", ErrUnknownFunc, expr)
	}
	fn, ok := r.funcs[m[1]]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFunc, m[1])
	}
	out, err := fn(splitArgs(m[2]))
	if err != nil {
		return "", fmt.Errorf("%s: %w", m[1], err)
	}
	return out, nil
}

// splitArgs splits on commas outside single or double quotes and strips
// the quotes.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var (
		args    []string
		current strings.Builder
		quote   byte
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	return append(args, strings.TrimSpace(current.String()))
}

func unary(fn func(string) string) Func {
	return func(args []string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("want 1 argument, got %d", len(args))
		}
		return fn(args[0]), nil
	}
}

func (r *Registry) date(args []string) (string, error) {
	layout := "2006-01-02"
	if len(args) > 0 && args[0] != "" {
		layout = args[0]
	}
	return r.now().UTC().Format(layout), nil
}

func randomInt(args []string) (string, error) {
	lo, hi := 0, 100
	if len(args) == 2 {
		var err error
		if lo, err = strconv.Atoi(args[0]); err != nil {
			return "", fmt.Errorf("min %q is not an integer", args[0])
		}
		if hi, err = strconv.Atoi(args[1]); err != nil {
			return "", fmt.Errorf("max %q is not an integer", args[1])
		}
	} else if len(args) != 0 {
		return "", fmt.Errorf("want 0 or 2 arguments, got %d", len(args))
	}
	if hi < lo {
		return "", fmt.Errorf("max %d is below min %d", hi, lo)
	}
	return strconv.Itoa(lo + rand.Intn(hi-lo+1)), nil
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(args []string) (string, error) {
	n := 16
	if len(args) > 0 {
		var err error
		if n, err = strconv.Atoi(args[0]); err != nil || n < 0 {
			return "", fmt.Errorf("length %q is not a non-negative integer", args[0])
		}
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(b), nil
}
