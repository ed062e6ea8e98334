package env

import (
	"maps"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/abdul-hamid-achik/httpcraft/packages/builtin"
)

// VarPrefix marks process environment variables that become placeholder
// variables.
const VarPrefix = "HTTPCRAFT_VAR_"

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Expander resolves placeholders. It is safe for concurrent use.
type Expander struct {
	mu        sync.RWMutex
	vars      map[string]string
	funcs     *builtin.Registry
	lookupEnv func(string) (string, bool)
	logger    zerolog.Logger
}

type Option func(*Expander)

// WithVars adds variables. Later options win on clashes.
func WithVars(vars map[string]string) Option {
	return func(e *Expander) {
		maps.Copy(e.vars, vars)
	}
}

func WithRegistry(r *builtin.Registry) Option {
	return func(e *Expander) {
		e.funcs = r
	}
}

// WithLookupEnv replaces os.LookupEnv for {{$NAME}} placeholders.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(e *Expander) {
		e.lookupEnv = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Expander) {
		e.logger = logger
	}
}

func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		vars:      make(map[string]string),
		lookupEnv: os.LookupEnv,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.funcs == nil {
		e.funcs = builtin.NewRegistry()
	}
	e.logger = e.logger.With().Str("component", "env").Logger()
	return e
}

func (e *Expander) Set(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = value
}

func (e *Expander) Get(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vars[name]
	return v, ok
}

// Vars returns a copy of the variables.
func (e *Expander) Vars() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.vars)
}

func (e *Expander) resolve(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)

	if name, ok := strings.CutPrefix(expr, "$"); ok {
		return e.lookupEnv(name)
	}
	if builtin.IsCall(expr) {
		v, err := e.funcs.Call(expr)
		if err != nil {
			e.logger.Warn().Err(err).Str("placeholder", expr).Msg("function failed")
			return "", false
		}
		return v, true
	}
	return e.Get(expr)
}

// Expand replaces every resolvable placeholder in s.
func (e *Expander) Expand(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		if v, ok := e.resolve(match[2 : len(match)-2]); ok {
			return v
		}
		e.logger.Debug().Str("placeholder", match).Msg("unresolved placeholder")
		return match
	})
}

// Unresolved lists the placeholders in s that Expand would leave in place.
func (e *Expander) Unresolved(s string) []string {
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		expr := strings.TrimSpace(m[1])
		if builtin.IsCall(expr) {
			continue
		}
		if _, ok := e.resolve(expr); !ok {
			out = append(out, m[0])
		}
	}
	return out
}

// ExpandMap expands every value of m into a new map.
func (e *Expander) ExpandMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = e.Expand(v)
	}
	return out
}

// ExpandValue expands strings anywhere inside maps and slices decoded from
// JSON. Other values are returned as they are.
func (e *Expander) ExpandValue(v any) any {
	switch t := v.(type) {
	case string:
		return e.Expand(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = e.ExpandValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = e.ExpandValue(item)
		}
		return out
	case map[string]string:
		return e.ExpandMap(t)
	default:
		return v
	}
}
