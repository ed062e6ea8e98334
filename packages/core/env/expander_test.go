package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abdul-hamid-achik/httpcraft/packages/builtin"
)

func newTestExpander(vars map[string]string) *Expander {
	at := time.Unix(1700000000, 0)
	return NewExpander(
		WithVars(vars),
		WithRegistry(builtin.NewRegistry(builtin.WithClock(func() time.Time { return at }))),
		WithLookupEnv(func(name string) (string, bool) {
			if name == "HOME" {
				return "/home/test", true
			}
			return "", false
		}),
	)
}

func TestExpand(t *testing.T) {
	e := newTestExpander(map[string]string{"user": "admin", "AUTHORIZATION": "Bearer t"})

	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"{{user}}", "admin"},
		{"{{ user }}", "admin"},
		{"hi {{user}}, home={{$HOME}}", "hi admin, home=/home/test"},
		{"{{AUTHORIZATION}}", "Bearer t"},
		{"ts={{timestamp()}}", "ts=1700000000"},
		{"{{missing}}", "{{missing}}"},
		{"{{$NOPE}}", "{{$NOPE}}"},
		{"{{nope()}}", "{{nope()}}"},
		{"{{user", "{{user"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(tt.input))
		})
	}
}

func TestUnresolved(t *testing.T) {
	e := newTestExpander(map[string]string{"a": "1"})

	assert.Empty(t, e.Unresolved("{{a}} {{uuid()}}"))
	assert.Equal(t, []string{"{{b}}", "{{$NOPE}}"}, e.Unresolved("{{a}} {{b}} {{$NOPE}}"))
}

func TestSetAndVars(t *testing.T) {
	e := newTestExpander(nil)
	e.Set("token", "abc")

	v, ok := e.Get("token")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	vars := e.Vars()
	vars["token"] = "changed"
	v, _ = e.Get("token")
	assert.Equal(t, "abc", v)
}

func TestExpandValue(t *testing.T) {
	e := newTestExpander(map[string]string{"user": "admin"})

	in := map[string]any{
		"name":  "{{user}}",
		"count": float64(2),
		"tags":  []any{"{{user}}", true},
		"inner": map[string]any{"who": "{{user}}"},
	}
	got := e.ExpandValue(in)

	assert.Equal(t, map[string]any{
		"name":  "admin",
		"count": float64(2),
		"tags":  []any{"admin", true},
		"inner": map[string]any{"who": "admin"},
	}, got)
	assert.Equal(t, "{{user}}", in["name"])

	assert.Equal(t, map[string]string{"h": "admin"}, e.ExpandValue(map[string]string{"h": "{{user}}"}))
	assert.Nil(t, e.ExpandValue(nil))
}
