package curl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
)

func TestParse_SimpleGet(t *testing.T) {
	c, err := Parse(`curl https://api.example.com/users?page=2`)
	require.NoError(t, err)

	assert.Equal(t, "GET", c.Method)
	assert.Equal(t, "https://api.example.com/users?page=2", c.URL)
	assert.Equal(t, "/users?page=2", c.Path())
}

func TestParse_DataImpliesPost(t *testing.T) {
	c, err := Parse(`curl https://api.example.com/users -d '{"name":"John"}'`)
	require.NoError(t, err)
	assert.Equal(t, "POST", c.Method)
	assert.Equal(t, `{"name":"John"}`, c.Body)

	c, err = Parse(`curl -G https://api.example.com/search -d q=go`)
	require.NoError(t, err)
	assert.Equal(t, "GET", c.Method)

	c, err = Parse(`curl -X put https://api.example.com/users/1 -d a=1`)
	require.NoError(t, err)
	assert.Equal(t, "PUT", c.Method)
}

func TestParse_HeadersCookiesAuth(t *testing.T) {
	c, err := Parse(`curl -H "Accept: application/json" -H 'Cookie: a=1; b=2' -b "sessionid=abc" -u admin:secret -A agent/1 -k -L https://example.com/`)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Accept":        "application/json",
		"Authorization": "Basic YWRtaW46c2VjcmV0",
		"User-Agent":    "agent/1",
	}, c.Headers)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "sessionid": "abc"}, c.Cookies)
	assert.True(t, c.Insecure)
	assert.True(t, c.FollowRedirects)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(`curl -X POST`)
	assert.Error(t, err)

	_, err = Parse(`curl example.com`)
	assert.ErrorIs(t, err, ErrNoURL)

	_, err = Parse(`curl https://example.com -H`)
	assert.Error(t, err)
}

func TestPayload(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		want    map[string]any
		mode    state.Mode
		wantErr bool
	}{
		{"none", `curl https://x.io`, map[string]any{}, state.ModeJSON, false},
		{"json object", `curl https://x.io -d '{"user":"admin","n":1}'`, map[string]any{"user": "admin", "n": float64(1)}, state.ModeJSON, false},
		{"json flag", `curl https://x.io --json '{"a":true}'`, map[string]any{"a": true}, state.ModeJSON, false},
		{"form pairs", `curl https://x.io -d user=admin -d pw=s3cret`, map[string]any{"user": "admin", "pw": "s3cret"}, state.ModeForm, false},
		{"urlencode", `curl https://x.io --data-urlencode 'q=a b'`, map[string]any{"q": "a b"}, state.ModeForm, false},
		{"raw text", `curl https://x.io -d 'just text'`, nil, "", true},
		{"json array", `curl https://x.io -H 'Content-Type: application/json' -d '[1,2]'`, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.cmd)
			require.NoError(t, err)

			payload, mode, err := c.Payload()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedBody)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload)
			assert.Equal(t, tt.mode, mode)
		})
	}
}

func TestConfig(t *testing.T) {
	c, err := Parse(`curl -X POST 'http://localhost:5000/login' -H 'Content-Type: application/x-www-form-urlencoded' -H 'X-Trace: 1' -b 'sid=9' -d 'user=admin'`)
	require.NoError(t, err)

	cfg, err := c.Config()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, map[string]string{"X-Trace": "1"}, cfg.Headers)
	assert.Equal(t, map[string]string{"sid": "9"}, cfg.Cookies)
	assert.Equal(t, map[string]any{"user": "admin"}, cfg.Payload)
	assert.Equal(t, "form", cfg.PayloadMode)
	assert.Equal(t, "/login", c.Path())
}

func TestParseAll(t *testing.T) {
	input := `# exported from the browser
curl https://x.io/a \
  -H 'Accept: */*'

curl -X DELETE https://x.io/b
`
	cmds, err := ParseAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "*/*", cmds[0].Headers["Accept"])
	assert.Equal(t, "DELETE", cmds[1].Method)

	_, err = ParseAll(strings.NewReader("curl nothing-here\n"))
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"-d", `{"a": "b c"}`, "x"}, tokenize(`-d '{"a": "b c"}' x`))
	assert.Equal(t, []string{"-H", "A: b", ""}, tokenize(`-H "A: b" ""`))
	assert.Equal(t, []string{`a b`}, tokenize(`a\ b`))
}
