package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		scheme  string
		host    string
		port    int
		baseURL string
		hasErr  bool
	}{
		{"http://127.0.0.1:5000", "http", "127.0.0.1", 5000, "http://127.0.0.1", false},
		{"https://example.com", "https", "example.com", 0, "https://example.com", false},
		{"HTTPS://Example.com/ignored/path", "https", "Example.com", 0, "https://Example.com", false},
		{"http://[::1]:8080", "http", "::1", 8080, "http://[::1]", false},
		{"example.com", "", "", 0, "", true},
		{"localhost:5000", "", "", 0, "", true},
		{"http://", "", "", 0, "", true},
		{"http://host:0", "", "", 0, "", true},
		{"", "", "", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tgt, err := Parse(tt.input)
			if tt.hasErr {
				assert.ErrorIs(t, err, ErrInvalidTarget)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, tgt.Scheme())
			assert.Equal(t, tt.host, tgt.Host())
			assert.Equal(t, tt.port, tgt.Port())
			assert.Equal(t, tt.baseURL, tgt.BaseURL())
			assert.True(t, tgt.IsSet())
		})
	}
}

func TestSet_RejectedInputKeepsTarget(t *testing.T) {
	tgt, err := Parse("http://example.com:8080")
	require.NoError(t, err)

	err = tgt.Set("example.com")
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Equal(t, "example.com", tgt.Host())
	assert.Equal(t, 8080, tgt.Port())
}

func TestBuildURL(t *testing.T) {
	tgt, err := Parse("http://example.com")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/echo", tgt.BuildURL("/echo", 0))
	assert.Equal(t, "http://example.com/echo", tgt.BuildURL("///echo", 0))
	assert.Equal(t, "http://example.com/", tgt.BuildURL("", 0))
	assert.Equal(t, "http://example.com:9000/a/b", tgt.BuildURL("a/b", 9000))

	require.NoError(t, tgt.SetPort(5000))
	assert.Equal(t, "http://example.com:5000/echo", tgt.BuildURL("echo", 0))
	assert.Equal(t, "http://example.com:6000/echo", tgt.BuildURL("echo", 6000))
	assert.Equal(t, 6000, tgt.EffectivePort(6000))
	assert.Equal(t, 5000, tgt.EffectivePort(0))
}

func TestBuildURL_IPv6(t *testing.T) {
	tgt, err := Parse("http://[::1]")
	require.NoError(t, err)

	assert.Equal(t, "http://[::1]/x", tgt.BuildURL("x", 0))
	assert.Equal(t, "http://[::1]:81/x", tgt.BuildURL("x", 81))
}

func TestSetPort(t *testing.T) {
	tgt, err := Parse("http://example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, tgt.SetPort(0), ErrInvalidPort)
	assert.ErrorIs(t, tgt.SetPort(-1), ErrInvalidPort)
	assert.ErrorIs(t, tgt.SetPort(70000), ErrInvalidPort)
	assert.Equal(t, 0, tgt.Port())

	require.NoError(t, tgt.SetPort(443))
	assert.Equal(t, 443, tgt.Port())

	tgt.ClearPort()
	assert.Equal(t, 0, tgt.Port())
}

func TestReset(t *testing.T) {
	tgt, err := Parse("http://example.com:5000")
	require.NoError(t, err)

	tgt.Reset()
	assert.False(t, tgt.IsSet())
	assert.Equal(t, "", tgt.BaseURL())
	assert.Equal(t, 0, tgt.Port())
}
