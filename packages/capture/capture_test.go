package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
)

func jsonExchange(raw string) *exchange.Exchange {
	body, _ := exchange.Classify("application/json", []byte(raw))
	return &exchange.Exchange{
		Request: exchange.Request{Cookies: map[string]string{"csrf_token": "secure123"}},
		Response: exchange.Response{
			StatusCode: 201,
			Elapsed:    42 * time.Millisecond,
			Headers:    map[string]string{"X-Request-Id": "abc"},
			Body:       body,
		},
	}
}

func TestExtract_Body(t *testing.T) {
	ex := jsonExchange(`{"user":{"id":7,"tags":["a","b"]}}`)

	v, ok := Extract(ex, SourceBody, "user.id")
	require.True(t, ok)
	assert.Equal(t, float64(7), v)

	v, ok = Extract(ex, SourceBody, "user.tags.1")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = Extract(ex, SourceBody, "user.missing")
	assert.False(t, ok)

	v, ok = Extract(ex, SourceBody, "")
	require.True(t, ok)
	assert.IsType(t, map[string]any{}, v)
}

func TestExtract_TextBody(t *testing.T) {
	body, _ := exchange.Classify("text/plain", []byte("pong"))
	ex := &exchange.Exchange{Response: exchange.Response{Body: body}}

	v, ok := Extract(ex, SourceBody, "")
	require.True(t, ok)
	assert.Equal(t, "pong", v)

	_, ok = Extract(ex, SourceBody, "a.b")
	assert.False(t, ok)
}

func TestExtract_Other(t *testing.T) {
	ex := jsonExchange(`{}`)

	v, ok := Extract(ex, SourceHeader, "x-request-id")
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	_, ok = Extract(ex, SourceHeader, "X-Missing")
	assert.False(t, ok)

	v, _ = Extract(ex, SourceStatus, "")
	assert.Equal(t, 201, v)

	v, _ = Extract(ex, SourceDuration, "")
	assert.Equal(t, int64(42), v)

	v, ok = Extract(ex, SourceCookie, "csrf_token")
	require.True(t, ok)
	assert.Equal(t, "secure123", v)

	_, ok = Extract(ex, Source("nowhere"), "")
	assert.False(t, ok)
}

func TestParseSpec(t *testing.T) {
	c, err := ParseSpec("id=body:user.id")
	require.NoError(t, err)
	assert.Equal(t, &Capture{Name: "id", Source: SourceBody, Path: "user.id"}, c)

	c, err = ParseSpec("code=status")
	require.NoError(t, err)
	assert.Equal(t, SourceStatus, c.Source)

	for _, bad := range []string{"", "=body", "nosource", "x=header", "x=query:a"} {
		_, err := ParseSpec(bad)
		assert.ErrorIs(t, err, ErrInvalidCapture, bad)
	}
}

func TestExtractAll(t *testing.T) {
	ex := jsonExchange(`{"token":"t1"}`)
	got := ExtractAll(ex, []*Capture{
		{Name: "token", Source: SourceBody, Path: "token"},
		{Name: "status", Source: SourceStatus},
		{Name: "absent", Source: SourceBody, Path: "nope"},
	})
	assert.Equal(t, map[string]any{"token": "t1", "status": 201}, got)
}
