package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore()

	assert.Empty(t, s.Headers())
	assert.Empty(t, s.Cookies())
	assert.Empty(t, s.Payload())
	assert.Equal(t, ModeJSON, s.PayloadMode())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("json")
	require.NoError(t, err)
	assert.Equal(t, ModeJSON, m)

	m, err = ParseMode(" FORM ")
	require.NoError(t, err)
	assert.Equal(t, ModeForm, m)

	_, err = ParseMode("xml")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestHeaders(t *testing.T) {
	s := NewStore()

	s.SetHeaders(map[string]string{"Accept": "application/json"})
	s.SetHeader("X-Trace", "1")
	s.AppendHeaders(map[string]string{"X-Trace": "2", "X-Other": "o"})

	v, ok := s.Header("X-Trace")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	s.RemoveHeader("X-Trace")
	v, ok = s.Header("X-Trace")
	assert.False(t, ok)
	assert.Equal(t, NoEntry, v)

	// removing a missing key is a no-op
	s.RemoveHeader("missing")
	assert.Len(t, s.Headers(), 2)

	s.ClearHeaders()
	assert.Empty(t, s.Headers())
}

func TestHeaders_ReturnsCopy(t *testing.T) {
	s := NewStore()
	s.SetHeader("A", "1")

	h := s.Headers()
	h["A"] = "changed"

	v, _ := s.Header("A")
	assert.Equal(t, "1", v)
}

func TestCookies(t *testing.T) {
	s := NewStore()

	s.AddCookie("sessionid", "abc123")
	v, ok := s.Cookie("sessionid")
	assert.True(t, ok)
	assert.Equal(t, "abc123", v)

	v, ok = s.Cookie("nope")
	assert.False(t, ok)
	assert.Equal(t, NoEntry, v)

	s.AppendCookies(map[string]string{"a": "1", "b": "2"})
	assert.Len(t, s.Cookies(), 3)

	s.RemoveCookie("a")
	assert.Len(t, s.Cookies(), 2)

	s.SetCookies(nil)
	assert.NotNil(t, s.Cookies())
	assert.Empty(t, s.Cookies())

	s.AddCookie("x", "y")
	s.ClearCookies()
	assert.Empty(t, s.Cookies())
}

func TestSetPayload(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SetPayload(map[string]any{"user": "admin"}, ModeForm))
	assert.Equal(t, ModeForm, s.PayloadMode())
	assert.Equal(t, map[string]any{"user": "admin"}, s.Payload())

	err := s.SetPayload(map[string]any{"x": 1}, Mode("xml"))
	assert.ErrorIs(t, err, ErrInvalidMode)
	// rejected call leaves the previous payload and mode in place
	assert.Equal(t, ModeForm, s.PayloadMode())
	assert.Equal(t, map[string]any{"user": "admin"}, s.Payload())
}

func TestPayloadEntries(t *testing.T) {
	s := NewStore()

	s.SetPayloadEntry("a", 1)
	s.AppendPayload(map[string]any{"b": "two", "a": 3})

	v, ok := s.PayloadEntry("a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = s.PayloadEntry("missing")
	assert.False(t, ok)
	assert.Equal(t, NoEntry, v)

	s.RemovePayloadEntry("a")
	assert.Equal(t, map[string]any{"b": "two"}, s.Payload())
}

func TestClearPayload_Idempotent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetPayload(map[string]any{"k": "v"}, ModeForm))

	s.ClearPayload()
	once := s.Snapshot()
	s.ClearPayload()
	twice := s.Snapshot()

	assert.Equal(t, once, twice)
	assert.Equal(t, ModeJSON, twice.Mode)
	assert.Empty(t, twice.Payload)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := NewStore()
	nested := map[string]any{"inner": []any{"a", map[string]any{"x": 1}}}
	require.NoError(t, s.SetPayload(map[string]any{"nested": nested}, ModeJSON))
	s.SetHeader("H", "1")

	snap := s.Snapshot()

	s.SetPayloadEntry("nested", "replaced")
	s.SetHeader("H", "2")
	nested["inner"] = nil

	assert.Equal(t, "1", snap.Headers["H"])
	got := snap.Payload["nested"].(map[string]any)
	assert.Len(t, got["inner"], 2)
}

func TestRestore(t *testing.T) {
	s := NewStore()
	s.Restore(Snapshot{
		Headers: map[string]string{"A": "1"},
		Payload: map[string]any{"p": true},
		Mode:    Mode("bogus"),
	})

	assert.Equal(t, map[string]string{"A": "1"}, s.Headers())
	assert.Empty(t, s.Cookies())
	assert.Equal(t, map[string]any{"p": true}, s.Payload())
	assert.Equal(t, ModeJSON, s.PayloadMode())

	s.Reset()
	assert.Empty(t, s.Headers())
	assert.Empty(t, s.Payload())
}
