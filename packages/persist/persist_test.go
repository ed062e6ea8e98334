package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}

func intPtr(i int) *int { return &i }

func sampleExchange(ct string, body exchange.Body, path string) *exchange.Exchange {
	headers := map[string]string{}
	if ct != "" {
		headers["Content-Type"] = ct
	}
	return &exchange.Exchange{
		ID:        "id-1",
		Timestamp: time.Date(2024, 5, 1, 10, 20, 30, 456000000, time.Local),
		Request: exchange.Request{
			URL:         "http://localhost",
			Port:        5000,
			Path:        path,
			Method:      "POST",
			Headers:     map[string]string{"Authorization": "Bearer secret", "Accept": "*/*"},
			Cookies:     map[string]string{"csrf_token": "secure123"},
			Payload:     map[string]any{"user": "admin"},
			PayloadKind: state.ModeForm,
		},
		Response: exchange.Response{
			StatusCode: 200,
			Elapsed:    12500 * time.Microsecond,
			Body:       body,
			Headers:    headers,
		},
		CSRFTokenUpdated: true,
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := Config{
				BaseURL:     "https://api.example.com",
				Host:        "api.example.com",
				Port:        intPtr(8443),
				CSRFMode:    "meta",
				CSRFField:   "authenticity_token",
				Headers:     map[string]string{"Accept": "application/json"},
				Cookies:     map[string]string{"sid": "abc"},
				Payload:     map[string]any{"user": "admin", "n": float64(3), "tags": []any{"a", "b"}},
				PayloadMode: "form",
			}

			require.NoError(t, SaveConfig(path, cfg))
			got, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestConfig_LargeIntegersSurvive(t *testing.T) {
	cfg, err := DecodeConfig([]byte(`{
		"payload": {"id": 9007199254740993, "neg": -9007199254740993, "huge": 123456789012345678901234567890,
			"n": 2, "f": 1.5, "nested": {"ids": [9007199254740993, 7]}}
	}`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("9007199254740993"), cfg.Payload["id"])
	assert.Equal(t, json.Number("-9007199254740993"), cfg.Payload["neg"])
	assert.Equal(t, json.Number("123456789012345678901234567890"), cfg.Payload["huge"])
	assert.Equal(t, float64(2), cfg.Payload["n"])
	assert.Equal(t, 1.5, cfg.Payload["f"])
	assert.Equal(t, map[string]any{"ids": []any{json.Number("9007199254740993"), float64(7)}}, cfg.Payload["nested"])

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveConfig(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "9007199254740993")

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Payload, got.Payload)
}

func TestConfig_SaveFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveConfig(path, Config{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"port": null`)
	assert.Contains(t, string(data), `"csrf_mode": "none"`)
	assert.Contains(t, string(data), `"payload_mode": "json"`)
}

func TestDecodeConfig_Defensive(t *testing.T) {
	cfg, err := DecodeConfig([]byte(`{
		"base_url": 42,
		"host": "h",
		"port": "80",
		"csrf_mode": "bogus",
		"csrf_field": ["x"],
		"headers": "not a map",
		"cookies": {"a": "1", "n": 2, "obj": {"x": 1}, "nil": null},
		"payload": [1, 2],
		"payload_mode": "xml"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "", cfg.BaseURL)
	assert.Equal(t, "h", cfg.Host)
	assert.Nil(t, cfg.Port)
	assert.Equal(t, "none", cfg.CSRFMode)
	assert.Equal(t, "csrf_token", cfg.CSRFField)
	assert.Equal(t, map[string]string{}, cfg.Headers)
	assert.Equal(t, map[string]string{"a": "1", "n": "2"}, cfg.Cookies)
	assert.Equal(t, map[string]any{}, cfg.Payload)
	assert.Equal(t, "json", cfg.PayloadMode)
}

func TestDecodeConfig_Port(t *testing.T) {
	for raw, want := range map[string]*int{
		`{"port": 8080}`:  intPtr(8080),
		`{"port": 0}`:     nil,
		`{"port": 80.5}`:  nil,
		`{"port": null}`:  nil,
		`{"port": 70000}`: nil,
	} {
		cfg, err := DecodeConfig([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Port, raw)
	}
}

func TestDecodeConfig_Invalid(t *testing.T) {
	_, err := DecodeConfig([]byte(`{broken`))
	assert.Error(t, err)

	_, err = DecodeConfig([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "load config", perr.Op)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("a: [unclosed"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestSlices_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	headers := map[string]string{"X-A": "1"}
	require.NoError(t, SaveHeaders(filepath.Join(dir, "h.json"), headers))
	gotH, err := LoadHeaders(filepath.Join(dir, "h.json"))
	require.NoError(t, err)
	assert.Equal(t, headers, gotH)

	cookies := map[string]string{"sid": "x"}
	require.NoError(t, SaveCookies(filepath.Join(dir, "c.json"), cookies))
	gotC, err := LoadCookies(filepath.Join(dir, "c.json"))
	require.NoError(t, err)
	assert.Equal(t, cookies, gotC)

	payload := map[string]any{"nested": map[string]any{"k": true}}
	require.NoError(t, SavePayload(filepath.Join(dir, "p.json"), payload))
	gotP, err := LoadPayload(filepath.Join(dir, "p.json"))
	require.NoError(t, err)
	assert.Equal(t, payload, gotP)

	data, err := os.ReadFile(filepath.Join(dir, "h.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"X-A\": \"1\"\n}\n", string(data))
}

func TestSlices_RejectNonObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(path, []byte(`["a"]`), 0644))

	_, err := LoadPayload(path)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestHistory_RoundTrip(t *testing.T) {
	jsonEx := sampleExchange("application/json", exchange.Body{
		Kind: exchange.KindJSON,
		JSON: map[string]any{"a": float64(1)},
		Raw:  []byte(`{"a":1}`),
	}, "/api")
	htmlEx := sampleExchange("text/html", exchange.Body{
		Kind: exchange.KindHTML,
		Text: "<p>x</p>",
		Raw:  []byte("<p>x</p>"),
	}, "/form")
	binEx := sampleExchange("image/png", exchange.Body{Kind: exchange.KindBinary, Raw: pngBytes}, "/logo.png")
	binEx.Request.Port = 0

	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, SaveHistory(path, []*exchange.Exchange{jsonEx, htmlEx, binEx}))

	got, err := LoadHistory(path)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "/api", got[0].Request.Path)
	assert.Equal(t, map[string]any{"a": float64(1)}, got[0].Response.Body.JSON)
	assert.Equal(t, "<p>x</p>", got[1].Response.Body.Text)
	assert.Equal(t, pngBytes, got[2].Response.Body.Raw)
	assert.Equal(t, exchange.KindBinary, got[2].Response.Kind())

	first := got[0]
	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, jsonEx.Stamp(), first.Stamp())
	assert.Equal(t, 5000, first.Request.Port)
	assert.Equal(t, 0, got[2].Request.Port)
	assert.Equal(t, state.ModeForm, first.Request.PayloadKind)
	assert.Equal(t, "Bearer secret", first.Request.Headers["Authorization"])
	assert.Equal(t, 12500*time.Microsecond, first.Response.Elapsed)
	assert.True(t, first.CSRFTokenUpdated)
}

func TestHistory_DocumentKeys(t *testing.T) {
	ex := sampleExchange("text/plain", exchange.Body{Kind: exchange.KindText, Text: "ok", Raw: []byte("ok")}, "/")
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, SaveHistory(path, []*exchange.Exchange{ex}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{
		`"timestamp": "2024-05-01 10:20:30.456"`,
		`"payload_kind": "form"`,
		`"response_kind": "text"`,
		`"elapsed_time": 0.0125`,
		`"raw_headers"`,
		`"csrf_token_updated": true`,
		`"port": 5000`,
	} {
		assert.Contains(t, string(data), key)
	}
}

func TestHistory_Redaction(t *testing.T) {
	ex := sampleExchange("text/plain", exchange.Body{Kind: exchange.KindText}, "/")
	ex.Response.Headers["Set-Cookie"] = "sid=1"
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, SaveHistory(path, []*exchange.Exchange{ex}, WithRedaction()))

	got, err := LoadHistory(path)
	require.NoError(t, err)
	assert.Equal(t, "{{AUTHORIZATION}}", got[0].Request.Headers["Authorization"])
	assert.Equal(t, "*/*", got[0].Request.Headers["Accept"])
	assert.Equal(t, "{{SET_COOKIE}}", got[0].Response.Headers["Set-Cookie"])
	// the in-memory exchange is untouched
	assert.Equal(t, "Bearer secret", ex.Request.Headers["Authorization"])
}

func TestSaveHistory_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, SaveHistory(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestLoadHistory_BadEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"timestamp":"yesterday"}]`), 0644))

	_, err := LoadHistory(path)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "entry 0")
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		body exchange.Body
		want string
	}{
		{"json", "application/json; charset=utf-8", exchange.Body{Kind: exchange.KindJSON}, ".json"},
		{"html", "text/html", exchange.Body{Kind: exchange.KindHTML}, ".html"},
		{"plain", "text/plain", exchange.Body{Kind: exchange.KindText}, ".txt"},
		{"jpeg", "image/jpeg", exchange.Body{Kind: exchange.KindBinary}, ".jpg"},
		{"override only", "application/x-7z-compressed", exchange.Body{Kind: exchange.KindUnknown}, ".7z"},
		{"kind fallback", "application/x-made-up", exchange.Body{Kind: exchange.KindJSON}, ".json"},
		{"sniff png", "", exchange.Body{Kind: exchange.KindUnknown, Raw: pngBytes}, ".png"},
		{"sniff unknown type", "application/x-made-up", exchange.Body{Kind: exchange.KindUnknown, Raw: pngBytes}, ".png"},
		{"sniff nothing", "", exchange.Body{Kind: exchange.KindUnknown, Raw: []byte("??")}, ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := sampleExchange(tt.ct, tt.body, "/")
			assert.Equal(t, tt.want, ExtensionFor(ex))
		})
	}
}

func TestSniffExtension(t *testing.T) {
	tests := map[string]string{
		"\xff\xd8\xff\xe0":        ".jpg",
		"GIF89a...":               ".gif",
		"%PDF-1.7":                ".pdf",
		"PK\x03\x04rest":          ".zip",
		"\x1f\x8b\x08":            ".gz",
		"ID3\x03":                 ".mp3",
		"RIFF\x00\x00WAVE":        ".wav",
		"\x00\x00\x00\x18ftyp3gp": ".3gp",
		"":                        ".bin",
	}
	for prefix, want := range tests {
		assert.Equal(t, want, SniffExtension([]byte(prefix)), "%q", prefix)
	}
}

func TestDerivePath(t *testing.T) {
	ex := sampleExchange("", exchange.Body{}, "/api/v1/users?id=5")
	assert.Equal(t,
		filepath.Join("out", "2024-05-01_102030.456_api_v1_users_id_5.json"),
		DerivePath(ex, "out", ".json"))

	ex.Request.Path = "/"
	assert.Equal(t,
		filepath.Join(DefaultResponsesDir, "2024-05-01_102030.456_index.bin"),
		DerivePath(ex, "", ".bin"))
}

func TestSaveResponse_JSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "responses")
	ex := sampleExchange("application/json", exchange.Body{
		Kind: exchange.KindJSON,
		JSON: map[string]any{"a": float64(1)},
		Raw:  []byte(`{"a":1}`),
	}, "/data")

	path, err := SaveResponse(ex, "", WithDir(dir))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".json"))
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))
}

func TestSaveResponse_BinarySniffed(t *testing.T) {
	dir := t.TempDir()
	ex := sampleExchange("", exchange.Body{Kind: exchange.KindUnknown, Raw: pngBytes}, "/img")

	path, err := SaveResponse(ex, "", WithDir(dir))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".png"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestSaveResponse_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.out")
	ex := sampleExchange("text/html", exchange.Body{Kind: exchange.KindHTML, Text: "<h1>é</h1>"}, "/")

	got, err := SaveResponse(ex, path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<h1>é</h1>", string(data))
}

func TestSaveResponse_Error(t *testing.T) {
	ex := sampleExchange("text/plain", exchange.Body{Kind: exchange.KindText, Text: "x"}, "/")
	_, err := SaveResponse(ex, filepath.Join(t.TempDir(), "missing", "dir", "file.txt"))
	assert.ErrorIs(t, err, ErrPersistence)
}
