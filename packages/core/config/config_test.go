package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30000, cfg.Timeout)
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.True(t, cfg.GetSessionCookies())
	assert.False(t, cfg.GetVerbose())
	assert.Equal(t, "none", cfg.CSRFMode)
	assert.Equal(t, "csrf_token", cfg.CSRFField)
	assert.Equal(t, 500, cfg.TruncateBody)
	assert.True(t, cfg.IsDefault())
}

func TestGetters_NilPointers(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetNoColor())
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".httpcraft.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"timeout": 5000,
		"validateSSL": false,
		"headers": {"X-Team": "qa"},
		"csrfMode": "input",
		"rateLimit": 2.5
	}`), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Timeout)
	assert.False(t, cfg.GetValidateSSL())
	assert.True(t, cfg.GetFollowRedirects())
	assert.Equal(t, "qa", cfg.Headers["X-Team"])
	assert.Equal(t, "input", cfg.CSRFMode)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.False(t, cfg.IsDefault())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 1000\nnoColor: true\narchive: history.db\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Timeout)
	assert.True(t, cfg.GetNoColor())
	assert.Equal(t, "history.db", cfg.Archive)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timeout": "soon"}`), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1"}

	merged := base.Merge(&Config{
		Timeout:         100,
		FollowRedirects: BoolPtr(false),
		Headers:         map[string]string{"B": "2"},
		CSRFField:       "token",
	})

	assert.Equal(t, 100, merged.Timeout)
	assert.False(t, merged.GetFollowRedirects())
	assert.True(t, merged.GetValidateSSL())
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, "token", merged.CSRFField)

	// the receiver is not modified
	assert.Equal(t, map[string]string{"A": "1"}, base.Headers)
	assert.Equal(t, 30000, base.Timeout)

	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "out.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Proxy = "http://proxy:3128"
			cfg.Verbose = BoolPtr(true)

			require.NoError(t, cfg.SaveConfig(path))
			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestHTTPOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.HTTPOptions(), 5)

	cfg.Proxy = "http://proxy"
	cfg.UserAgent = "ua"
	cfg.Headers = map[string]string{"A": "1"}
	cfg.RateLimit = 1
	assert.Len(t, cfg.HTTPOptions(), 9)
}
