package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/httpcraft/packages/http"
)

// Config represents the httpcraft client settings file
type Config struct {
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	UserAgent       string            `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	SessionCookies  *bool             `json:"sessionCookies,omitempty" yaml:"sessionCookies,omitempty"`
	RateLimit       float64           `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second
	RateBurst       int               `json:"rateBurst,omitempty" yaml:"rateBurst,omitempty"`
	CSRFMode        string            `json:"csrfMode,omitempty" yaml:"csrfMode,omitempty"`
	CSRFField       string            `json:"csrfField,omitempty" yaml:"csrfField,omitempty"`
	Archive         string            `json:"archive,omitempty" yaml:"archive,omitempty"` // SQLite path
	ResponsesDir    string            `json:"responsesDir,omitempty" yaml:"responsesDir,omitempty"`
	TruncateBody    int               `json:"truncateBody,omitempty" yaml:"truncateBody,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetSessionCookies returns the session cookie setting, defaulting to true
func (c *Config) GetSessionCookies() bool {
	return getBool(c.SessionCookies, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration returns Timeout as a time.Duration
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// HTTPOptions translates the transport settings into client options.
func (c *Config) HTTPOptions() []http.ClientOption {
	opts := []http.ClientOption{
		http.WithFollowRedirects(c.GetFollowRedirects()),
		http.WithValidateSSL(c.GetValidateSSL()),
		http.WithSessionCookies(c.GetSessionCookies()),
	}
	if c.Timeout > 0 {
		opts = append(opts, http.WithTimeout(c.TimeoutDuration()))
	}
	if c.MaxRedirects > 0 {
		opts = append(opts, http.WithMaxRedirects(c.MaxRedirects))
	}
	if c.Proxy != "" {
		opts = append(opts, http.WithProxy(c.Proxy))
	}
	if c.UserAgent != "" {
		opts = append(opts, http.WithUserAgent(c.UserAgent))
	}
	if len(c.Headers) > 0 {
		opts = append(opts, http.WithDefaultHeaders(c.Headers))
	}
	if c.RateLimit > 0 {
		opts = append(opts, http.WithRateLimit(c.RateLimit, c.RateBurst))
	}
	return opts
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".httpcraft.json",
	"httpcraft.config.json",
	".httpcraft.yaml",
	".httpcraftrc",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return config, nil
	}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.RateBurst > 0 {
		result.RateBurst = other.RateBurst
	}
	if other.CSRFMode != "" {
		result.CSRFMode = other.CSRFMode
	}
	if other.CSRFField != "" {
		result.CSRFField = other.CSRFField
	}
	if other.Archive != "" {
		result.Archive = other.Archive
	}
	if other.ResponsesDir != "" {
		result.ResponsesDir = other.ResponsesDir
	}
	if other.TruncateBody > 0 {
		result.TruncateBody = other.TruncateBody
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.SessionCookies != nil {
		result.SessionCookies = other.SessionCookies
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge headers
	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
