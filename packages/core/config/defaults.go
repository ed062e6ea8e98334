package config

import "github.com/abdul-hamid-achik/httpcraft/packages/csrf"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30000, // 30 seconds
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		Proxy:           "",
		Headers:         nil,
		SessionCookies:  BoolPtr(true),
		RateLimit:       0,
		RateBurst:       1,
		CSRFMode:        string(csrf.ModeNone),
		CSRFField:       csrf.DefaultField,
		ResponsesDir:    "responses",
		TruncateBody:    500,
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		c.UserAgent == defaults.UserAgent &&
		len(c.Headers) == 0 &&
		c.GetSessionCookies() == defaults.GetSessionCookies() &&
		c.RateLimit == defaults.RateLimit &&
		c.RateBurst == defaults.RateBurst &&
		c.CSRFMode == defaults.CSRFMode &&
		c.CSRFField == defaults.CSRFField &&
		c.Archive == defaults.Archive &&
		c.ResponsesDir == defaults.ResponsesDir &&
		c.TruncateBody == defaults.TruncateBody &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
