// Package config handles the httpcraft client settings file.
//
// It provides functionality for:
//   - Loading .httpcraft.json, httpcraft.config.json or .httpcraft.yaml
//   - Default configuration values
//   - Merging file settings with command line overrides
//   - Translating settings into transport options
package config
