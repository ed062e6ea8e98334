package persist

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/httpcraft/packages/core/state"
	"github.com/abdul-hamid-achik/httpcraft/packages/csrf"
)

// document shape errors
var (
	errNotObject   = errors.New("document is not an object")
	errInvalidJSON = errors.New("invalid json")
)

// Config is the persisted client configuration.
type Config struct {
	BaseURL     string            `json:"base_url" yaml:"base_url"`
	Host        string            `json:"host" yaml:"host"`
	Port        *int              `json:"port" yaml:"port"`
	CSRFMode    string            `json:"csrf_mode" yaml:"csrf_mode"`
	CSRFField   string            `json:"csrf_field" yaml:"csrf_field"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
	Cookies     map[string]string `json:"cookies" yaml:"cookies"`
	Payload     map[string]any    `json:"payload" yaml:"payload"`
	PayloadMode string            `json:"payload_mode" yaml:"payload_mode"`
}

// DefaultConfig returns the values a field falls back to when it is
// missing or has the wrong type.
func DefaultConfig() Config {
	return Config{
		CSRFMode:    string(csrf.ModeNone),
		CSRFField:   csrf.DefaultField,
		Headers:     map[string]string{},
		Cookies:     map[string]string{},
		Payload:     map[string]any{},
		PayloadMode: string(state.ModeJSON),
	}
}

// SaveConfig writes cfg to path as YAML for .yaml/.yml files, JSON otherwise.
func SaveConfig(path string, cfg Config) error {
	cfg = normalize(cfg)
	if isYAML(path) {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return wrap("save config", path, err)
		}
		return wrap("save config", path, os.WriteFile(path, data, 0644))
	}
	return writeJSON("save config", path, cfg, "  ")
}

// LoadConfig reads a configuration document written by SaveConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, wrap("load config", path, err)
	}
	if isYAML(path) {
		data, err = yamlToJSON(data)
		if err != nil {
			return Config{}, wrap("load config", path, err)
		}
	}
	cfg, err := DecodeConfig(data)
	if err != nil {
		return Config{}, wrap("load config", path, err)
	}
	return cfg, nil
}

// DecodeConfig parses a JSON configuration document. Only a document that
// is not a JSON object fails; any field of unexpected type takes its
// DefaultConfig value.
func DecodeConfig(data []byte) (Config, error) {
	if !gjson.ValidBytes(data) {
		return Config{}, errInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Config{}, errNotObject
	}

	cfg := DefaultConfig()
	cfg.BaseURL = stringField(doc.Get("base_url"), "")
	cfg.Host = stringField(doc.Get("host"), "")
	cfg.Port = portField(doc.Get("port"))

	if m := stringField(doc.Get("csrf_mode"), ""); m != "" {
		if mode, err := csrf.ParseMode(m); err == nil {
			cfg.CSRFMode = string(mode)
		}
	}
	if f := stringField(doc.Get("csrf_field"), ""); f != "" {
		cfg.CSRFField = f
	}

	cfg.Headers = stringMap(doc.Get("headers"))
	cfg.Cookies = stringMap(doc.Get("cookies"))
	cfg.Payload = objectField(doc.Get("payload"))

	if m, err := state.ParseMode(stringField(doc.Get("payload_mode"), "")); err == nil {
		cfg.PayloadMode = string(m)
	}

	return cfg, nil
}

func normalize(cfg Config) Config {
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if cfg.Cookies == nil {
		cfg.Cookies = map[string]string{}
	}
	if cfg.Payload == nil {
		cfg.Payload = map[string]any{}
	}
	if cfg.CSRFMode == "" {
		cfg.CSRFMode = string(csrf.ModeNone)
	}
	if cfg.CSRFField == "" {
		cfg.CSRFField = csrf.DefaultField
	}
	if cfg.PayloadMode == "" {
		cfg.PayloadMode = string(state.ModeJSON)
	}
	return cfg
}

func stringField(r gjson.Result, def string) string {
	if r.Type != gjson.String {
		return def
	}
	return r.Str
}

func portField(r gjson.Result) *int {
	if r.Type != gjson.Number {
		return nil
	}
	f := r.Float()
	if f != math.Trunc(f) || f < 1 || f > 65535 {
		return nil
	}
	p := int(f)
	return &p
}

// stringMap keeps string and scalar entries of an object. Nested objects,
// arrays and nulls are dropped.
func stringMap(r gjson.Result) map[string]string {
	out := map[string]string{}
	if !r.IsObject() {
		return out
	}
	r.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.String:
			out[key.String()] = value.Str
		case gjson.Number, gjson.True, gjson.False:
			out[key.String()] = value.Raw
		}
		return true
	})
	return out
}

func objectField(r gjson.Result) map[string]any {
	if !r.IsObject() {
		return map[string]any{}
	}
	dec := json.NewDecoder(strings.NewReader(r.Raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return map[string]any{}
	}
	for k, v := range m {
		m[k] = exactNumbers(v)
	}
	return m
}

// maxExactInt is the largest magnitude at which float64 still holds every
// integer.
const maxExactInt = 1 << 53

// exactNumbers turns decoded numbers into float64, except integers beyond
// maxExactInt, which stay json.Number so their digits survive.
func exactNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = exactNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = exactNumbers(item)
		}
		return val
	case json.Number:
		if !strings.ContainsAny(val.String(), ".eE") {
			n, err := val.Int64()
			if err != nil || n > maxExactInt || n < -maxExactInt {
				return val
			}
		}
		f, err := val.Float64()
		if err != nil {
			return val
		}
		return f
	default:
		return v
	}
}

// yamlToJSON converts a YAML document to JSON for DecodeConfig.
func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}
