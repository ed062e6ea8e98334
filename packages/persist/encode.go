package persist

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// MarshalIndent encodes v as indented JSON without HTML escaping and
// without a trailing newline.
func MarshalIndent(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeJSON(op, path string, v any, indent string) error {
	data, err := MarshalIndent(v, indent)
	if err != nil {
		return wrap(op, path, err)
	}
	return wrap(op, path, os.WriteFile(path, append(data, '\n'), 0644))
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
