package persist

import (
	"os"

	"github.com/tidwall/gjson"
)

const sliceIndent = "    "

func SaveHeaders(path string, headers map[string]string) error {
	if headers == nil {
		headers = map[string]string{}
	}
	return writeJSON("save headers", path, headers, sliceIndent)
}

func LoadHeaders(path string) (map[string]string, error) {
	r, err := readObject("load headers", path)
	if err != nil {
		return nil, err
	}
	return stringMap(r), nil
}

func SaveCookies(path string, cookies map[string]string) error {
	if cookies == nil {
		cookies = map[string]string{}
	}
	return writeJSON("save cookies", path, cookies, sliceIndent)
}

func LoadCookies(path string) (map[string]string, error) {
	r, err := readObject("load cookies", path)
	if err != nil {
		return nil, err
	}
	return stringMap(r), nil
}

func SavePayload(path string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	return writeJSON("save payload", path, payload, sliceIndent)
}

func LoadPayload(path string) (map[string]any, error) {
	r, err := readObject("load payload", path)
	if err != nil {
		return nil, err
	}
	return objectField(r), nil
}

func readObject(op, path string) (gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gjson.Result{}, wrap(op, path, err)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, wrap(op, path, errInvalidJSON)
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return gjson.Result{}, wrap(op, path, errNotObject)
	}
	return r, nil
}
