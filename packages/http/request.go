package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// ErrUnsupportedPayload is returned when a payload cannot be form encoded
var ErrUnsupportedPayload = errors.New("payload cannot be form encoded")

type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Cookies     map[string]string
	Query       url.Values
	Body        []byte
	ContentType string
	Timeout     time.Duration
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
		Cookies: make(map[string]string),
		Query:   make(url.Values),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetCookie(name, value string) *Request {
	r.Cookies[name] = value
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.Query.Set(key, value)
	return r
}

// SetJSONBody marshals v as the request body.
func (r *Request) SetJSONBody(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding json body: %w", err)
	}
	r.Body = body
	r.ContentType = ContentTypeJSON
	return nil
}

// SetFormBody form-encodes v as the request body. An empty form sends no body.
func (r *Request) SetFormBody(v any) error {
	values, err := EncodeForm(v)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		r.Body = nil
		return nil
	}
	r.Body = []byte(values.Encode())
	r.ContentType = ContentTypeForm
	return nil
}

// SetQuery form-encodes v into the query string.
func (r *Request) SetQuery(v any) error {
	values, err := EncodeForm(v)
	if err != nil {
		return err
	}
	for k, vs := range values {
		for _, s := range vs {
			r.Query.Add(k, s)
		}
	}
	return nil
}

// BuildURL returns URL with Query merged into its query string.
func (r *Request) BuildURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, vs := range r.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// EncodeForm converts a flat payload into form values. Slices become
// repeated keys, nil values are skipped and nested objects are sent as JSON.
func EncodeForm(v any) (url.Values, error) {
	values := make(url.Values)
	switch p := v.(type) {
	case nil:
		return values, nil
	case url.Values:
		for k, vs := range p {
			values[k] = append([]string(nil), vs...)
		}
		return values, nil
	case map[string]string:
		for k, s := range p {
			values.Set(k, s)
		}
		return values, nil
	case map[string]any:
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch item := p[k].(type) {
			case nil:
			case []any:
				for _, elem := range item {
					if elem == nil {
						continue
					}
					s, err := formScalar(elem)
					if err != nil {
						return nil, fmt.Errorf("%w: field %q: %v", ErrUnsupportedPayload, k, err)
					}
					values.Add(k, s)
				}
			case []string:
				for _, s := range item {
					values.Add(k, s)
				}
			default:
				s, err := formScalar(item)
				if err != nil {
					return nil, fmt.Errorf("%w: field %q: %v", ErrUnsupportedPayload, k, err)
				}
				values.Set(k, s)
			}
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedPayload, v)
	}
}

func formScalar(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case bool:
		return strconv.FormatBool(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", s), nil
	case json.Number:
		return s.String(), nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func ParseFormBody(body string) map[string]string {
	result := make(map[string]string)
	pairs := strings.Split(body, "&")
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			key, _ := url.QueryUnescape(kv[0])
			value, _ := url.QueryUnescape(kv[1])
			result[key] = value
		}
	}
	return result
}
