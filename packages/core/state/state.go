package state

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
)

// NoEntry is returned by the single-key lookups when the key is missing.
// Lookups also report ok=false, so callers can tell it apart from a stored
// value that happens to equal NoEntry.
const NoEntry = "no entry for this key"

// ErrInvalidMode is returned for payload modes other than json and form
var ErrInvalidMode = errors.New("invalid payload mode")

// Mode says how a payload is transmitted.
type Mode string

const (
	ModeJSON Mode = "json"
	ModeForm Mode = "form"
)

// DefaultMode is the payload mode of a fresh or cleared store.
const DefaultMode = ModeJSON

func (m Mode) Valid() bool {
	return m == ModeJSON || m == ModeForm
}

func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidMode, s, ModeJSON, ModeForm)
	}
	return m, nil
}

// Snapshot is a deep copy of the store at one point in time.
type Snapshot struct {
	Headers map[string]string
	Cookies map[string]string
	Payload map[string]any
	Mode    Mode
}

// Store holds headers, cookies and the payload that outlive any single
// request. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	headers map[string]string
	cookies map[string]string
	payload map[string]any
	mode    Mode
}

// NewStore returns an empty store in json mode.
func NewStore() *Store {
	return &Store{
		headers: make(map[string]string),
		cookies: make(map[string]string),
		payload: make(map[string]any),
		mode:    DefaultMode,
	}
}

// Snapshot returns a deep copy of all state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Headers: maps.Clone(s.headers),
		Cookies: maps.Clone(s.cookies),
		Payload: CopyMap(s.payload),
		Mode:    s.mode,
	}
}

// Restore replaces all state with snap. An invalid mode falls back to
// DefaultMode.
func (s *Store) Restore(snap Snapshot) {
	mode := snap.Mode
	if !mode.Valid() {
		mode = DefaultMode
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = cloneOrEmpty(snap.Headers)
	s.cookies = cloneOrEmpty(snap.Cookies)
	s.payload = CopyMap(snap.Payload)
	if s.payload == nil {
		s.payload = make(map[string]any)
	}
	s.mode = mode
}

// Reset empties every map and restores the default mode.
func (s *Store) Reset() {
	s.Restore(Snapshot{})
}

// Headers

func (s *Store) SetHeaders(headers map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = cloneOrEmpty(headers)
}

func (s *Store) Headers() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.headers)
}

func (s *Store) SetHeader(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[key] = value
}

// Header returns the header value, or NoEntry and false.
func (s *Store) Header(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.headers, key)
}

func (s *Store) RemoveHeader(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.headers, key)
}

// AppendHeaders adds or overwrites the given headers.
func (s *Store) AppendHeaders(headers map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.headers, headers)
}

func (s *Store) ClearHeaders() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = make(map[string]string)
}

// Cookies

func (s *Store) SetCookies(cookies map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = cloneOrEmpty(cookies)
}

func (s *Store) Cookies() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.cookies)
}

func (s *Store) AddCookie(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[key] = value
}

// Cookie returns the cookie value, or NoEntry and false.
func (s *Store) Cookie(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.cookies, key)
}

func (s *Store) RemoveCookie(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cookies, key)
}

func (s *Store) AppendCookies(cookies map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.cookies, cookies)
}

func (s *Store) ClearCookies() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = make(map[string]string)
}

// Payload

// SetPayload replaces the payload and its mode. Nothing changes when mode
// is invalid.
func (s *Store) SetPayload(payload map[string]any, mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidMode, mode, ModeJSON, ModeForm)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = CopyMap(payload)
	if s.payload == nil {
		s.payload = make(map[string]any)
	}
	s.mode = mode
	return nil
}

func (s *Store) Payload() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CopyMap(s.payload)
}

func (s *Store) PayloadMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Store) SetPayloadEntry(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload[key] = CopyValue(value)
}

// PayloadEntry returns the payload value, or NoEntry and false.
func (s *Store) PayloadEntry(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.payload[key]
	if !ok {
		return NoEntry, false
	}
	return CopyValue(v), true
}

func (s *Store) RemovePayloadEntry(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payload, key)
}

// AppendPayload adds or overwrites the given entries, keeping the mode.
func (s *Store) AppendPayload(entries map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		s.payload[k] = CopyValue(v)
	}
}

// ClearPayload empties the payload and resets the mode to json.
func (s *Store) ClearPayload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = make(map[string]any)
	s.mode = DefaultMode
}

func lookup(m map[string]string, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return NoEntry, false
	}
	return v, true
}

func cloneOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string)
	}
	return maps.Clone(m)
}
