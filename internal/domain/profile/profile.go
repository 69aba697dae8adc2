// Package profile holds the technician payload decoded from an invitation
// code and the store that hands it from the scanner to the review screen.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"
)

// Payload is the open-ended key/value data of an invitation code. No
// schema is enforced; consumers read fields by convention.
type Payload map[string]any

// Decode parses raw scanned content into a Payload. The content must be a
// single UTF-8 JSON object.
func Decode(raw string) (Payload, error) {
	if !utf8.ValidString(raw) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrMalformed)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: content is not an object", ErrMalformed)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}
	return p, nil
}

// Clone returns a deep copy of p. Nested objects and arrays are copied;
// scalars are shared.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Payload:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// String returns the field at key when it holds a string.
func (p Payload) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// Store holds the most recently acquired payload. There is no history.
type Store interface {
	// Write atomically replaces the stored payload.
	Write(ctx context.Context, p Payload)
	// Read returns the stored payload, or an empty one if nothing was
	// written yet.
	Read(ctx context.Context) Payload
}

// InMemoryStore implements Store for one app session. Writes replace the
// whole payload under a lock and reads return copies, so a reader never
// sees a partial payload and cannot alter the stored one.
type InMemoryStore struct {
	mu      sync.RWMutex
	payload Payload
	writes  uint64
}

// NewInMemoryStore creates a store holding an empty payload.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{payload: Payload{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write implements Store.
func (s *InMemoryStore) Write(_ context.Context, p Payload) {
	next := p.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = next
	s.writes++
}

// Read implements Store.
func (s *InMemoryStore) Read(_ context.Context) Payload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payload.Clone()
}

// Writes reports how many times the payload was replaced.
func (s *InMemoryStore) Writes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
