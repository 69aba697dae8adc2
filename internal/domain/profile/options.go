package profile

// Option applies a configuration option to the InMemoryStore.
type Option func(*InMemoryStore)

// WithInitial seeds the store with a payload, e.g. one restored by a host
// that outlives screens.
func WithInitial(p Payload) Option {
	return func(s *InMemoryStore) {
		if p != nil {
			s.payload = p.Clone()
		}
	}
}
