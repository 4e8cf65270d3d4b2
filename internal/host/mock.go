package host

import (
	"context"
	"sync"

	"github.com/TheMichaelB/overlaycfg/internal/models"
)

// Call records one invocation on MockHost.
type Call struct {
	Key     string
	Payload any
}

// MockHost provides a mock implementation for testing.
type MockHost struct {
	mu sync.Mutex

	// Response configuration
	Intro    *Introspection
	Adapters []Adapter

	// Error injection, keyed by endpoint
	Errors map[string]error

	// Request tracking
	Calls []Call
	Specs []Spec

	closed bool
}

// NewMockHost creates a mock host with an empty catalog.
func NewMockHost() *MockHost {
	return &MockHost{
		Intro:  &Introspection{Metrics: []Metric{}, Stats: []Stat{}, Units: []Unit{}},
		Errors: make(map[string]error),
	}
}

// Fail makes every call to key return err. Pass nil to clear.
func (m *MockHost) Fail(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Errors, key)
		return
	}
	m.Errors[key] = err
}

func (m *MockHost) record(key string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Key: key, Payload: payload})
	return m.Errors[key]
}

// CallsTo returns the recorded calls for key.
func (m *MockHost) CallsTo(key string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.Calls {
		if c.Key == key {
			out = append(out, c)
		}
	}
	return out
}

// LastSpec returns the most recently pushed specification.
func (m *MockHost) LastSpec() (Spec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Specs) == 0 {
		return Spec{}, false
	}
	return m.Specs[len(m.Specs)-1], true
}

// PushSpecification records spec.
func (m *MockHost) PushSpecification(ctx context.Context, spec Spec) error {
	if err := m.record(EndpointPushSpecification, spec); err != nil {
		return err
	}
	m.mu.Lock()
	m.Specs = append(m.Specs, spec)
	m.mu.Unlock()
	return nil
}

// BindHotkey records binding.
func (m *MockHost) BindHotkey(ctx context.Context, binding models.Binding) error {
	return m.record(EndpointBindHotkey, binding.Clone())
}

// ClearHotkey records action.
func (m *MockHost) ClearHotkey(ctx context.Context, action models.Action) error {
	return m.record(EndpointClearHotkey, action)
}

// SetCapture records active.
func (m *MockHost) SetCapture(ctx context.Context, active bool) error {
	return m.record(EndpointSetCapture, active)
}

// Introspect returns Intro.
func (m *MockHost) Introspect(ctx context.Context) (*Introspection, error) {
	if err := m.record(EndpointIntrospect, nil); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Intro, nil
}

// EnumerateAdapters returns Adapters.
func (m *MockHost) EnumerateAdapters(ctx context.Context) ([]Adapter, error) {
	if err := m.record(EndpointEnumerateAdapters, nil); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Adapters, nil
}

// Close marks the mock closed.
func (m *MockHost) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockHost) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
