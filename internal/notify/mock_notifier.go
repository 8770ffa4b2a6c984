package notify

import (
	"context"
	"sync"
)

// Mock records announcements for assertions in tests.
type Mock struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

// Announce stores the event and returns the configured error.
func (m *Mock) Announce(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
	return m.Err
}

// Count returns how many announcements were recorded.
func (m *Mock) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}
