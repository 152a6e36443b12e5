// Package connectivity tracks whether the device can reach the sync backend
// and notifies subscribers on transitions. The engine never polls; it reacts
// to the notifier it was given.
package connectivity

import "sync"

// Notifier reports connectivity and delivers transition callbacks.
type Notifier interface {
	// Online reports the last observed connectivity state.
	Online() bool

	// Subscribe registers fn to run on every state transition. The returned
	// function removes the subscription.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Manual is a Notifier driven by explicit SetOnline calls. It is the default
// notifier for embedders that learn connectivity from the host platform, and
// the building block the websocket Probe publishes through.
type Manual struct {
	mu          sync.Mutex
	online      bool
	nextID      int
	subscribers map[int]func(online bool)
}

var _ Notifier = (*Manual)(nil)

// NewManual returns a notifier in the offline state.
func NewManual() *Manual {
	return &Manual{subscribers: make(map[int]func(online bool))}
}

func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Manual) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// SetOnline records the new state and, when it changed, runs every
// subscriber. Callbacks run outside the lock so subscribers may call back
// into the notifier.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]func(bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}
