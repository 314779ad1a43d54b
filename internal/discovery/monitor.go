package discovery

import (
	"context"
	"strings"
	"sync"

	"github.com/muurk/goveeplug/internal/ble"
)

// Listener receives every advertisement observed for one watched address
type Listener func(ble.Advertisement)

// Monitor runs a continuous scan and routes advertisements to per-address
// listeners. It is the passive half of the engine: plugs report their power
// state in every broadcast, so a listener wired to Plug.UpdateFromAdvertisement
// keeps cached state fresh without ever connecting.
//
// Listeners run on the radio's callback goroutine and must not block.
type Monitor struct {
	adapter ble.Adapter

	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]Listener // address -> id -> listener
}

// NewMonitor creates a monitor on the given adapter
func NewMonitor(adapter ble.Adapter) *Monitor {
	return &Monitor{
		adapter:   adapter,
		listeners: make(map[string]map[int]Listener),
	}
}

// Attach registers a listener for one address and returns a detach function.
// An empty address watches every supported plug. Attach may be called before
// or during Run.
func (m *Monitor) Attach(address string, fn Listener) (detach func()) {
	key := strings.ToLower(address)

	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	if m.listeners[key] == nil {
		m.listeners[key] = make(map[int]Listener)
	}
	m.listeners[key][id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[key], id)
		if len(m.listeners[key]) == 0 {
			delete(m.listeners, key)
		}
	}
}

// Run scans until ctx is cancelled, dispatching advertisements from
// supported plugs to matching listeners. Cancellation returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	return m.adapter.Scan(ctx, func(adv ble.Advertisement) {
		if _, ok := observe(adv); !ok {
			return
		}
		for _, fn := range m.snapshot(strings.ToLower(adv.Address)) {
			fn(adv)
		}
	})
}

// snapshot collects the listeners for an address plus the watch-all set,
// copied out so dispatch happens without holding the lock
func (m *Monitor) snapshot(address string) []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fns []Listener
	for _, fn := range m.listeners[address] {
		fns = append(fns, fn)
	}
	for _, fn := range m.listeners[""] {
		fns = append(fns, fn)
	}
	return fns
}
