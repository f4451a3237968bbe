package capture

import "sync"

// broadcaster fans snapshots out to subscribers. Slow subscribers miss
// snapshots rather than block the session.
type broadcaster struct {
	mu      sync.RWMutex
	clients map[chan Snapshot]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{clients: make(map[chan Snapshot]struct{})}
}

func (b *broadcaster) subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

func (b *broadcaster) publish(s Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- s:
		default:
		}
	}
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
