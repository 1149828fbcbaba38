package broker

import "sync"

// subscriberTable is the process-wide set of destination ports already
// held by a live non-persistent subscriber. Per spec.md §4.6/§5 it is
// mutated only by the registrar goroutine, but a mutex is kept anyway
// since workers never terminate on their own and a future lift of that
// restriction should not require touching the synchronization here.
type subscriberTable struct {
	mu    sync.Mutex
	ports map[string]bool
}

func newSubscriberTable() *subscriberTable {
	return &subscriberTable{ports: make(map[string]bool)}
}

// admitNonPersistent reports whether port may be admitted: true if no
// live non-persistent subscriber already holds it, in which case the
// port is recorded as held.
func (t *subscriberTable) admitNonPersistent(port string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ports[port] {
		return false
	}
	t.ports[port] = true
	return true
}
