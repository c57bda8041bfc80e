// Package store holds the in-memory collections shared between the scan
// engine (writer) and downstream consumers such as the risk engine, report
// generator, and AI analyst (readers). All mutations are mutex-guarded and
// announce themselves through explicitly registered subscriber callbacks.
package store

import "sync"

// Subscriber receives a notification after a store mutation. Callbacks may
// fire on a different goroutine than the one that registered them and must
// not call back into the store synchronously while holding their own locks.
type Subscriber func()

type notifier struct {
	mu   sync.Mutex
	subs []Subscriber
}

func (n *notifier) subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

// notify invokes every subscriber outside the data lock of the owning store.
func (n *notifier) notify() {
	n.mu.Lock()
	subs := make([]Subscriber, len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
