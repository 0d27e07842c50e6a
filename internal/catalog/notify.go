package catalog

import "sync"

// ModifiedFunc is called with a record whose explicit dirty flag just went
// from false to true.
type ModifiedFunc func(*AssetRecord)

// Notifier fans modification events out to subscribers. Callbacks run
// synchronously on the goroutine that dirtied the record, so they may run
// concurrently with each other for unrelated records.
type Notifier struct {
	mu   sync.RWMutex
	next uint64
	subs []subscription
}

type subscription struct {
	id uint64
	fn ModifiedFunc
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn ModifiedFunc) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	id := n.next
	n.subs = append(n.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			// Copy so in-flight notify snapshots are unaffected.
			subs := make([]subscription, 0, len(n.subs)-1)
			subs = append(subs, n.subs[:i]...)
			n.subs = append(subs, n.subs[i+1:]...)
			return
		}
	}
}

func (n *Notifier) notify(a *AssetRecord) {
	if n == nil {
		return
	}
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()
	for _, s := range subs {
		s.fn(a)
	}
}
