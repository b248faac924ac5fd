package volume

import (
	"sort"
	"sync"

	"github.com/nyarurato/millsim/grid"
)

// ChangeFunc is called with the inclusive voxel-index AABB of every
// voxel changed by a single mutator call. The callback runs synchronously
// on the mutating goroutine, after every write it describes is visible to
// subsequent reads (§5's release/acquire ordering requirement) — a bound
// SDF Engine's region update runs directly inside this call.
type ChangeFunc func(min, max grid.Index)

// Subscription is an opaque handle to a registered ChangeFunc. It must be
// released with Unsubscribe; doing so never affects the Store's own
// lifetime (the binding is a weak link, not shared ownership).
type Subscription struct {
	id    uint64
	notif *notifier
}

// Unsubscribe removes the callback this Subscription was returned for.
// Safe to call more than once; the second and later calls are no-ops.
func (s Subscription) Unsubscribe() {
	if s.notif == nil {
		return
	}
	s.notif.remove(s.id)
}

// notifier holds the Store's list of subscribers, identified by opaque
// handle, and fires them in subscription order. Zero value is ready to
// use.
type notifier struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]ChangeFunc
}

func (n *notifier) subscribe(fn ChangeFunc) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[uint64]ChangeFunc)
	}
	n.nextID++
	id := n.nextID
	n.subs[id] = fn
	return Subscription{id: id, notif: n}
}

func (n *notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, id)
}

// fire invokes every current subscriber with the changed region. It
// snapshots the callback list under lock then calls out without holding
// it, so a subscriber calling Unsubscribe on itself (or subscribing a new
// handler) from within its callback cannot deadlock.
func (n *notifier) fire(min, max grid.Index) {
	n.mu.Lock()
	if len(n.subs) == 0 {
		n.mu.Unlock()
		return
	}
	// IDs are handed out in increasing order, so sorting them restores
	// subscription order (map iteration order is random).
	ids := make([]uint64, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	fns := make([]ChangeFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(min, max)
	}
}
