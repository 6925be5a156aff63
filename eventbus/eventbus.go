// Package eventbus is the synchronous publish/subscribe mechanism for
// mutation notifications: typed Events dispatched per event Type, in
// subscription order, with per-subscriber panic isolation.
package eventbus

import (
	"sync"

	"github.com/worldiety/vfsengine/vfslog"
)

// Type enumerates the mutation and lifecycle events the engine emits.
type Type string

const (
	NodeCreated       Type = "NODE_CREATED"
	NodeUpdated       Type = "NODE_UPDATED"
	NodeDeleted       Type = "NODE_DELETED"
	NodeMoved         Type = "NODE_MOVED"
	NodeCopied        Type = "NODE_COPIED"
	NodesBatchUpdated Type = "NODES_BATCH_UPDATED"
	NodesBatchMoved   Type = "NODES_BATCH_MOVED"
	ModuleMounted     Type = "MODULE_MOUNTED"
	ModuleUnmounted   Type = "MODULE_UNMOUNTED"
	ModuleUpdated     Type = "MODULE_UPDATED"
	VFSReady          Type = "VFS_READY"
)

// Event is the payload delivered to subscribers. Path, when set, is the
// node's canonical system path; consumers scope it with ModuleID.
type Event struct {
	Type      Type
	NodeID    string
	Path      string
	ModuleID  string
	Timestamp int64
	Data      interface{}
}

// Callback receives a dispatched Event. A callback that panics or returns is
// isolated from other subscribers and from the committed state: the bus
// recovers per-subscriber panics and logs them rather than letting one
// listener take down the dispatch loop or affect the committed state.
type Callback func(Event)

// Unsubscribe removes a previously registered subscription.
type Unsubscribe func()

type subscription struct {
	id    uint64
	cb    Callback
	once  bool
	alive bool
}

// Bus is the event bus. The zero value is not usable; use New.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Type][]*subscription
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{subs: map[Type][]*subscription{}}
}

// On registers cb to be invoked for every Event of the given type, in
// subscription order, and returns a function to unsubscribe it.
func (b *Bus) On(t Type, cb Callback) Unsubscribe {
	return b.add(t, cb, false)
}

// Once registers cb to be invoked at most once for the given type.
func (b *Bus) Once(t Type, cb Callback) Unsubscribe {
	return b.add(t, cb, true)
}

func (b *Bus) add(t Type, cb Callback, once bool) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscription{id: b.nextID, cb: cb, once: once, alive: true}
	b.subs[t] = append(b.subs[t], sub)
	id := sub.id
	return func() { b.off(t, id) }
}

// Off removes the one subscription identified by unsubscribe, the handle
// returned by On/Once; t is not consulted. Prefer calling the Unsubscribe
// function returned by On/Once; Off exists for callers that want explicit
// on/off call symmetry.
func (b *Bus) Off(t Type, unsubscribe Unsubscribe) {
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (b *Bus) off(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[t]
	for i, s := range list {
		if s.id == id {
			b.subs[t] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Clear removes all subscriptions for t, or every subscription for every
// type if t is the empty string.
func (b *Bus) Clear(t Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t == "" {
		b.subs = map[Type][]*subscription{}
		return
	}
	delete(b.subs, t)
}

// Emit dispatches ev synchronously to every subscriber of ev.Type, in
// subscription order. Emitters must call Emit only after the triggering
// transaction's Done() resolves, never from inside a transaction; Emit
// itself does not enforce this, the engine sequences calls correctly.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	subsCopy := append([]*subscription(nil), b.subs[ev.Type]...)
	b.mu.Unlock()

	var toRemove []uint64
	for _, s := range subsCopy {
		b.dispatch(s, ev)
		if s.once {
			toRemove = append(toRemove, s.id)
		}
	}
	for _, id := range toRemove {
		b.off(ev.Type, id)
	}
}

func (b *Bus) dispatch(s *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			eventbusLog := vfslog.Component("eventbus")
			eventbusLog.Error().
				Interface("panic", r).
				Str("eventType", string(ev.Type)).
				Msg("subscriber panicked, isolating")
		}
	}()
	s.cb(ev)
}
