// Package events implements the observable event bus (spec.md §4.9, §7.3):
// handlers subscribe to named event types and are invoked synchronously on
// Emit, with emission taking a snapshot of the handler list so a handler
// that subscribes or unsubscribes from within its own callback never
// corrupts the in-flight iteration, and a panicking handler never takes
// down the caller or the remaining handlers. Grounded on the
// publish/subscribe shape of the retrieval pack's
// RedClaus-cortex/apps/cortex-avatar/internal/bus.EventBus (string-keyed
// event types, map[Type][]Handler, a slice-append Subscribe), adapted here
// with the reentrancy-safe snapshot and recover() spec.md's error model
// requires and that bus.go does not implement.
package events

import "sync"

// Type names the kind of event published on the bus (spec.md §4.9).
type Type string

const (
	TypeScroll          Type = "scroll"
	TypeRangeChange     Type = "range:change"
	TypeLoadStart       Type = "load:start"
	TypeLoadEnd         Type = "load:end"
	TypeError           Type = "error"
	TypeResize          Type = "resize"
	TypeSelectionChange Type = "selection:change"
)

// Event is a single published occurrence: its Type plus an arbitrary,
// event-specific payload.
type Event struct {
	Type    Type
	Payload any
}

// Handler receives a published Event. A Handler that panics is recovered by
// the bus and reported through onHandlerError rather than propagating.
type Handler func(Event)

// Bus is a synchronous, reentrancy-safe pub/sub dispatcher.
type Bus struct {
	mu       sync.Mutex
	handlers map[Type][]*subscription
	nextID   uint64

	onHandlerError func(Type, any)
}

type subscription struct {
	id uint64
	h  Handler
}

// New constructs an empty Bus. onHandlerError, if non-nil, is invoked
// (outside the lock) whenever a handler panics, with the recovered value.
func New(onHandlerError func(Type, any)) *Bus {
	return &Bus{
		handlers:       make(map[Type][]*subscription),
		onHandlerError: onHandlerError,
	}
}

// subID identifies a previously registered handler so it can be removed
// with Off.
type subID struct {
	t  Type
	id uint64
}

// On subscribes h to events of type t and returns a token for Off.
func (b *Bus) On(t Type, h Handler) any {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, h: h}
	b.handlers[t] = append(b.handlers[t], sub)
	return subID{t: t, id: sub.id}
}

// Off unsubscribes a handler previously returned by On. Safe to call from
// within a handler invoked by an in-flight Emit (spec.md §7.3).
func (b *Bus) Off(token any) {
	sid, ok := token.(subID)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[sid.t]
	for i, s := range subs {
		if s.id == sid.id {
			b.handlers[sid.t] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

// Emit dispatches ev to every handler currently subscribed to ev.Type. The
// handler list is snapshotted under the lock before iteration begins, so
// subscribe/unsubscribe calls made by a handler never affect this Emit's
// own dispatch (spec.md §7.3 "reentrant-safe"). Each handler runs with a
// recover, so one failing handler never prevents the rest from running nor
// propagates to the caller.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	subs := append([]*subscription(nil), b.handlers[ev.Type]...)
	b.mu.Unlock()

	for _, s := range subs {
		b.invoke(s.h, ev)
	}
}

func (b *Bus) invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil && b.onHandlerError != nil {
			b.onHandlerError(ev.Type, r)
		}
	}()
	h(ev)
}

// ListenerCount reports how many handlers are currently subscribed to t,
// mainly useful for tests and diagnostics.
func (b *Bus) ListenerCount(t Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[t])
}
