package events

// Listener receives outbound events.
type Listener interface {
	OnEvent(ev Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev Event)

// OnEvent calls f(ev).
func (f ListenerFunc) OnEvent(ev Event) { f(ev) }

type subscription struct {
	id       int
	listener Listener
	filter   map[Type]bool // nil = all types
}

// Bus delivers events synchronously to listeners in registration order.
// It is owned by the engine goroutine and is not safe for concurrent use.
type Bus struct {
	subs   []subscription
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a listener for the given types, or for every type
// when none are given. The returned function removes the subscription.
func (b *Bus) Subscribe(l Listener, types ...Type) (unsubscribe func()) {
	sub := subscription{id: b.nextID, listener: l}
	b.nextID++
	if len(types) > 0 {
		sub.filter = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.filter[t] = true
		}
	}
	b.subs = append(b.subs, sub)

	id := sub.id
	return func() { b.remove(id) }
}

// SubscribeFunc is Subscribe for plain functions.
func (b *Bus) SubscribeFunc(f func(Event), types ...Type) (unsubscribe func()) {
	return b.Subscribe(ListenerFunc(f), types...)
}

func (b *Bus) remove(id int) {
	// Copy so a Publish in progress keeps iterating its own view.
	kept := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	b.subs = kept
}

// Publish delivers ev to every matching listener.
// Listeners subscribed during delivery see the next event, not this one.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	subs := b.subs
	for _, s := range subs {
		if s.filter != nil && !s.filter[ev.Type()] {
			continue
		}
		s.listener.OnEvent(ev)
	}
}

// Len returns the number of subscriptions.
func (b *Bus) Len() int {
	return len(b.subs)
}

// Recorder is a Listener that keeps every event it sees.
// Useful for collaborators that drain events once per frame, and in tests.
type Recorder struct {
	Events []Event
}

// OnEvent appends ev.
func (r *Recorder) OnEvent(ev Event) {
	r.Events = append(r.Events, ev)
}

// Drain returns the recorded events and clears the recorder.
func (r *Recorder) Drain() []Event {
	out := r.Events
	r.Events = nil
	return out
}

// Count returns how many recorded events have type t.
func (r *Recorder) Count(t Type) int {
	n := 0
	for _, ev := range r.Events {
		if ev.Type() == t {
			n++
		}
	}
	return n
}
