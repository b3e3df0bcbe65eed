package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/events"
)

// DestroyHook runs before a destroyed fruit leaves the world, while its
// components can still be read.
type DestroyHook func(e ecs.Entity, cause events.DestroyCause)

// TrackHook runs after a fruit enters the tracked set.
type TrackHook func(e ecs.Entity)

// Registry owns every fruit entity in the ark world and the authoritative
// set of tracked (live, on-board) fruit.
//
// Component pointers returned by Fruit/Body/Get are only valid until the
// next Create or Destroy; re-fetch after any structural change.
type Registry struct {
	world  *ecs.World
	mapper *ecs.Map2[components.Fruit, components.Body]
	fruits *ecs.Map1[components.Fruit]
	bodies *ecs.Map1[components.Body]
	filter *ecs.Filter2[components.Fruit, components.Body]

	// Tracked fruit in insertion order
	order []ecs.Entity
	index map[ecs.Entity]int

	hooks      []DestroyHook
	trackHooks []TrackHook
	destroying map[ecs.Entity]bool
	bus        *events.Bus
}

// NewRegistry creates a registry backed by a fresh ark world.
func NewRegistry(bus *events.Bus) *Registry {
	world := ecs.NewWorld()
	return &Registry{
		world:      world,
		mapper:     ecs.NewMap2[components.Fruit, components.Body](world),
		fruits:     ecs.NewMap1[components.Fruit](world),
		bodies:     ecs.NewMap1[components.Body](world),
		filter:     ecs.NewFilter2[components.Fruit, components.Body](world),
		index:      make(map[ecs.Entity]int),
		destroying: make(map[ecs.Entity]bool),
		bus:        bus,
	}
}

// World returns the underlying ark world.
func (r *Registry) World() *ecs.World {
	return r.world
}

// Filter returns the fruit+body filter for systems that iterate every
// instantiated fruit, tracked or not.
func (r *Registry) Filter() *ecs.Filter2[components.Fruit, components.Body] {
	return r.filter
}

// OnDestroy registers a hook. Hooks run in registration order.
func (r *Registry) OnDestroy(h DestroyHook) {
	r.hooks = append(r.hooks, h)
}

// OnTrack registers a hook run whenever Add tracks a new fruit.
func (r *Registry) OnTrack(h TrackHook) {
	r.trackHooks = append(r.trackHooks, h)
}

// Create instantiates a fruit entity. It is not tracked until Add.
func (r *Registry) Create(fruit components.Fruit, body components.Body) ecs.Entity {
	return r.mapper.NewEntity(&fruit, &body)
}

// Alive reports whether e refers to an instantiated fruit.
func (r *Registry) Alive(e ecs.Entity) bool {
	return !e.IsZero() && r.world.Alive(e)
}

// Fruit returns the fruit component of any alive entity, tracked or not.
func (r *Registry) Fruit(e ecs.Entity) *components.Fruit {
	if !r.Alive(e) {
		return nil
	}
	return r.fruits.Get(e)
}

// Body returns the body component of any alive entity, tracked or not.
func (r *Registry) Body(e ecs.Entity) *components.Body {
	if !r.Alive(e) {
		return nil
	}
	return r.bodies.Get(e)
}

// Add starts tracking e. Only released fruit and merge results are
// accepted; anything still held by the spawner is refused.
func (r *Registry) Add(e ecs.Entity) bool {
	f := r.Fruit(e)
	if f == nil || !f.Trackable() {
		return false
	}
	if _, ok := r.index[e]; ok {
		return true
	}
	r.index[e] = len(r.order)
	r.order = append(r.order, e)
	for _, h := range r.trackHooks {
		h(e)
	}
	return true
}

// Remove stops tracking e. Removing an absent or stale id is a no-op.
func (r *Registry) Remove(e ecs.Entity) {
	i, ok := r.index[e]
	if !ok {
		return
	}
	delete(r.index, e)
	r.order = append(r.order[:i], r.order[i+1:]...)
	for j := i; j < len(r.order); j++ {
		r.index[r.order[j]] = j
	}
}

// Tracked reports whether e is in the tracked set.
func (r *Registry) Tracked(e ecs.Entity) bool {
	_, ok := r.index[e]
	return ok && r.world.Alive(e)
}

// Get returns the components of a tracked fruit.
func (r *Registry) Get(e ecs.Entity) (*components.Fruit, *components.Body, bool) {
	if !r.Tracked(e) {
		return nil, nil, false
	}
	f, b := r.mapper.Get(e)
	return f, b, true
}

// All returns a snapshot of tracked fruit in insertion order. Callers may
// destroy entities while iterating it.
func (r *Registry) All() []ecs.Entity {
	out := make([]ecs.Entity, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of tracked fruit.
func (r *Registry) Len() int {
	return len(r.order)
}

// Destroy deregisters and removes a fruit, then publishes EntityDestroyed.
// Returns false when e was already gone.
func (r *Registry) Destroy(e ecs.Entity, cause events.DestroyCause) bool {
	if !r.Alive(e) || r.destroying[e] {
		return false
	}
	r.destroying[e] = true
	defer delete(r.destroying, e)

	snapshot := *r.fruits.Get(e)
	wasTracked := r.Tracked(e)
	r.Remove(e)

	for _, h := range r.hooks {
		h(e, cause)
	}

	r.world.RemoveEntity(e)

	if wasTracked {
		r.bus.Publish(events.EntityDestroyed{
			Entity: e,
			Tier:   snapshot.Tier,
			Golden: snapshot.Golden,
			Cause:  cause,
		})
	}
	return true
}

// Discard removes an untracked fruit (a queue slot) without running hooks
// or publishing events.
func (r *Registry) Discard(e ecs.Entity) {
	if !r.Alive(e) {
		return
	}
	r.Remove(e)
	r.world.RemoveEntity(e)
}
