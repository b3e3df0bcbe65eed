package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
)

// Bounds represents the container size.
type Bounds struct {
	Width, Height float32
}

// Contact is a pair of fruit that started touching this step.
type Contact struct {
	A, B ecs.Entity
}

// ExitKind says which edge a fruit crossed.
type ExitKind uint8

const (
	ExitTop         ExitKind = iota // Fully above the top of the container
	ExitOutOfBounds                 // Past a side or the floor by more than the exit margin
)

// BoundaryExit reports a fruit leaving the play area.
type BoundaryExit struct {
	Entity   ecs.Entity
	Kind     ExitKind
	Receding bool // Still moving further out
}

// CeilingChange reports a fruit starting or stopping contact with the
// max-height trigger.
type CeilingChange struct {
	Entity   ecs.Entity
	Touching bool
}

// PhysicsReport is everything one step observed, in discovery order.
type PhysicsReport struct {
	Contacts []Contact
	Ceiling  []CeilingChange
	Exits    []BoundaryExit
}

// PhysicsSettings holds solver tuning.
type PhysicsSettings struct {
	Gravity     float32
	Damping     float32 // Velocity retained per second
	Restitution float32
	Iterations  int
	CeilingY    float32
	ExitMargin  float32
	MaxRadius   float32
	CellSize    float32
}

// PhysicsSettingsFromConfig reads solver tuning from config.
func PhysicsSettingsFromConfig(cfg *config.Config) PhysicsSettings {
	return PhysicsSettings{
		Gravity:     float32(cfg.Physics.Gravity),
		Damping:     float32(cfg.Physics.Damping),
		Restitution: float32(cfg.Physics.Restitution),
		Iterations:  cfg.Physics.Iterations,
		CeilingY:    float32(cfg.Container.CeilingY),
		ExitMargin:  float32(cfg.Container.ExitMargin),
		MaxRadius:   cfg.Derived.MaxRadius32,
		CellSize:    float32(cfg.Physics.GridCellSize),
	}
}

type contactKey struct {
	a, b ecs.Entity
}

func makeContactKey(a, b ecs.Entity) contactKey {
	if b.ID() < a.ID() {
		a, b = b, a
	}
	return contactKey{a, b}
}

// PhysicsSystem is a small circle solver for fruit in a walled container
// with an open top. Evolving fruit are kinematic; hidden fruit are ignored.
type PhysicsSystem struct {
	registry *Registry
	grid     *SpatialGrid
	bounds   Bounds
	settings PhysicsSettings

	// Touching pairs as of the previous step
	touching map[contactKey]bool
	ceiling  map[ecs.Entity]bool
	above    map[ecs.Entity]bool
	gone     map[ecs.Entity]bool

	// Scratch buffers reused across steps
	active    []ecs.Entity
	neighbors []Neighbor
	now       map[contactKey]bool
	fresh     []Contact
}

// NewPhysicsSystem creates a solver over the registry's fruit.
func NewPhysicsSystem(registry *Registry, bounds Bounds, settings PhysicsSettings) *PhysicsSystem {
	if settings.Iterations < 1 {
		settings.Iterations = 1
	}
	if settings.CellSize <= 0 {
		settings.CellSize = 2 * settings.MaxRadius
	}
	return &PhysicsSystem{
		registry: registry,
		grid:     NewSpatialGrid(bounds.Width, bounds.Height, settings.CellSize),
		bounds:   bounds,
		settings: settings,
		touching: make(map[contactKey]bool),
		ceiling:  make(map[ecs.Entity]bool),
		above:    make(map[ecs.Entity]bool),
		gone:     make(map[ecs.Entity]bool),
		now:      make(map[contactKey]bool),
	}
}

// Bounds returns the container size.
func (s *PhysicsSystem) Bounds() Bounds {
	return s.bounds
}

// Reset forgets all contact history.
func (s *PhysicsSystem) Reset() {
	clear(s.touching)
	clear(s.ceiling)
	clear(s.above)
	clear(s.gone)
}

// Step integrates every released, collidable fruit by dt and resolves
// overlaps. The report lists new contacts, ceiling changes and exits.
func (s *PhysicsSystem) Step(dt float32) PhysicsReport {
	var report PhysicsReport

	s.integrate(dt)

	clear(s.now)
	s.fresh = s.fresh[:0]
	for iter := 0; iter < s.settings.Iterations; iter++ {
		s.rebuildGrid()
		s.solveContacts()
		s.solveWalls()
	}

	if len(s.fresh) > 0 {
		report.Contacts = append(report.Contacts, s.fresh...)
	}
	s.touching, s.now = s.now, s.touching

	s.observeEdges(&report)
	return report
}

// integrate applies gravity and damping, then moves free fruit.
func (s *PhysicsSystem) integrate(dt float32) {
	s.active = s.active[:0]
	retain := pow32(s.settings.Damping, dt)

	query := s.registry.Filter().Query()
	for query.Next() {
		fruit, body := query.Get()
		if !fruit.Trackable() || !fruit.Collidable {
			continue
		}
		s.active = append(s.active, query.Entity())
		if fruit.Evolving {
			continue
		}

		body.Vel.Y += s.settings.Gravity * dt
		body.Vel = body.Vel.Scale(retain)
		body.Pos = body.Pos.Add(body.Vel.Scale(dt))
	}
}

func (s *PhysicsSystem) rebuildGrid() {
	s.grid.Clear()
	for _, e := range s.active {
		if b := s.registry.Body(e); b != nil {
			s.grid.Insert(e, b.Pos.X, b.Pos.Y)
		}
	}
}

func (s *PhysicsSystem) inverseMass(f *components.Fruit, b *components.Body) float32 {
	if f.Evolving || b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}

// solveContacts pushes overlapping circles apart along their normal and
// removes approaching velocity.
func (s *PhysicsSystem) solveContacts() {
	for _, e := range s.active {
		fa := s.registry.Fruit(e)
		ba := s.registry.Body(e)
		if fa == nil || ba == nil {
			continue
		}
		ra := ba.EffectiveRadius()
		s.neighbors = s.grid.QueryRadiusInto(s.neighbors[:0], ba.Pos.X, ba.Pos.Y, ra+s.settings.MaxRadius, e)

		for _, n := range s.neighbors {
			// Each pair once, from the lower id
			if n.E.ID() < e.ID() {
				continue
			}
			fb := s.registry.Fruit(n.E)
			bb := s.registry.Body(n.E)
			if fb == nil || bb == nil {
				continue
			}

			rb := bb.EffectiveRadius()
			minDist := ra + rb
			distSq := distanceSq(ba.Pos.X, ba.Pos.Y, bb.Pos.X, bb.Pos.Y)
			if distSq >= minDist*minDist {
				continue
			}
			// First contacts only; a pair already touching last step is not re-reported.
			if key := makeContactKey(e, n.E); !s.now[key] {
				s.now[key] = true
				if !s.touching[key] {
					s.fresh = append(s.fresh, Contact{A: e, B: n.E})
				}
			}

			invA := s.inverseMass(fa, ba)
			invB := s.inverseMass(fb, bb)
			invSum := invA + invB
			if invSum == 0 {
				continue
			}

			dist := sqrt32(distSq)
			normal := components.Vec2{X: 0, Y: 1}
			if dist > 1e-4 {
				normal = bb.Pos.Sub(ba.Pos).Scale(1 / dist)
			}
			overlap := minDist - dist
			ba.Pos = ba.Pos.Sub(normal.Scale(overlap * invA / invSum))
			bb.Pos = bb.Pos.Add(normal.Scale(overlap * invB / invSum))

			rel := bb.Vel.Sub(ba.Vel)
			approach := rel.X*normal.X + rel.Y*normal.Y
			if approach < 0 {
				j := -approach / invSum
				ba.Vel = ba.Vel.Sub(normal.Scale(j * invA))
				bb.Vel = bb.Vel.Add(normal.Scale(j * invB))
			}
		}
	}
}

// solveWalls keeps free fruit inside the side walls and above the floor
// while they are within the exit margin. The top is open.
func (s *PhysicsSystem) solveWalls() {
	w, h := s.bounds.Width, s.bounds.Height
	rest := s.settings.Restitution
	for _, e := range s.active {
		f := s.registry.Fruit(e)
		b := s.registry.Body(e)
		if f == nil || b == nil || f.Evolving {
			continue
		}
		r := b.EffectiveRadius()
		if b.Pos.X < r && b.Pos.X > -s.settings.ExitMargin {
			b.Pos.X = r
			if b.Vel.X < 0 {
				b.Vel.X *= -rest
			}
		}
		if b.Pos.X > w-r && b.Pos.X < w+s.settings.ExitMargin {
			b.Pos.X = w - r
			if b.Vel.X > 0 {
				b.Vel.X *= -rest
			}
		}
		if b.Pos.Y > h-r && b.Pos.Y < h+s.settings.ExitMargin {
			b.Pos.Y = h - r
			if b.Vel.Y > 0 {
				b.Vel.Y *= -rest
			}
		}
	}
}

// observeEdges reports ceiling contact changes and boundary exits.
func (s *PhysicsSystem) observeEdges(report *PhysicsReport) {
	for e := range s.ceiling {
		if !s.registry.Tracked(e) {
			delete(s.ceiling, e)
		}
	}
	for e := range s.above {
		if !s.registry.Tracked(e) {
			delete(s.above, e)
		}
	}
	for e := range s.gone {
		if !s.registry.Alive(e) {
			delete(s.gone, e)
		}
	}

	w, h, margin := s.bounds.Width, s.bounds.Height, s.settings.ExitMargin
	for _, e := range s.active {
		b := s.registry.Body(e)
		if b == nil {
			continue
		}
		r := b.EffectiveRadius()

		touching := b.Pos.Y-r < s.settings.CeilingY && b.Pos.Y+r > 0
		if touching != s.ceiling[e] {
			if touching {
				s.ceiling[e] = true
			} else {
				delete(s.ceiling, e)
			}
			report.Ceiling = append(report.Ceiling, CeilingChange{Entity: e, Touching: touching})
		}

		isAbove := b.Pos.Y+r < 0
		if isAbove && !s.above[e] {
			report.Exits = append(report.Exits, BoundaryExit{Entity: e, Kind: ExitTop, Receding: b.Vel.Y < 0})
		}
		if isAbove {
			s.above[e] = true
		} else {
			delete(s.above, e)
		}

		out := b.Pos.X+r < -margin || b.Pos.X-r > w+margin || b.Pos.Y-r > h+margin
		if out && !s.gone[e] {
			s.gone[e] = true
			report.Exits = append(report.Exits, BoundaryExit{Entity: e, Kind: ExitOutOfBounds, Receding: true})
		}
	}
}

// Touching reports whether a and b overlapped at the end of the last step.
func (s *PhysicsSystem) Touching(a, b ecs.Entity) bool {
	return s.touching[makeContactKey(a, b)]
}
