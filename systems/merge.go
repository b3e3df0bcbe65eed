package systems

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
)

// MergePhase is the state of a live pair.
type MergePhase uint8

const (
	PhaseConverging MergePhase = iota // Members travel to the meeting point
	PhaseGrowing                      // Hidden result ramps up to full scale
)

// String returns the phase name.
func (p MergePhase) String() string {
	if p == PhaseGrowing {
		return "growing"
	}
	return "converging"
}

// PairMember is one side of an evolving pair.
type PairMember struct {
	Entity        ecs.Entity
	ReachedTarget bool
}

// EvolvingPair is the bookkeeping for one merge in flight.
type EvolvingPair struct {
	A, B    PairMember
	Tier    components.Tier
	Phase   MergePhase
	Meeting components.Vec2
	Result  ecs.Entity // Set once both members arrive

	growAcc  float32
	detached bool
}

// MergeSettings holds the converge/grow tuning.
type MergeSettings struct {
	EvolvingMass  float32
	ConvergeSpeed float32 // Radii per second
	GrowStep      float32
	GrowInterval  float32
}

// MergeSettingsFromConfig reads merge tuning from config.
func MergeSettingsFromConfig(cfg *config.Config) MergeSettings {
	return MergeSettings{
		EvolvingMass:  float32(cfg.Merge.EvolvingMass),
		ConvergeSpeed: float32(cfg.Merge.ConvergeSpeed),
		GrowStep:      float32(cfg.Merge.GrowStep),
		GrowInterval:  float32(cfg.Merge.GrowInterval),
	}
}

// MergeCoordinator pairs colliding same-tier fruit and drives each pair
// through converge, grow and consume on the tick.
type MergeCoordinator struct {
	registry *Registry
	tiers    *TierTable
	bus      *events.Bus
	settings MergeSettings

	// Live pairs in creation order
	pairs    []*EvolvingPair
	byEntity map[ecs.Entity]*EvolvingPair
	byResult map[ecs.Entity]*EvolvingPair
}

// NewMergeCoordinator creates a coordinator and hooks it into registry
// destruction so pairs abort when a member disappears.
func NewMergeCoordinator(registry *Registry, tiers *TierTable, bus *events.Bus, settings MergeSettings) *MergeCoordinator {
	m := &MergeCoordinator{
		registry: registry,
		tiers:    tiers,
		bus:      bus,
		settings: settings,
		byEntity: make(map[ecs.Entity]*EvolvingPair),
		byResult: make(map[ecs.Entity]*EvolvingPair),
	}
	registry.OnDestroy(m.onDestroy)
	return m
}

// TryPair starts a merge between a and b if they are eligible.
// Returns true when a new pair entered the converging phase.
func (m *MergeCoordinator) TryPair(a, b ecs.Entity) bool {
	if a == b {
		return false
	}
	fa, ba, okA := m.registry.Get(a)
	fb, bb, okB := m.registry.Get(b)
	if !okA || !okB {
		return false
	}
	if !eligible(fa) || !eligible(fb) || fa.Tier != fb.Tier {
		return false
	}
	if m.byEntity[a] != nil || m.byEntity[b] != nil {
		// Flags say free but the arena disagrees: upstream ordering bug.
		slog.Warn("merge_pair_rejected",
			"reason", "entity already paired",
			"a", a.ID(), "b", b.ID(),
		)
		return false
	}

	fa.Evolving, fb.Evolving = true, true
	ba.Mass, bb.Mass = m.settings.EvolvingMass, m.settings.EvolvingMass
	ba.Vel, bb.Vel = components.Vec2{}, components.Vec2{}

	p := &EvolvingPair{
		A:       PairMember{Entity: a},
		B:       PairMember{Entity: b},
		Tier:    fa.Tier,
		Phase:   PhaseConverging,
		Meeting: components.Midpoint(ba.Pos, bb.Pos),
	}
	m.pairs = append(m.pairs, p)
	m.byEntity[a] = p
	m.byEntity[b] = p
	return true
}

// eligible reports whether a fruit may enter a normal merge.
func eligible(f *components.Fruit) bool {
	return !f.Golden && !f.Evolving && !f.Skill.Intercepts() && f.Collidable
}

// Tick advances every live pair by dt seconds.
func (m *MergeCoordinator) Tick(dt float32) {
	m.dropDuplicates()

	pairs := make([]*EvolvingPair, len(m.pairs))
	copy(pairs, m.pairs)

	for _, p := range pairs {
		if p.detached {
			continue
		}
		switch p.Phase {
		case PhaseConverging:
			m.converge(p, dt)
		case PhaseGrowing:
			m.grow(p, dt)
		}
	}
}

func (m *MergeCoordinator) converge(p *EvolvingPair, dt float32) {
	if !m.registry.Tracked(p.A.Entity) || !m.registry.Tracked(p.B.Entity) {
		m.abort(p, ecs.Entity{})
		return
	}

	m.step(&p.A, p.Meeting, dt)
	m.step(&p.B, p.Meeting, dt)
	if !p.A.ReachedTarget || !p.B.ReachedTarget {
		return
	}

	fa := m.registry.Fruit(p.A.Entity)
	fb := m.registry.Fruit(p.B.Entity)
	if fa.Tier != fb.Tier || fa.Tier != p.Tier {
		slog.Warn("merge_pair_dropped",
			"reason", "tier mismatch at completion",
			"a_tier", fa.Tier, "b_tier", fb.Tier, "pair_tier", p.Tier,
		)
		m.abort(p, ecs.Entity{})
		return
	}

	next, ok := m.tiers.Successor(p.Tier)
	if !ok {
		m.consume(p)
		return
	}

	info := m.tiers.Info(next)
	p.Result = m.registry.Create(
		components.Fruit{Tier: next, EvolvedFromMerge: true},
		components.Body{
			Pos:      p.Meeting,
			Radius:   info.Radius,
			Scale:    0,
			Mass:     info.Mass,
			BaseMass: info.Mass,
		},
	)
	m.registry.Add(p.Result)
	m.byResult[p.Result] = p
	p.Phase = PhaseGrowing
}

// step moves one member toward the meeting point. Larger fruit take
// proportionally larger steps so both sides arrive together.
func (m *MergeCoordinator) step(member *PairMember, target components.Vec2, dt float32) {
	if member.ReachedTarget {
		return
	}
	body := m.registry.Body(member.Entity)
	if body == nil {
		return
	}
	body.Vel = components.Vec2{}

	delta := target.Sub(body.Pos)
	dist := delta.Len()
	maxStep := m.settings.ConvergeSpeed * body.EffectiveRadius() * dt
	if dist <= maxStep || dist == 0 {
		body.Pos = target
		member.ReachedTarget = true
		return
	}
	body.Pos = body.Pos.Add(delta.Scale(maxStep / dist))
}

func (m *MergeCoordinator) grow(p *EvolvingPair, dt float32) {
	body := m.registry.Body(p.Result)
	if body == nil {
		m.abort(p, ecs.Entity{})
		return
	}

	p.growAcc += dt
	for p.growAcc >= m.settings.GrowInterval && body.Scale < 1 {
		p.growAcc -= m.settings.GrowInterval
		body.Scale += m.settings.GrowStep
	}
	if body.Scale >= 1 {
		body.Scale = 1
		m.consume(p)
	}
}

// consume finishes a pair: reveal the result, destroy both inputs, report.
func (m *MergeCoordinator) consume(p *EvolvingPair) {
	m.detach(p)

	terminal := p.Result.IsZero()
	resultTier := p.Tier
	if !terminal {
		if f := m.registry.Fruit(p.Result); f != nil {
			f.Visible = true
			f.Collidable = true
			resultTier = f.Tier
		}
	}

	m.registry.Destroy(p.A.Entity, events.CauseMerged)
	m.registry.Destroy(p.B.Entity, events.CauseMerged)

	m.bus.Publish(events.ScoreAwarded{
		Points: m.tiers.Value(resultTier),
		Reason: events.ReasonMerge,
	})
	m.bus.Publish(events.MergeCompleted{
		FromTier:   p.Tier,
		ResultTier: resultTier,
		Result:     p.Result,
		Position:   p.Meeting,
		Terminal:   terminal,
	})
}

// abort discards a pair without side effects. gone is the entity that was
// destroyed externally, if any; it is left alone.
func (m *MergeCoordinator) abort(p *EvolvingPair, gone ecs.Entity) {
	m.detach(p)

	for _, member := range []ecs.Entity{p.A.Entity, p.B.Entity} {
		if member == gone {
			continue
		}
		if f := m.registry.Fruit(member); f != nil {
			f.Evolving = false
		}
		if b := m.registry.Body(member); b != nil {
			b.Mass = b.BaseMass
		}
	}
	if !p.Result.IsZero() && p.Result != gone {
		m.registry.Destroy(p.Result, events.CauseAborted)
	}

	slog.Debug("merge_aborted",
		"tier", p.Tier,
		"phase", p.Phase.String(),
	)
}

func (m *MergeCoordinator) detach(p *EvolvingPair) {
	if p.detached {
		return
	}
	p.detached = true
	if m.byEntity[p.A.Entity] == p {
		delete(m.byEntity, p.A.Entity)
	}
	if m.byEntity[p.B.Entity] == p {
		delete(m.byEntity, p.B.Entity)
	}
	if !p.Result.IsZero() && m.byResult[p.Result] == p {
		delete(m.byResult, p.Result)
	}
	for i, q := range m.pairs {
		if q == p {
			m.pairs = append(m.pairs[:i], m.pairs[i+1:]...)
			break
		}
	}
}

// onDestroy aborts any pair that loses a member or its hidden result.
func (m *MergeCoordinator) onDestroy(e ecs.Entity, _ events.DestroyCause) {
	if p := m.byEntity[e]; p != nil {
		m.abort(p, e)
		return
	}
	if p := m.byResult[e]; p != nil {
		m.abort(p, e)
	}
}

// dropDuplicates discards any pair whose member already belongs to an
// earlier pair. Never expected; guards the tick loop against bad input.
func (m *MergeCoordinator) dropDuplicates() {
	seen := make(map[ecs.Entity]bool, len(m.pairs)*2)
	var bad []*EvolvingPair
	for _, p := range m.pairs {
		if seen[p.A.Entity] || seen[p.B.Entity] {
			bad = append(bad, p)
			continue
		}
		seen[p.A.Entity] = true
		seen[p.B.Entity] = true
	}
	for _, p := range bad {
		slog.Warn("merge_pair_dropped",
			"reason", "entity in two pairs",
			"a", p.A.Entity.ID(), "b", p.B.Entity.ID(),
		)
		p.detached = true
		for i, q := range m.pairs {
			if q == p {
				m.pairs = append(m.pairs[:i], m.pairs[i+1:]...)
				break
			}
		}
		if !p.Result.IsZero() {
			delete(m.byResult, p.Result)
			m.registry.Destroy(p.Result, events.CauseAborted)
		}
	}
}

// AbortAll discards every pair without spawning or scoring.
func (m *MergeCoordinator) AbortAll() {
	pairs := make([]*EvolvingPair, len(m.pairs))
	copy(pairs, m.pairs)
	for _, p := range pairs {
		m.abort(p, ecs.Entity{})
	}
}

// Pending returns the number of live pairs.
func (m *MergeCoordinator) Pending() int {
	return len(m.pairs)
}

// Paired reports whether e is a member of a live pair.
func (m *MergeCoordinator) Paired(e ecs.Entity) bool {
	return m.byEntity[e] != nil
}

// Pairs returns copies of every live pair in creation order.
func (m *MergeCoordinator) Pairs() []EvolvingPair {
	out := make([]EvolvingPair, 0, len(m.pairs))
	for _, p := range m.pairs {
		out = append(out, *p)
	}
	return out
}
