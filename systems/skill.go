package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/events"
)

// SkillEvolutionHandler resolves collisions involving a fruit that carries
// the Evolve or Destroy skill. It runs before golden handling and pairing.
type SkillEvolutionHandler struct {
	registry *Registry
	tiers    *TierTable
	bus      *events.Bus

	powerMultiplier float32
}

// NewSkillEvolutionHandler creates a skill handler.
func NewSkillEvolutionHandler(registry *Registry, tiers *TierTable, bus *events.Bus, powerMultiplier float32) *SkillEvolutionHandler {
	return &SkillEvolutionHandler{
		registry:        registry,
		tiers:           tiers,
		bus:             bus,
		powerMultiplier: powerMultiplier,
	}
}

// HandleCollision consumes the collision when one side carries an
// intercepting skill and the target is eligible. Returns true if a skill
// fired; the caller must not process the collision further.
func (h *SkillEvolutionHandler) HandleCollision(a, b ecs.Entity) bool {
	fa, _, okA := h.registry.Get(a)
	fb, _, okB := h.registry.Get(b)
	if !okA || !okB {
		return false
	}

	source, target := a, b
	fs, ft := fa, fb
	if !fa.Skill.Intercepts() {
		if !fb.Skill.Intercepts() {
			return false
		}
		source, target = b, a
		fs, ft = fb, fa
	}

	if ft.Golden || fs.Evolving || ft.Evolving {
		return false
	}

	skill := fs.Skill
	switch skill {
	case components.SkillEvolve:
		h.evolve(source, target)
	case components.SkillDestroy:
		h.destroy(source, target)
	default:
		return false
	}
	return true
}

// evolve replaces both fruit with the target's successor.
func (h *SkillEvolutionHandler) evolve(source, target ecs.Entity) {
	h.consumeSkill(source, components.SkillEvolve)

	ft, bt, _ := h.registry.Get(target)
	tier := ft.Tier
	pos := bt.Pos

	h.registry.Destroy(source, events.CauseSkill)
	h.registry.Destroy(target, events.CauseSkill)

	h.bus.Publish(events.ScoreAwarded{
		Points: h.tiers.Value(tier),
		Reason: events.ReasonEvolveSkill,
	})

	next, ok := h.tiers.Successor(tier)
	if !ok {
		return
	}
	info := h.tiers.Info(next)
	e := h.registry.Create(
		components.Fruit{
			Tier:             next,
			EvolvedFromMerge: true,
			Visible:          true,
			Collidable:       true,
		},
		components.Body{
			Pos:      pos,
			Radius:   info.Radius,
			Scale:    1,
			Mass:     info.Mass,
			BaseMass: info.Mass,
		},
	)
	h.registry.Add(e)
}

// destroy removes the target. The source keeps falling without its skill.
func (h *SkillEvolutionHandler) destroy(source, target ecs.Entity) {
	h.consumeSkill(source, components.SkillDestroy)
	h.registry.Destroy(target, events.CauseSkill)
}

func (h *SkillEvolutionHandler) consumeSkill(e ecs.Entity, skill components.Skill) {
	if f := h.registry.Fruit(e); f != nil {
		f.Skill = components.SkillNone
	}
	h.bus.Publish(events.SkillUsed{Entity: e, Skill: skill})
}

// ApplyRelease resolves skills that act at the moment of release. Power
// multiplies the fruit's mass for the rest of its life.
func (h *SkillEvolutionHandler) ApplyRelease(e ecs.Entity) {
	f := h.registry.Fruit(e)
	if f == nil || f.Skill != components.SkillPower {
		return
	}
	if b := h.registry.Body(e); b != nil {
		b.Mass *= h.powerMultiplier
		b.BaseMass *= h.powerMultiplier
	}
	h.consumeSkill(e, components.SkillPower)
}
