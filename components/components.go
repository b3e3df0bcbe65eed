// Package components defines ECS components for the merge engine.
package components

import "math"

// Tier is a fruit rank. Merging two fruit of tier N yields tier N+1.
type Tier uint8

// MaxTier is the highest tier; it has no successor.
const MaxTier Tier = 9

// Successor returns the next tier and whether one exists.
func (t Tier) Successor() (Tier, bool) {
	if t >= MaxTier {
		return t, false
	}
	return t + 1, true
}

// Skill is a player-activated modifier carried by a fruit.
type Skill uint8

const (
	SkillNone    Skill = iota
	SkillEvolve        // Next collision evolves the struck fruit
	SkillDestroy       // Next collision removes the struck fruit
	SkillPower         // Heavy drop, resolved on release
)

// String returns the skill name.
func (s Skill) String() string {
	switch s {
	case SkillEvolve:
		return "evolve"
	case SkillDestroy:
		return "destroy"
	case SkillPower:
		return "power"
	default:
		return "none"
	}
}

// Intercepts reports whether the skill short-circuits normal merging.
func (s Skill) Intercepts() bool {
	return s == SkillEvolve || s == SkillDestroy
}

// Vec2 is a point or vector in container space (Y grows downward).
type Vec2 struct {
	X, Y float32
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v*s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Len returns the vector length.
func (v Vec2) Len() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Vec2) Vec2 {
	return Vec2{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}

// Fruit holds the engine-owned state of a fruit entity.
type Fruit struct {
	Tier             Tier
	Released         bool // Left the spawner and entered the simulation
	EvolvedFromMerge bool // Created by a merge or evolve skill, not a player drop
	Golden           bool
	UpgradedGolden   bool // Implies Golden
	Evolving         bool // Member of a live merge pair
	Skill            Skill

	// Merge results stay hidden and pass-through until their growth completes.
	Visible    bool
	Collidable bool
}

// Trackable reports whether the registry may track this fruit.
func (f *Fruit) Trackable() bool {
	return f.Released || f.EvolvedFromMerge
}

// Body holds physical state. The physics collaborator owns it between
// merges; the engine writes it while a pair converges.
type Body struct {
	Pos      Vec2
	Vel      Vec2
	Radius   float32 // Natural radius at scale 1
	Scale    float32
	Mass     float32
	BaseMass float32 // Mass restored when a merge aborts
}

// EffectiveRadius returns the radius at the current scale.
func (b *Body) EffectiveRadius() float32 {
	return b.Radius * b.Scale
}
