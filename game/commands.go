package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/systems"
)

// CollisionEvent is a first contact between two tracked fruit.
type CollisionEvent struct {
	A, B ecs.Entity
}

// ReleaseCommand drops the held fruit at container x.
type ReleaseCommand struct {
	X float32
}

// SkillActivationCommand attaches a skill to the held fruit.
type SkillActivationCommand struct {
	Skill components.Skill
}

// BoundaryExitEvent reports a fruit leaving the play area.
type BoundaryExitEvent struct {
	Entity   ecs.Entity
	Kind     systems.ExitKind
	Receding bool // Still moving away from the board
}

// ResetCommand starts a fresh session.
type ResetCommand struct{}
