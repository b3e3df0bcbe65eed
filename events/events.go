// Package events carries outbound engine notifications to collaborators.
package events

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
)

// Type identifies an outbound event.
type Type uint8

const (
	TypeMergeCompleted Type = iota
	TypeGoldenSpawned
	TypeSkillUsed
	TypeEntityDestroyed
	TypeNextPreviewChanged
	TypeScoreAwarded
	TypeFruitReleased
	TypeGameReset
	TypeGameOver
)

// String returns the snake_case name used in logs and on the wire.
func (t Type) String() string {
	switch t {
	case TypeMergeCompleted:
		return "merge_completed"
	case TypeGoldenSpawned:
		return "golden_spawned"
	case TypeSkillUsed:
		return "skill_used"
	case TypeEntityDestroyed:
		return "entity_destroyed"
	case TypeNextPreviewChanged:
		return "next_preview_changed"
	case TypeScoreAwarded:
		return "score_awarded"
	case TypeFruitReleased:
		return "fruit_released"
	case TypeGameReset:
		return "game_reset"
	case TypeGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Event is implemented by every outbound notification.
type Event interface {
	Type() Type
}

// MergeCompleted is published when a pair is consumed.
// Terminal merges consume two max-tier fruit and produce nothing.
type MergeCompleted struct {
	FromTier   components.Tier
	ResultTier components.Tier
	Result     ecs.Entity // Zero for terminal merges
	Position   components.Vec2
	Terminal   bool
}

// GoldenSpawned is published when a fruit turns golden.
type GoldenSpawned struct {
	Entity   ecs.Entity
	Upgraded bool
}

// SkillUsed is published once per skill activation.
type SkillUsed struct {
	Entity ecs.Entity
	Skill  components.Skill
}

// DestroyCause records why a fruit left the board.
type DestroyCause uint8

const (
	CauseMerged DestroyCause = iota
	CauseSkill
	CauseGolden
	CauseOutOfBounds
	CauseAborted // Hidden merge result discarded before it grew
	CauseReset
)

// String returns the cause name.
func (c DestroyCause) String() string {
	switch c {
	case CauseMerged:
		return "merged"
	case CauseSkill:
		return "skill"
	case CauseGolden:
		return "golden"
	case CauseOutOfBounds:
		return "out_of_bounds"
	case CauseAborted:
		return "aborted"
	case CauseReset:
		return "reset"
	default:
		return "unknown"
	}
}

// EntityDestroyed is published after a fruit is deregistered and removed.
type EntityDestroyed struct {
	Entity ecs.Entity
	Tier   components.Tier
	Golden bool
	Cause  DestroyCause
}

// NextPreviewChanged is published when the lookahead slot changes.
type NextPreviewChanged struct {
	Tier components.Tier
}

// ScoreReason attributes awarded points.
type ScoreReason uint8

const (
	ReasonMerge ScoreReason = iota
	ReasonEvolveSkill
	ReasonGoldenCollision
)

// String returns the reason name.
func (r ScoreReason) String() string {
	switch r {
	case ReasonMerge:
		return "merge"
	case ReasonEvolveSkill:
		return "evolve_skill"
	case ReasonGoldenCollision:
		return "golden_collision"
	default:
		return "unknown"
	}
}

// ScoreAwarded is published whenever points are earned.
type ScoreAwarded struct {
	Points int
	Reason ScoreReason
}

// FruitReleased is published when the held fruit enters the simulation.
type FruitReleased struct {
	Entity ecs.Entity
	Tier   components.Tier
	Skill  components.Skill
}

// GameReset is published after a reset completes and the queue is re-seeded.
type GameReset struct{}

// GameOver is published when a fruit has touched the ceiling for too long.
type GameOver struct {
	Score int
}

func (MergeCompleted) Type() Type     { return TypeMergeCompleted }
func (GoldenSpawned) Type() Type      { return TypeGoldenSpawned }
func (SkillUsed) Type() Type          { return TypeSkillUsed }
func (EntityDestroyed) Type() Type    { return TypeEntityDestroyed }
func (NextPreviewChanged) Type() Type { return TypeNextPreviewChanged }
func (ScoreAwarded) Type() Type       { return TypeScoreAwarded }
func (FruitReleased) Type() Type      { return TypeFruitReleased }
func (GameReset) Type() Type          { return TypeGameReset }
func (GameOver) Type() Type           { return TypeGameOver }
