package telemetry

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
)

// LifetimeStats tracks per-fruit statistics over its lifetime.
type LifetimeStats struct {
	BirthTick       int32
	SurvivalTimeSec float32

	Tier      components.Tier
	FromMerge bool
	Golden    bool
	Contacts  int // First contacts reported by physics
}

// LifetimeTracker manages per-fruit lifetime statistics.
type LifetimeTracker struct {
	stats map[ecs.Entity]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[ecs.Entity]*LifetimeStats),
	}
}

// Register creates lifetime stats for a newly tracked fruit.
func (lt *LifetimeTracker) Register(e ecs.Entity, birthTick int32, tier components.Tier, fromMerge bool) {
	lt.stats[e] = &LifetimeStats{
		BirthTick: birthTick,
		Tier:      tier,
		FromMerge: fromMerge,
	}
}

// Get returns the lifetime stats for a fruit, or nil if not found.
func (lt *LifetimeTracker) Get(e ecs.Entity) *LifetimeStats {
	return lt.stats[e]
}

// Remove removes a fruit's stats and returns them with survival time filled in.
func (lt *LifetimeTracker) Remove(e ecs.Entity, currentTick int32, dt float32) *LifetimeStats {
	s := lt.stats[e]
	if s == nil {
		return nil
	}
	delete(lt.stats, e)
	s.SurvivalTimeSec = float32(currentTick-s.BirthTick) * dt
	return s
}

// RecordContact increments the contact count.
func (lt *LifetimeTracker) RecordContact(e ecs.Entity) {
	if s := lt.stats[e]; s != nil {
		s.Contacts++
	}
}

// MarkGolden flags a fruit as golden.
func (lt *LifetimeTracker) MarkGolden(e ecs.Entity) {
	if s := lt.stats[e]; s != nil {
		s.Golden = true
	}
}

// Clear drops every tracked fruit.
func (lt *LifetimeTracker) Clear() {
	clear(lt.stats)
}

// Count returns the number of tracked fruit.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
