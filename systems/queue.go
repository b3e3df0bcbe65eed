package systems

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/events"
)

// NextFruitQueue is the two-slot lookahead feeding the spawner.
// Both slots hold instantiated, untracked fruit so their tiers are known.
type NextFruitQueue struct {
	registry *Registry
	selector *SpawnSelector
	tiers    *TierTable
	bus      *events.Bus

	current ecs.Entity
	preview ecs.Entity

	// Tier of the most recently produced fruit, drives adjacency bias
	lastTier components.Tier
	hasLast  bool

	spawnPos components.Vec2
}

// NewNextFruitQueue creates an empty queue. Call Seed before use.
func NewNextFruitQueue(registry *Registry, selector *SpawnSelector, tiers *TierTable, bus *events.Bus, spawnPos components.Vec2) *NextFruitQueue {
	return &NextFruitQueue{
		registry: registry,
		selector: selector,
		tiers:    tiers,
		bus:      bus,
		spawnPos: spawnPos,
	}
}

// Seed fills both slots as if a session were starting fresh.
func (q *NextFruitQueue) Seed() error {
	q.Clear()

	current, err := q.produce()
	if err != nil {
		return fmt.Errorf("seeding current slot: %w", err)
	}
	preview, err := q.produce()
	if err != nil {
		q.registry.Discard(current)
		return fmt.Errorf("seeding preview slot: %w", err)
	}
	q.current, q.preview = current, preview
	q.publishPreview()
	return nil
}

// Clear discards both slots and forgets spawn history.
func (q *NextFruitQueue) Clear() {
	q.registry.Discard(q.current)
	q.registry.Discard(q.preview)
	q.current = ecs.Entity{}
	q.preview = ecs.Entity{}
	q.hasLast = false
}

// Current returns the fruit held by the spawner.
func (q *NextFruitQueue) Current() ecs.Entity {
	return q.current
}

// Preview returns the lookahead fruit.
func (q *NextFruitQueue) Preview() ecs.Entity {
	return q.preview
}

// PreviewTier returns the tier of the lookahead fruit.
func (q *NextFruitQueue) PreviewTier() (components.Tier, bool) {
	f := q.registry.Fruit(q.preview)
	if f == nil {
		return 0, false
	}
	return f.Tier, true
}

// Take hands the current fruit to the caller and rotates: preview moves to
// current and a new preview is produced. On a draw error the queue keeps
// its old slots and nothing is handed out.
func (q *NextFruitQueue) Take() (ecs.Entity, error) {
	next, err := q.produce()
	if err != nil {
		return ecs.Entity{}, err
	}
	taken := q.current
	q.current, q.preview = q.preview, next
	q.publishPreview()
	return taken, nil
}

// SetSpawnPosition moves where new slot fruit are placed.
func (q *NextFruitQueue) SetSpawnPosition(pos components.Vec2) {
	q.spawnPos = pos
}

func (q *NextFruitQueue) produce() (ecs.Entity, error) {
	tier, err := q.selector.ChooseNextTier(q.lastTier, q.hasLast)
	if err != nil {
		return ecs.Entity{}, err
	}
	q.lastTier, q.hasLast = tier, true

	info := q.tiers.Info(tier)
	e := q.registry.Create(
		components.Fruit{Tier: tier, Visible: true, Collidable: true},
		components.Body{
			Pos:      q.spawnPos,
			Radius:   info.Radius,
			Scale:    1,
			Mass:     info.Mass,
			BaseMass: info.Mass,
		},
	)
	return e, nil
}

func (q *NextFruitQueue) publishPreview() {
	if tier, ok := q.PreviewTier(); ok {
		q.bus.Publish(events.NextPreviewChanged{Tier: tier})
	}
}
