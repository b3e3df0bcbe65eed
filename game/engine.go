package game

import (
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/events"
	"github.com/pthm-cable/fruitmerge/systems"
	"github.com/pthm-cable/fruitmerge/telemetry"
)

// HandleCollision routes a first contact. Skills take priority, then
// golden fruit, then ordinary merging. Stale references are ignored.
func (g *Game) HandleCollision(ev CollisionEvent) {
	if ev.A == ev.B {
		return
	}
	fa, _, okA := g.registry.Get(ev.A)
	fb, _, okB := g.registry.Get(ev.B)
	if !okA || !okB {
		return
	}

	if fa.Skill.Intercepts() || fb.Skill.Intercepts() {
		if g.skills.HandleCollision(ev.A, ev.B) {
			return
		}
	}

	if fa.Golden || fb.Golden {
		// Each golden side gets a turn, as if both fruit resolved the contact.
		if fa.Golden && g.golden.OnGoldenCollision(ev.A, ev.B) {
			return
		}
		if fb.Golden {
			g.golden.OnGoldenCollision(ev.B, ev.A)
		}
		return
	}

	g.merges.TryPair(ev.A, ev.B)
}

// Release drops the held fruit at cmd.X and rotates the queue.
func (g *Game) Release(cmd ReleaseCommand) (ecs.Entity, error) {
	if g.gameOver {
		return ecs.Entity{}, ErrGameOver
	}
	if g.registry.Fruit(g.queue.Current()) == nil {
		return ecs.Entity{}, ErrNoHeldFruit
	}

	e, err := g.queue.Take()
	if err != nil {
		return ecs.Entity{}, fmt.Errorf("rotating spawn queue: %w", err)
	}

	f := g.registry.Fruit(e)
	b := g.registry.Body(e)
	r := b.EffectiveRadius()
	b.Pos = components.Vec2{
		X: min(max(cmd.X, r), g.cfg.Derived.ContainerW-r),
		Y: float32(g.cfg.Container.SpawnerY),
	}
	b.Vel = components.Vec2{}
	f.Released = true
	tier, skill := f.Tier, f.Skill

	g.registry.Add(e)
	g.skills.ApplyRelease(e)
	g.bus.Publish(events.FruitReleased{Entity: e, Tier: tier, Skill: skill})
	g.golden.OnNaturalSpawn(e)
	return e, nil
}

// ActivateSkill attaches a skill to the held fruit. SkillNone clears it.
func (g *Game) ActivateSkill(cmd SkillActivationCommand) error {
	if g.gameOver {
		return ErrGameOver
	}
	f := g.registry.Fruit(g.queue.Current())
	if f == nil {
		return ErrNoHeldFruit
	}
	f.Skill = cmd.Skill
	return nil
}

// HandleBoundaryExit feeds golden promotion for top exits and destroys
// fruit that fell out of the container.
func (g *Game) HandleBoundaryExit(ev BoundaryExitEvent) {
	switch ev.Kind {
	case systems.ExitTop:
		g.golden.OnBoundaryExit(ev.Entity, ev.Receding)
	case systems.ExitOutOfBounds:
		g.registry.Destroy(ev.Entity, events.CauseOutOfBounds)
	}
}

// SetCeilingContact records whether a fruit touches the max-height trigger.
func (g *Game) SetCeilingContact(e ecs.Entity, touching bool) {
	g.golden.OnCeilingContact(e, touching)
}

// Reset destroys every tracked fruit, discards pending merges without side
// effects and re-seeds the spawn queue with fresh history.
func (g *Game) Reset(ResetCommand) error {
	g.merges.AbortAll()
	for _, e := range g.registry.All() {
		g.registry.Destroy(e, events.CauseReset)
	}
	g.golden.ClearCeiling()
	if g.physics != nil {
		g.physics.Reset()
	}
	g.lifetimeTracker.Clear()
	g.milestones.Reset()

	prevScore := g.score
	g.score = 0
	g.overflow = 0
	g.dropAcc = 0
	g.gameOver = false

	if err := g.queue.Seed(); err != nil {
		return fmt.Errorf("reseeding spawn queue: %w", err)
	}
	g.sessions++
	g.bus.Publish(events.GameReset{})
	slog.Info("game_reset", "tick", g.tick, "session", g.sessions, "previous_score", prevScore)
	g.publishBoard()
	return nil
}

// Tick advances merges and, when physics is bundled, the solver by dt.
func (g *Game) Tick(dt float32) {
	if g.gameOver {
		return
	}
	g.tick++
	g.collector.SetTick(g.tick)
	g.tickMerges = 0
	g.perfCollector.StartTick()

	var report systems.PhysicsReport
	if g.physics != nil {
		g.perfCollector.StartPhase(telemetry.PhasePhysics)
		report = g.physics.Step(dt)
	}

	g.perfCollector.StartPhase(telemetry.PhaseCollisions)
	for _, c := range report.Contacts {
		g.lifetimeTracker.RecordContact(c.A)
		g.lifetimeTracker.RecordContact(c.B)
		g.HandleCollision(CollisionEvent{A: c.A, B: c.B})
	}

	g.perfCollector.StartPhase(telemetry.PhaseMerge)
	g.merges.Tick(dt)

	g.perfCollector.StartPhase(telemetry.PhaseEdges)
	// Exits first: a fruit leaving the top loses ceiling contact on the same
	// step, and promotion reads the contact from before it.
	for _, ex := range report.Exits {
		g.HandleBoundaryExit(BoundaryExitEvent{Entity: ex.Entity, Kind: ex.Kind, Receding: ex.Receding})
	}
	for _, c := range report.Ceiling {
		g.SetCeilingContact(c.Entity, c.Touching)
	}
	g.updateOverflow(dt)

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()
	if g.boardEvery > 0 && g.tick%g.boardEvery == 0 {
		g.publishBoard()
	}
	g.perfCollector.EndTick(telemetry.TickLoad{
		Live:     g.registry.Len(),
		Contacts: len(report.Contacts),
		Pending:  g.merges.Pending(),
		Merges:   g.tickMerges,
	})
}

// overflowSettleSpeed is the speed under which a fruit on the ceiling counts
// as resting there rather than passing through.
const overflowSettleSpeed = 60

// updateOverflow ends the session once a fruit rests on the ceiling for
// container.overflow_seconds.
func (g *Game) updateOverflow(dt float32) {
	limit := float32(g.cfg.Container.OverflowSeconds)
	if limit <= 0 || !g.ceilingOccupied() {
		g.overflow = 0
		return
	}
	g.overflow += dt
	if g.overflow < limit {
		return
	}
	g.gameOver = true
	g.bus.Publish(events.GameOver{Score: g.score})
	slog.Info("game_over", "tick", g.tick, "session", g.sessions, "score", g.score, "live", g.registry.Len())
}

// ceilingOccupied reports whether any fruit in contact with the ceiling is
// resting rather than falling through or being flung out.
func (g *Game) ceilingOccupied() bool {
	for _, e := range g.golden.Ceiling() {
		if b := g.registry.Body(e); b != nil && b.Vel.Len() < overflowSettleSpeed {
			return true
		}
	}
	return false
}
