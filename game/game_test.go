package game

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
	"github.com/pthm-cable/fruitmerge/systems"
)

func newTestGame(t *testing.T, opts Options) (*Game, *events.Recorder) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	g, err := NewGame(cfg, opts)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	t.Cleanup(g.Unload)
	rec := &events.Recorder{}
	g.Bus().Subscribe(rec)
	return g, rec
}

// spawnTracked places a released fruit directly on the board.
func spawnTracked(g *Game, tier components.Tier, pos components.Vec2) ecs.Entity {
	info := g.Tiers().Info(tier)
	e := g.Registry().Create(
		components.Fruit{Tier: tier, Released: true, Visible: true, Collidable: true},
		components.Body{Pos: pos, Radius: info.Radius, Scale: 1, Mass: info.Mass, BaseMass: info.Mass},
	)
	g.Registry().Add(e)
	return e
}

func countOf[T events.Event](rec *events.Recorder) int {
	n := 0
	for _, ev := range rec.Events {
		if _, ok := ev.(T); ok {
			n++
		}
	}
	return n
}

func TestNewGameSeedsQueue(t *testing.T) {
	g, _ := newTestGame(t, Options{Seed: 7, DisablePhysics: true})

	current := g.Registry().Fruit(g.Queue().Current())
	if current == nil {
		t.Fatal("no held fruit after NewGame")
	}
	if current.Tier != 0 {
		t.Errorf("first held tier = %d, want 0", current.Tier)
	}
	if _, ok := g.Queue().PreviewTier(); !ok {
		t.Error("preview slot empty after NewGame")
	}
	if g.Registry().Len() != 0 {
		t.Errorf("queue slots are tracked: Len = %d", g.Registry().Len())
	}
}

func TestReleaseTracksAndRotates(t *testing.T) {
	g, rec := newTestGame(t, Options{Seed: 7, DisablePhysics: true})

	preview := g.Queue().Preview()
	e, err := g.Release(ReleaseCommand{X: -100})
	if err != nil {
		t.Fatalf("Release: %v", err)
	}

	if !g.Registry().Tracked(e) {
		t.Error("released fruit not tracked")
	}
	if g.Queue().Current() != preview {
		t.Error("preview did not move to the held slot")
	}
	f, b, _ := g.Registry().Get(e)
	if !f.Released {
		t.Error("Released flag not set")
	}
	if b.Pos.X != b.Radius {
		t.Errorf("x = %v, want clamped to radius %v", b.Pos.X, b.Radius)
	}
	if n := countOf[events.FruitReleased](rec); n != 1 {
		t.Errorf("FruitReleased published %d times, want 1", n)
	}
	if n := countOf[events.NextPreviewChanged](rec); n != 1 {
		t.Errorf("NextPreviewChanged published %d times, want 1", n)
	}
}

func TestPowerSkillOnRelease(t *testing.T) {
	g, rec := newTestGame(t, Options{Seed: 3, DisablePhysics: true})

	if err := g.ActivateSkill(SkillActivationCommand{Skill: components.SkillPower}); err != nil {
		t.Fatalf("ActivateSkill: %v", err)
	}
	e, err := g.Release(ReleaseCommand{X: 240})
	if err != nil {
		t.Fatalf("Release: %v", err)
	}

	f, b, _ := g.Registry().Get(e)
	want := g.Tiers().Info(f.Tier).Mass * float32(g.Config().Skills.PowerMassMultiplier)
	if math.Abs(float64(b.Mass-want)) > 1e-4 {
		t.Errorf("mass = %v, want %v", b.Mass, want)
	}
	if f.Skill != components.SkillNone {
		t.Errorf("power skill not consumed: %v", f.Skill)
	}
	used := 0
	for _, ev := range rec.Events {
		if su, ok := ev.(events.SkillUsed); ok && su.Skill == components.SkillPower {
			used++
		}
	}
	if used != 1 {
		t.Errorf("SkillUsed{Power} published %d times, want 1", used)
	}
}

func TestSkillPriorityScenario(t *testing.T) {
	g, rec := newTestGame(t, Options{Seed: 1, DisablePhysics: true})

	s := spawnTracked(g, 1, components.Vec2{X: 100, Y: 500})
	target := components.Vec2{X: 140, Y: 520}
	tgt := spawnTracked(g, 3, target)
	g.Registry().Fruit(s).Skill = components.SkillEvolve

	g.HandleCollision(CollisionEvent{A: s, B: tgt})

	if g.Registry().Tracked(tgt) {
		t.Error("target survived the evolve skill")
	}
	if g.Merges().Pending() != 0 {
		t.Errorf("pending pairs = %d, want 0", g.Merges().Pending())
	}
	all := g.Registry().All()
	if len(all) != 1 {
		t.Fatalf("tracked = %d, want only the evolved fruit", len(all))
	}
	f, b, _ := g.Registry().Get(all[0])
	if f.Tier != 4 || b.Pos != target {
		t.Errorf("evolved fruit tier %d at %v, want tier 4 at %v", f.Tier, b.Pos, target)
	}
	if n := countOf[events.SkillUsed](rec); n != 1 {
		t.Errorf("SkillUsed published %d times, want 1", n)
	}
	if g.Score() != g.Tiers().Value(3) {
		t.Errorf("score = %d, want %d", g.Score(), g.Tiers().Value(3))
	}
}

func TestCollisionRouting(t *testing.T) {
	tests := []struct {
		name        string
		a, b        components.Fruit
		wantAAlive  bool
		wantBAlive  bool
		wantPending int
	}{
		{
			name:        "same tier pairs",
			a:           components.Fruit{Tier: 2},
			b:           components.Fruit{Tier: 2},
			wantAAlive:  true,
			wantBAlive:  true,
			wantPending: 1,
		},
		{
			name:       "different tier ignored",
			a:          components.Fruit{Tier: 2},
			b:          components.Fruit{Tier: 3},
			wantAAlive: true,
			wantBAlive: true,
		},
		{
			name:       "golden vs golden",
			a:          components.Fruit{Tier: 2, Golden: true},
			b:          components.Fruit{Tier: 2, Golden: true},
			wantAAlive: true,
			wantBAlive: true,
		},
		{
			name:       "golden destroys plain fruit",
			a:          components.Fruit{Tier: 5},
			b:          components.Fruit{Tier: 2, Golden: true},
			wantAAlive: false,
			wantBAlive: true,
		},
		{
			name:       "plain golden removes upgraded golden",
			a:          components.Fruit{Tier: 2, Golden: true},
			b:          components.Fruit{Tier: 4, Golden: true, UpgradedGolden: true},
			wantAAlive: true,
			wantBAlive: false,
		},
		{
			name:       "upgraded golden spends itself on plain fruit",
			a:          components.Fruit{Tier: 4, Golden: true, UpgradedGolden: true},
			b:          components.Fruit{Tier: 1},
			wantAAlive: false,
			wantBAlive: false,
		},
		{
			name:       "destroy skill removes target",
			a:          components.Fruit{Tier: 0, Skill: components.SkillDestroy},
			b:          components.Fruit{Tier: 6},
			wantAAlive: true,
			wantBAlive: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := newTestGame(t, Options{Seed: 1, DisablePhysics: true})
			a := spawnTracked(g, tc.a.Tier, components.Vec2{X: 100, Y: 500})
			b := spawnTracked(g, tc.b.Tier, components.Vec2{X: 160, Y: 500})
			for _, p := range []struct {
				e ecs.Entity
				f components.Fruit
			}{{a, tc.a}, {b, tc.b}} {
				f := g.Registry().Fruit(p.e)
				f.Golden = p.f.Golden
				f.UpgradedGolden = p.f.UpgradedGolden
				f.Skill = p.f.Skill
			}

			g.HandleCollision(CollisionEvent{A: a, B: b})

			if got := g.Registry().Tracked(a); got != tc.wantAAlive {
				t.Errorf("a alive = %v, want %v", got, tc.wantAAlive)
			}
			if got := g.Registry().Tracked(b); got != tc.wantBAlive {
				t.Errorf("b alive = %v, want %v", got, tc.wantBAlive)
			}
			if got := g.Merges().Pending(); got != tc.wantPending {
				t.Errorf("pending = %d, want %d", got, tc.wantPending)
			}
		})
	}
}

func TestStaleCollisionIgnored(t *testing.T) {
	g, _ := newTestGame(t, Options{Seed: 1, DisablePhysics: true})
	a := spawnTracked(g, 2, components.Vec2{X: 100, Y: 500})
	b := spawnTracked(g, 2, components.Vec2{X: 150, Y: 500})
	g.Registry().Destroy(b, events.CauseOutOfBounds)

	g.HandleCollision(CollisionEvent{A: a, B: b})
	g.HandleCollision(CollisionEvent{A: a, B: a})

	if g.Merges().Pending() != 0 {
		t.Errorf("pending = %d after stale collisions", g.Merges().Pending())
	}
}

func TestBoundaryExits(t *testing.T) {
	g, _ := newTestGame(t, Options{Seed: 1, DisablePhysics: true})

	fallen := spawnTracked(g, 1, components.Vec2{X: 100, Y: 900})
	g.HandleBoundaryExit(BoundaryExitEvent{Entity: fallen, Kind: systems.ExitOutOfBounds})
	if g.Registry().Tracked(fallen) {
		t.Error("out-of-bounds fruit still tracked")
	}

	flung := spawnTracked(g, 1, components.Vec2{X: 100, Y: -30})
	g.HandleBoundaryExit(BoundaryExitEvent{Entity: flung, Kind: systems.ExitTop, Receding: true})
	if g.Registry().Fruit(flung).Golden {
		t.Error("promoted without ceiling contact")
	}

	g.SetCeilingContact(flung, true)
	g.HandleBoundaryExit(BoundaryExitEvent{Entity: flung, Kind: systems.ExitTop, Receding: true})
	f := g.Registry().Fruit(flung)
	if !f.Golden || !f.UpgradedGolden {
		t.Errorf("fruit = %+v, want upgraded golden", *f)
	}
}

func TestFlungFruitUpgradesThroughPhysics(t *testing.T) {
	g, rec := newTestGame(t, Options{Seed: 1})
	dt := g.Config().Derived.DT32
	e := spawnTracked(g, 0, components.Vec2{X: 240, Y: 60})

	g.Tick(dt)
	if !g.Golden().TouchingCeiling(e) {
		t.Fatal("fruit near the top not in contact with the ceiling")
	}

	g.Registry().Body(e).Vel = components.Vec2{Y: -900}
	for i := 0; i < 30 && !g.Registry().Fruit(e).Golden; i++ {
		g.Tick(dt)
	}

	f := g.Registry().Fruit(e)
	if f == nil {
		t.Fatal("flung fruit destroyed")
	}
	if !f.Golden || !f.UpgradedGolden {
		t.Fatalf("fruit = %+v, want upgraded golden", *f)
	}
	spawned := 0
	for _, ev := range rec.Events {
		if gs, ok := ev.(events.GoldenSpawned); ok && gs.Entity == e && gs.Upgraded {
			spawned++
		}
	}
	if spawned != 1 {
		t.Errorf("upgraded GoldenSpawned published %d times, want 1", spawned)
	}
}

func TestMergingFruitNotPromotedOnExit(t *testing.T) {
	g, _ := newTestGame(t, Options{Seed: 1, DisablePhysics: true})
	a := spawnTracked(g, 2, components.Vec2{X: 100, Y: -60})
	b := spawnTracked(g, 2, components.Vec2{X: 150, Y: -60})

	g.HandleCollision(CollisionEvent{A: a, B: b})
	if !g.Registry().Fruit(a).Evolving {
		t.Fatal("pair not started")
	}

	g.SetCeilingContact(a, true)
	g.HandleBoundaryExit(BoundaryExitEvent{Entity: a, Kind: systems.ExitTop, Receding: true})

	if f := g.Registry().Fruit(a); f.Golden || f.UpgradedGolden {
		t.Errorf("merging fruit promoted: %+v", *f)
	}
	if g.Merges().Pending() != 1 {
		t.Errorf("pending = %d, want 1", g.Merges().Pending())
	}
}

func TestPerfWindowCarriesMergeLoad(t *testing.T) {
	g, rec := newTestGame(t, Options{Seed: 1, DisablePhysics: true})
	a := spawnTracked(g, 2, components.Vec2{X: 200, Y: 400})
	b := spawnTracked(g, 2, components.Vec2{X: 230, Y: 400})
	g.HandleCollision(CollisionEvent{A: a, B: b})

	dt := g.Config().Derived.DT32
	for i := 0; i < 600 && countOf[events.MergeCompleted](rec) == 0; i++ {
		g.Tick(dt)
	}
	if countOf[events.MergeCompleted](rec) != 1 {
		t.Fatal("pair never completed")
	}

	perf := g.Perf().Stats()
	if perf.Merges != 1 {
		t.Errorf("perf merges = %d, want 1", perf.Merges)
	}
	if perf.PeakPending != 1 {
		t.Errorf("perf pending peak = %d, want 1", perf.PeakPending)
	}
	if perf.AvgLive <= 0 {
		t.Errorf("perf live avg = %v", perf.AvgLive)
	}
}

func TestFallingFruitDoesNotFillOverflow(t *testing.T) {
	g, _ := newTestGame(t, Options{Seed: 1, DisablePhysics: true})
	e := spawnTracked(g, 3, components.Vec2{X: 240, Y: 100})
	g.Registry().Body(e).Vel = components.Vec2{Y: 400}

	g.SetCeilingContact(e, true)
	g.Tick(g.Config().Derived.DT32)

	if g.OverflowProgress() != 0 {
		t.Errorf("overflow progress = %v for a fruit passing through", g.OverflowProgress())
	}
}

func TestOverflowEndsSession(t *testing.T) {
	g, rec := newTestGame(t, Options{Seed: 1, DisablePhysics: true})
	e := spawnTracked(g, 3, components.Vec2{X: 240, Y: 100})
	g.SetCeilingContact(e, true)

	ticks := int(g.Config().Container.OverflowSeconds/g.Config().Physics.DT) + 2
	for i := 0; i < ticks && !g.GameOver(); i++ {
		g.Tick(g.Config().Derived.DT32)
	}

	if !g.GameOver() {
		t.Fatal("session did not end with a fruit stuck on the ceiling")
	}
	if n := countOf[events.GameOver](rec); n != 1 {
		t.Errorf("GameOver published %d times, want 1", n)
	}
	if _, err := g.Release(ReleaseCommand{X: 240}); !errors.Is(err, ErrGameOver) {
		t.Errorf("Release after game over: err = %v, want ErrGameOver", err)
	}

	tick := g.CurrentTick()
	g.Tick(g.Config().Derived.DT32)
	if g.CurrentTick() != tick {
		t.Error("Tick advanced after game over")
	}
}

func TestOverflowTimerResetsWhenCeilingClears(t *testing.T) {
	g, _ := newTestGame(t, Options{Seed: 1, DisablePhysics: true})
	e := spawnTracked(g, 3, components.Vec2{X: 240, Y: 100})
	dt := g.Config().Derived.DT32

	g.SetCeilingContact(e, true)
	for i := 0; i < 60; i++ {
		g.Tick(dt)
	}
	if g.OverflowProgress() == 0 {
		t.Fatal("overflow timer did not run")
	}

	g.SetCeilingContact(e, false)
	g.Tick(dt)
	if g.OverflowProgress() != 0 {
		t.Errorf("overflow progress = %v after ceiling cleared", g.OverflowProgress())
	}
}

func TestResetCompleteness(t *testing.T) {
	g, rec := newTestGame(t, Options{Seed: 11, AutoDrop: true, AutoDropSec: 0.3, StepsPerUpdate: 1})

	for i := 0; i < 1200; i++ {
		g.Update()
	}
	a := spawnTracked(g, 2, components.Vec2{X: 100, Y: 600})
	b := spawnTracked(g, 2, components.Vec2{X: 150, Y: 600})
	g.HandleCollision(CollisionEvent{A: a, B: b})
	if g.Registry().Len() == 0 || g.Merges().Pending() == 0 {
		t.Fatalf("setup: live %d, pending %d", g.Registry().Len(), g.Merges().Pending())
	}
	merged := countOf[events.MergeCompleted](rec)

	if err := g.Reset(ResetCommand{}); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if n := len(g.Registry().All()); n != 0 {
		t.Errorf("All() has %d fruit after reset", n)
	}
	if g.Merges().Pending() != 0 {
		t.Errorf("pending = %d after reset", g.Merges().Pending())
	}
	if g.Golden().CeilingCount() != 0 {
		t.Errorf("ceiling count = %d after reset", g.Golden().CeilingCount())
	}
	if g.Score() != 0 || g.GameOver() {
		t.Errorf("score %d, game over %v after reset", g.Score(), g.GameOver())
	}
	if f := g.Registry().Fruit(g.Queue().Current()); f == nil || f.Tier != 0 {
		t.Error("queue not re-seeded with fresh history")
	}
	if countOf[events.MergeCompleted](rec) != merged {
		t.Error("reset completed a pending merge")
	}
	if n := countOf[events.GameReset](rec); n != 1 {
		t.Errorf("GameReset published %d times, want 1", n)
	}
}

func TestHeadlessSessionInvariants(t *testing.T) {
	g, rec := newTestGame(t, Options{
		Seed:        5,
		AutoDrop:    true,
		AutoDropSec: 0.5,
		SkillChance: 0.1,
		AutoRestart: true,
	})

	for i := 0; i < 6000; i++ {
		g.Update()

		seen := make(map[ecs.Entity]bool)
		for _, p := range g.Merges().Pairs() {
			for _, e := range []ecs.Entity{p.A.Entity, p.B.Entity} {
				if seen[e] {
					t.Fatalf("tick %d: fruit %v in two pairs", g.CurrentTick(), e)
				}
				seen[e] = true
			}
		}
		for _, e := range g.Registry().All() {
			if g.Registry().Fruit(e) == nil {
				t.Fatalf("tick %d: tracked fruit %v is dead", g.CurrentTick(), e)
			}
		}
	}

	if countOf[events.FruitReleased](rec) == 0 {
		t.Fatal("autoplay released nothing")
	}
	if countOf[events.MergeCompleted](rec) == 0 {
		t.Error("no merges in a long autoplay session")
	}
	if g.Best() < g.Score() {
		t.Errorf("best %d < score %d", g.Best(), g.Score())
	}
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	g, _ := newTestGame(t, Options{
		Seed:           2,
		OutputDir:      dir,
		StatsWindowSec: 1,
		AutoDrop:       true,
		AutoDropSec:    0.4,
	})

	for i := 0; i < 600; i++ {
		g.Update()
	}
	g.Unload()

	for _, name := range []string{"telemetry.csv", "perf.csv", "config.yaml"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestCreateSnapshot(t *testing.T) {
	g, _ := newTestGame(t, Options{Seed: 1, DisablePhysics: true})
	a := spawnTracked(g, 2, components.Vec2{X: 100, Y: 500})
	b := spawnTracked(g, 2, components.Vec2{X: 150, Y: 500})
	spawnTracked(g, 4, components.Vec2{X: 300, Y: 500})
	g.HandleCollision(CollisionEvent{A: a, B: b})

	snap := g.CreateSnapshot(nil)
	if len(snap.Fruits) != 3 {
		t.Errorf("fruits = %d, want 3", len(snap.Fruits))
	}
	if len(snap.Pairs) != 1 || snap.Pairs[0].Phase != "converging" {
		t.Errorf("pairs = %+v", snap.Pairs)
	}
	if snap.CurrentTier == nil || snap.PreviewTier == nil {
		t.Error("queue tiers missing from snapshot")
	}
}
