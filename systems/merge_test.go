package systems

import (
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/events"
)

const testDT = float32(1.0 / 60.0)

func newTestMerge(env *testEnv) *MergeCoordinator {
	return NewMergeCoordinator(env.registry, env.tiers, env.bus, MergeSettingsFromConfig(env.cfg))
}

// drain ticks until no pair is pending. Fails the test if any pair is still
// converging after a generous budget.
func drain(t *testing.T, m *MergeCoordinator) {
	t.Helper()
	for i := 0; i < 2000 && m.Pending() > 0; i++ {
		m.Tick(testDT)
	}
	if m.Pending() > 0 {
		t.Fatalf("%d pairs still pending", m.Pending())
	}
}

func TestMergeProducesSuccessor(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMerge(env)

	a := env.spawn(2, components.Vec2{X: 100, Y: 600})
	b := env.spawn(2, components.Vec2{X: 152, Y: 600})

	if !m.TryPair(a, b) {
		t.Fatal("TryPair rejected two equal-tier fruit")
	}
	for _, e := range []ecs.Entity{a, b} {
		f, body, _ := env.registry.Get(e)
		if !f.Evolving {
			t.Error("pair member not marked evolving")
		}
		if body.Mass != float32(env.cfg.Merge.EvolvingMass) {
			t.Errorf("member mass = %v, want pinned %v", body.Mass, env.cfg.Merge.EvolvingMass)
		}
	}

	// After one tick both members moved toward the meeting point.
	m.Tick(testDT)
	if pa := env.registry.Body(a).Pos; pa.X <= 100 {
		t.Errorf("member a did not advance: %v", pa)
	}
	if pb := env.registry.Body(b).Pos; pb.X >= 152 {
		t.Errorf("member b did not advance: %v", pb)
	}

	drain(t, m)

	if env.registry.Alive(a) || env.registry.Alive(b) {
		t.Error("inputs survived the merge")
	}
	all := env.registry.All()
	if len(all) != 1 {
		t.Fatalf("registry holds %d fruit, want 1", len(all))
	}
	f, body, _ := env.registry.Get(all[0])
	if f.Tier != 3 || !f.EvolvedFromMerge || !f.Visible || !f.Collidable {
		t.Errorf("result fruit = %+v", *f)
	}
	if body.Scale != 1 {
		t.Errorf("result scale = %v, want 1", body.Scale)
	}
	if body.Pos != (components.Vec2{X: 126, Y: 600}) {
		t.Errorf("result at %v, want meeting point", body.Pos)
	}

	merges := eventsOf[events.MergeCompleted](env.rec)
	if len(merges) != 1 {
		t.Fatalf("got %d MergeCompleted, want 1", len(merges))
	}
	if merges[0].FromTier != 2 || merges[0].ResultTier != 3 || merges[0].Terminal {
		t.Errorf("MergeCompleted = %+v", merges[0])
	}
	scores := eventsOf[events.ScoreAwarded](env.rec)
	if len(scores) != 1 || scores[0].Points != env.tiers.Value(3) || scores[0].Reason != events.ReasonMerge {
		t.Errorf("ScoreAwarded = %+v", scores)
	}
	for _, d := range eventsOf[events.EntityDestroyed](env.rec) {
		if d.Cause != events.CauseMerged {
			t.Errorf("input destroyed with cause %v", d.Cause)
		}
	}
}

func TestMergeResultHiddenWhileGrowing(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMerge(env)
	a := env.spawn(0, components.Vec2{X: 100, Y: 600})
	b := env.spawn(0, components.Vec2{X: 128, Y: 600})
	m.TryPair(a, b)

	for i := 0; i < 500; i++ {
		m.Tick(testDT)
		pairs := m.Pairs()
		if len(pairs) == 1 && pairs[0].Phase == PhaseGrowing {
			f := env.registry.Fruit(pairs[0].Result)
			if f == nil || f.Visible || f.Collidable {
				t.Fatalf("growing result should be hidden, got %+v", f)
			}
			if !env.registry.Tracked(pairs[0].Result) {
				t.Fatal("growing result should be tracked")
			}
			return
		}
	}
	t.Fatal("pair never reached the growing phase")
}

func TestTryPairRejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testEnv) (ecs.Entity, ecs.Entity)
	}{
		{"different tiers", func(env *testEnv) (ecs.Entity, ecs.Entity) {
			return env.spawn(1, components.Vec2{}), env.spawn(2, components.Vec2{X: 40})
		}},
		{"same entity", func(env *testEnv) (ecs.Entity, ecs.Entity) {
			a := env.spawn(1, components.Vec2{})
			return a, a
		}},
		{"golden member", func(env *testEnv) (ecs.Entity, ecs.Entity) {
			a := env.spawn(1, components.Vec2{})
			env.registry.Fruit(a).Golden = true
			return a, env.spawn(1, components.Vec2{X: 40})
		}},
		{"evolve skill", func(env *testEnv) (ecs.Entity, ecs.Entity) {
			a := env.spawn(1, components.Vec2{})
			b := env.spawn(1, components.Vec2{X: 40})
			env.registry.Fruit(b).Skill = components.SkillEvolve
			return a, b
		}},
		{"destroy skill", func(env *testEnv) (ecs.Entity, ecs.Entity) {
			a := env.spawn(1, components.Vec2{})
			env.registry.Fruit(a).Skill = components.SkillDestroy
			return a, env.spawn(1, components.Vec2{X: 40})
		}},
		{"already evolving", func(env *testEnv) (ecs.Entity, ecs.Entity) {
			a := env.spawn(1, components.Vec2{})
			env.registry.Fruit(a).Evolving = true
			return a, env.spawn(1, components.Vec2{X: 40})
		}},
		{"untracked member", func(env *testEnv) (ecs.Entity, ecs.Entity) {
			a := env.spawn(1, components.Vec2{})
			b := env.registry.Create(components.Fruit{Tier: 1, Collidable: true}, components.Body{Radius: 19, Scale: 1})
			return a, b
		}},
		{"stale member", func(env *testEnv) (ecs.Entity, ecs.Entity) {
			a := env.spawn(1, components.Vec2{})
			b := env.spawn(1, components.Vec2{X: 40})
			env.registry.Destroy(b, events.CauseOutOfBounds)
			return a, b
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			m := newTestMerge(env)
			a, b := tc.setup(env)
			if m.TryPair(a, b) {
				t.Error("TryPair accepted an ineligible pair")
			}
			if m.Pending() != 0 {
				t.Errorf("Pending = %d, want 0", m.Pending())
			}
		})
	}
}

func TestMergeTerminalTier(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMerge(env)
	top := env.tiers.Max()
	a := env.spawn(top, components.Vec2{X: 100, Y: 500})
	b := env.spawn(top, components.Vec2{X: 276, Y: 500})

	if !m.TryPair(a, b) {
		t.Fatal("TryPair rejected two max-tier fruit")
	}
	drain(t, m)

	if env.registry.Len() != 0 {
		t.Errorf("terminal merge left %d fruit, want 0", env.registry.Len())
	}
	merges := eventsOf[events.MergeCompleted](env.rec)
	if len(merges) != 1 || !merges[0].Terminal || !merges[0].Result.IsZero() {
		t.Fatalf("MergeCompleted = %+v", merges)
	}
	scores := eventsOf[events.ScoreAwarded](env.rec)
	if len(scores) != 1 || scores[0].Points != env.tiers.Value(top) {
		t.Errorf("ScoreAwarded = %+v, want max tier value", scores)
	}
}

func TestMergeAbortWhileConverging(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMerge(env)
	a := env.spawn(4, components.Vec2{X: 60, Y: 600})
	b := env.spawn(4, components.Vec2{X: 400, Y: 600})
	m.TryPair(a, b)
	m.Tick(testDT)

	env.registry.Destroy(a, events.CauseOutOfBounds)

	if m.Pending() != 0 {
		t.Fatalf("Pending = %d after member destroyed, want 0", m.Pending())
	}
	f, body, ok := env.registry.Get(b)
	if !ok {
		t.Fatal("survivor was destroyed")
	}
	if f.Evolving {
		t.Error("survivor still marked evolving")
	}
	if body.Mass != body.BaseMass {
		t.Errorf("survivor mass = %v, want base %v", body.Mass, body.BaseMass)
	}

	for i := 0; i < 200; i++ {
		m.Tick(testDT)
	}
	if env.registry.Len() != 1 {
		t.Errorf("registry Len = %d, want only the survivor", env.registry.Len())
	}
	if n := env.rec.Count(events.TypeMergeCompleted); n != 0 {
		t.Errorf("aborted pair completed %d times", n)
	}
}

func TestMergeAbortWhileGrowing(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMerge(env)
	a := env.spawn(0, components.Vec2{X: 100, Y: 600})
	b := env.spawn(0, components.Vec2{X: 128, Y: 600})
	m.TryPair(a, b)

	var result ecs.Entity
	for i := 0; i < 500 && result.IsZero(); i++ {
		m.Tick(testDT)
		if pairs := m.Pairs(); len(pairs) == 1 && pairs[0].Phase == PhaseGrowing {
			result = pairs[0].Result
		}
	}
	if result.IsZero() {
		t.Fatal("pair never reached the growing phase")
	}

	env.registry.Destroy(b, events.CauseOutOfBounds)

	if env.registry.Alive(result) {
		t.Error("hidden result survived the abort")
	}
	if f := env.registry.Fruit(a); f == nil || f.Evolving {
		t.Errorf("survivor state = %+v", f)
	}
	if env.rec.Count(events.TypeScoreAwarded) != 0 {
		t.Error("aborted merge awarded points")
	}
}

func TestMergeAbortAll(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMerge(env)
	for i := 0; i < 3; i++ {
		y := float32(200 + 100*i)
		m.TryPair(env.spawn(1, components.Vec2{X: 100, Y: y}), env.spawn(1, components.Vec2{X: 138, Y: y}))
	}
	for i := 0; i < 5; i++ {
		m.Tick(testDT)
	}

	m.AbortAll()

	if m.Pending() != 0 {
		t.Fatalf("Pending = %d after AbortAll", m.Pending())
	}
	for _, e := range env.registry.All() {
		if f := env.registry.Fruit(e); f.Evolving || f.EvolvedFromMerge {
			t.Errorf("fruit left in merge state: %+v", *f)
		}
	}
}

// TestPairExclusivity drives random pairings, ticks and destructions and
// checks that no fruit is ever in two pairs and every merge climbs one tier.
func TestPairExclusivity(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMerge(env)
	rng := rand.New(rand.NewSource(42))

	var pool []ecs.Entity
	for i := 0; i < 60; i++ {
		pos := components.Vec2{X: rng.Float32() * 480, Y: rng.Float32() * 720}
		pool = append(pool, env.spawn(components.Tier(rng.Intn(4)), pos))
	}

	check := func(step int) {
		seen := make(map[ecs.Entity]bool)
		for _, p := range m.Pairs() {
			for _, e := range []ecs.Entity{p.A.Entity, p.B.Entity} {
				if seen[e] {
					t.Fatalf("step %d: fruit %v in two pairs", step, e)
				}
				seen[e] = true
			}
		}
		for _, e := range env.registry.All() {
			f := env.registry.Fruit(e)
			if f.Evolving != seen[e] {
				t.Fatalf("step %d: fruit %v Evolving=%v but paired=%v", step, e, f.Evolving, seen[e])
			}
		}
	}

	for step := 0; step < 3000; step++ {
		switch r := rng.Intn(10); {
		case r < 6:
			a := pool[rng.Intn(len(pool))]
			b := pool[rng.Intn(len(pool))]
			m.TryPair(a, b)
		case r < 9:
			m.Tick(testDT)
		default:
			live := env.registry.All()
			if len(live) > 0 {
				env.registry.Destroy(live[rng.Intn(len(live))], events.CauseOutOfBounds)
			}
		}
		// Merge results join the pool so chains can form.
		pool = env.registry.All()
		if len(pool) < 2 {
			break
		}
		check(step)
	}

	drain(t, m)
	check(-1)

	for _, mc := range eventsOf[events.MergeCompleted](env.rec) {
		if mc.Terminal {
			continue
		}
		if mc.ResultTier != mc.FromTier+1 {
			t.Errorf("merge from tier %d produced tier %d", mc.FromTier, mc.ResultTier)
		}
	}
}
