package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/events"
)

func newTestGolden(env *testEnv, chance float64, minLive int) *GoldenPromoter {
	return NewGoldenPromoter(env.registry, env.tiers, env.bus, rand.New(rand.NewSource(3)), GoldenSettings{
		ChancePercent: chance,
		MinLiveFruits: minLive,
	})
}

func fillBoard(env *testEnv, n int) {
	for i := 0; i < n; i++ {
		env.spawn(0, components.Vec2{X: float32(20 * i), Y: 700})
	}
}

func TestGoldenThreshold(t *testing.T) {
	env := newTestEnv(t)
	g := newTestGolden(env, 100, 5)
	fillBoard(env, 4)

	e := env.spawn(1, components.Vec2{})
	if g.OnNaturalSpawn(e) {
		t.Fatal("golden spawned below the live-fruit threshold")
	}

	fillBoard(env, 1)
	if !g.OnNaturalSpawn(e) {
		t.Fatal("certain golden did not fire at the threshold")
	}
	if f := env.registry.Fruit(e); !f.Golden || f.UpgradedGolden {
		t.Errorf("fruit = %+v, want plain golden", *f)
	}
	spawned := eventsOf[events.GoldenSpawned](env.rec)
	if len(spawned) != 1 || spawned[0].Upgraded {
		t.Errorf("GoldenSpawned = %+v", spawned)
	}
}

func TestGoldenSkipsMergeResults(t *testing.T) {
	env := newTestEnv(t)
	g := newTestGolden(env, 100, 0)
	e := env.registry.Create(components.Fruit{Tier: 3, EvolvedFromMerge: true, Collidable: true}, components.Body{Radius: 32, Scale: 1})
	env.registry.Add(e)

	if g.OnNaturalSpawn(e) {
		t.Error("merge result turned golden")
	}
}

func TestGoldenProbability(t *testing.T) {
	tests := []struct {
		chance float64
		want   float64
	}{
		{0, 0},
		{-5, 0},
		{100, 1},
		{50, 1}, // [1, 2) holds a single value
		{25, 1.0 / 3},
		{5, 1.0 / 19},
	}

	for _, tc := range tests {
		env := newTestEnv(t)
		g := newTestGolden(env, tc.chance, 0)
		if got := g.Probability(); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("chance %v: Probability = %v, want %v", tc.chance, got, tc.want)
		}

		const trials = 20000
		hits := 0
		for i := 0; i < trials; i++ {
			e := env.spawn(0, components.Vec2{})
			if g.OnNaturalSpawn(e) {
				hits++
			}
			env.registry.Destroy(e, events.CauseReset)
		}

		freq := float64(hits) / trials
		sigma := math.Sqrt(tc.want * (1 - tc.want) / trials)
		if math.Abs(freq-tc.want) > 4*sigma+1e-9 {
			t.Errorf("chance %v: frequency %.4f, want %.4f", tc.chance, freq, tc.want)
		}
	}
}

func TestUpgradedGoldenOnBoundaryExit(t *testing.T) {
	env := newTestEnv(t)
	g := newTestGolden(env, 0, 0)
	e := env.spawn(5, components.Vec2{Y: -80})

	if g.OnBoundaryExit(e, true) {
		t.Fatal("promoted a fruit that never touched the ceiling")
	}

	g.OnCeilingContact(e, true)
	if g.OnBoundaryExit(e, false) {
		t.Fatal("promoted a fruit that was not receding")
	}
	if !g.OnBoundaryExit(e, true) {
		t.Fatal("ceiling fruit leaving the board was not promoted")
	}
	if f := env.registry.Fruit(e); !f.Golden || !f.UpgradedGolden {
		t.Errorf("fruit = %+v, want upgraded golden", *f)
	}
	if g.OnBoundaryExit(e, true) {
		t.Error("already golden fruit promoted twice")
	}
	spawned := eventsOf[events.GoldenSpawned](env.rec)
	if len(spawned) != 1 || !spawned[0].Upgraded {
		t.Errorf("GoldenSpawned = %+v", spawned)
	}
}

func TestBoundaryExitSkipsMergingFruit(t *testing.T) {
	env := newTestEnv(t)
	g := newTestGolden(env, 0, 0)
	m := newTestMerge(env)
	a := env.spawn(2, components.Vec2{X: 100, Y: -60})
	b := env.spawn(2, components.Vec2{X: 140, Y: -60})
	if !m.TryPair(a, b) {
		t.Fatal("pair not started")
	}

	g.OnCeilingContact(a, true)
	if g.OnBoundaryExit(a, true) {
		t.Fatal("fruit in a live merge was promoted")
	}
	if f := env.registry.Fruit(a); f.Golden || f.UpgradedGolden {
		t.Errorf("fruit = %+v, want plain", *f)
	}
	if n := len(eventsOf[events.GoldenSpawned](env.rec)); n != 0 {
		t.Errorf("GoldenSpawned published %d times", n)
	}
}

func TestCeilingSetForgetsDestroyedFruit(t *testing.T) {
	env := newTestEnv(t)
	g := newTestGolden(env, 0, 0)
	e := env.spawn(2, components.Vec2{})
	g.OnCeilingContact(e, true)

	env.registry.Destroy(e, events.CauseOutOfBounds)

	if g.TouchingCeiling(e) || g.CeilingCount() != 0 {
		t.Error("destroyed fruit still in the ceiling set")
	}
}

func TestGoldenCollision(t *testing.T) {
	type setup struct {
		goldenUpgraded bool
		otherGolden    bool
		otherUpgraded  bool
		otherEvolving  bool
		otherStale     bool
	}
	tests := []struct {
		name           string
		setup          setup
		wantDestroyed  bool
		wantGoldenGone bool
		wantScore      bool
	}{
		{"golden strikes normal", setup{}, true, false, true},
		{"upgraded strikes normal", setup{goldenUpgraded: true}, true, true, true},
		{"golden vs golden", setup{otherGolden: true}, false, false, false},
		{"golden strikes upgraded", setup{otherGolden: true, otherUpgraded: true}, true, false, false},
		{"other evolving", setup{otherEvolving: true}, false, false, false},
		{"other stale", setup{otherStale: true}, false, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			g := newTestGolden(env, 0, 0)

			golden := env.spawn(2, components.Vec2{})
			gf := env.registry.Fruit(golden)
			gf.Golden = true
			gf.UpgradedGolden = tc.setup.goldenUpgraded

			other := env.spawn(6, components.Vec2{X: 100})
			of := env.registry.Fruit(other)
			of.Golden = tc.setup.otherGolden
			of.UpgradedGolden = tc.setup.otherUpgraded
			of.Evolving = tc.setup.otherEvolving
			if tc.setup.otherStale {
				env.registry.Destroy(other, events.CauseOutOfBounds)
				env.rec.Drain()
			}

			got := g.OnGoldenCollision(golden, other)
			if got != tc.wantDestroyed {
				t.Fatalf("OnGoldenCollision = %v, want %v", got, tc.wantDestroyed)
			}
			if tc.wantDestroyed && env.registry.Alive(other) {
				t.Error("struck fruit survived")
			}
			if gone := !env.registry.Alive(golden); gone != tc.wantGoldenGone {
				t.Errorf("golden destroyed = %v, want %v", gone, tc.wantGoldenGone)
			}

			scores := eventsOf[events.ScoreAwarded](env.rec)
			if tc.wantScore {
				if len(scores) != 1 || scores[0].Points != env.tiers.Value(6) || scores[0].Reason != events.ReasonGoldenCollision {
					t.Errorf("ScoreAwarded = %+v", scores)
				}
			} else if len(scores) != 0 {
				t.Errorf("unexpected ScoreAwarded %+v", scores)
			}

			// The struck fruit always goes before a spent upgraded golden.
			destroyed := eventsOf[events.EntityDestroyed](env.rec)
			if tc.wantGoldenGone {
				if len(destroyed) != 2 || destroyed[0].Entity != other || destroyed[1].Entity != golden {
					t.Errorf("destruction order = %+v", destroyed)
				}
			}
		})
	}
}

func TestGoldenCollisionRequiresGoldenActor(t *testing.T) {
	env := newTestEnv(t)
	g := newTestGolden(env, 0, 0)
	a := env.spawn(1, components.Vec2{})
	b := env.spawn(1, components.Vec2{X: 50})
	if g.OnGoldenCollision(a, b) {
		t.Error("non-golden actor destroyed a fruit")
	}
	var zero ecs.Entity
	if g.OnGoldenCollision(zero, b) {
		t.Error("zero entity handled as golden")
	}
}
