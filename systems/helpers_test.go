package systems

import (
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
)

// testEnv wires the pieces every system test needs.
type testEnv struct {
	cfg      *config.Config
	bus      *events.Bus
	rec      *events.Recorder
	registry *Registry
	tiers    *TierTable
	rng      *rand.Rand
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	bus := events.NewBus()
	rec := &events.Recorder{}
	bus.Subscribe(rec)
	return &testEnv{
		cfg:      cfg,
		bus:      bus,
		rec:      rec,
		registry: NewRegistry(bus),
		tiers:    NewTierTable(cfg),
		rng:      rand.New(rand.NewSource(1)),
	}
}

// spawn creates a released, tracked fruit of the given tier at pos.
func (env *testEnv) spawn(tier components.Tier, pos components.Vec2) ecs.Entity {
	info := env.tiers.Info(tier)
	e := env.registry.Create(
		components.Fruit{Tier: tier, Released: true, Visible: true, Collidable: true},
		components.Body{Pos: pos, Radius: info.Radius, Scale: 1, Mass: info.Mass, BaseMass: info.Mass},
	)
	env.registry.Add(e)
	return e
}

// eventsOf returns recorded events of type T in publish order.
func eventsOf[T events.Event](rec *events.Recorder) []T {
	var out []T
	for _, ev := range rec.Events {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
