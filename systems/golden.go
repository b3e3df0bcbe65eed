package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
)

// GoldenSettings holds the golden promotion tuning.
type GoldenSettings struct {
	ChancePercent float64
	MinLiveFruits int
}

// GoldenSettingsFromConfig reads golden tuning from config.
func GoldenSettingsFromConfig(cfg *config.Config) GoldenSettings {
	return GoldenSettings{
		ChancePercent: cfg.Golden.ChancePercent,
		MinLiveFruits: cfg.Golden.MinLiveFruits,
	}
}

// GoldenPromoter decides which fruit turn golden and resolves collisions
// where a golden fruit is the actor.
type GoldenPromoter struct {
	registry *Registry
	tiers    *TierTable
	bus      *events.Bus
	rng      *rand.Rand
	settings GoldenSettings

	// Fruit currently touching the max-height trigger
	ceiling map[ecs.Entity]bool
}

// NewGoldenPromoter creates a promoter and hooks it into registry
// destruction to keep the ceiling set clean.
func NewGoldenPromoter(registry *Registry, tiers *TierTable, bus *events.Bus, rng *rand.Rand, settings GoldenSettings) *GoldenPromoter {
	g := &GoldenPromoter{
		registry: registry,
		tiers:    tiers,
		bus:      bus,
		rng:      rng,
		settings: settings,
		ceiling:  make(map[ecs.Entity]bool),
	}
	registry.OnDestroy(func(e ecs.Entity, _ events.DestroyCause) {
		delete(g.ceiling, e)
	})
	return g
}

// drawSpan returns the exclusive upper bound of the double draw.
func (g *GoldenPromoter) drawSpan() int {
	return int(math.Ceil(100 / g.settings.ChancePercent))
}

// Probability returns the effective per-spawn golden probability.
func (g *GoldenPromoter) Probability() float64 {
	if g.settings.ChancePercent <= 0 {
		return 0
	}
	n := g.drawSpan() - 1
	if n <= 1 {
		return 1
	}
	return 1 / float64(n)
}

// OnNaturalSpawn rolls for golden on a player-released fruit. Returns true
// if the fruit turned golden.
func (g *GoldenPromoter) OnNaturalSpawn(e ecs.Entity) bool {
	f := g.registry.Fruit(e)
	if f == nil || f.EvolvedFromMerge || f.Golden {
		return false
	}

	live := g.registry.Len()
	if g.registry.Tracked(e) {
		live--
	}
	if live < g.settings.MinLiveFruits {
		return false
	}
	if g.settings.ChancePercent <= 0 {
		return false
	}

	// Two independent draws in [1, span); equal means golden.
	n := g.drawSpan() - 1
	if n > 1 {
		a := g.rng.Intn(n) + 1
		b := g.rng.Intn(n) + 1
		if a != b {
			return false
		}
	}

	f.Golden = true
	g.bus.Publish(events.GoldenSpawned{Entity: e})
	return true
}

// OnCeilingContact records whether e touches the max-height trigger.
func (g *GoldenPromoter) OnCeilingContact(e ecs.Entity, touching bool) {
	if !touching {
		delete(g.ceiling, e)
		return
	}
	if g.registry.Tracked(e) {
		g.ceiling[e] = true
	}
}

// TouchingCeiling reports whether e is in the ceiling set.
func (g *GoldenPromoter) TouchingCeiling(e ecs.Entity) bool {
	return g.ceiling[e]
}

// CeilingCount returns how many fruit touch the ceiling.
func (g *GoldenPromoter) CeilingCount() int {
	return len(g.ceiling)
}

// Ceiling returns the fruit touching the ceiling, in no particular order.
func (g *GoldenPromoter) Ceiling() []ecs.Entity {
	out := make([]ecs.Entity, 0, len(g.ceiling))
	for e := range g.ceiling {
		out = append(out, e)
	}
	return out
}

// ClearCeiling forgets every ceiling contact.
func (g *GoldenPromoter) ClearCeiling() {
	clear(g.ceiling)
}

// OnBoundaryExit force-promotes a fruit that crosses the top of the board
// while touching the ceiling and moving further out. Fruit in a live merge
// are left alone. Returns true on promotion.
func (g *GoldenPromoter) OnBoundaryExit(e ecs.Entity, receding bool) bool {
	if !receding || !g.ceiling[e] {
		return false
	}
	f, _, ok := g.registry.Get(e)
	if !ok || f.Golden || f.Evolving {
		return false
	}
	f.Golden = true
	f.UpgradedGolden = true
	g.bus.Publish(events.GoldenSpawned{Entity: e, Upgraded: true})
	return true
}

// OnGoldenCollision resolves a golden fruit striking other. Returns true
// if other was destroyed.
func (g *GoldenPromoter) OnGoldenCollision(golden, other ecs.Entity) bool {
	fg, _, okG := g.registry.Get(golden)
	fo, _, okO := g.registry.Get(other)
	if !okG || !okO || !fg.Golden {
		return false
	}
	if fg.Evolving || fo.Evolving {
		return false
	}
	if fo.Golden && !fo.UpgradedGolden {
		return false
	}

	// Read everything needed before any destruction invalidates pointers.
	otherWasGolden := fo.Golden
	otherTier := fo.Tier
	upgraded := fg.UpgradedGolden

	g.registry.Destroy(other, events.CauseGolden)
	if !otherWasGolden {
		g.bus.Publish(events.ScoreAwarded{
			Points: g.tiers.Value(otherTier),
			Reason: events.ReasonGoldenCollision,
		})
	}
	if upgraded {
		g.registry.Destroy(golden, events.CauseGolden)
	}
	return true
}
