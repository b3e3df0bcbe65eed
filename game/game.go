// Package game owns the merge engine context: it builds every component,
// routes inbound commands and drives the tick loop.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
	"github.com/pthm-cable/fruitmerge/systems"
	"github.com/pthm-cable/fruitmerge/telemetry"
)

var (
	// ErrGameOver is returned by commands issued after the session ended.
	ErrGameOver = errors.New("game over")
	// ErrNoHeldFruit is returned when the spawner slot is empty.
	ErrNoHeldFruit = errors.New("no held fruit")
)

// Game holds the complete engine state. It is not safe for concurrent use;
// one goroutine owns it and collaborators receive copies through the bus.
type Game struct {
	cfg     *config.Config
	rng     *rand.Rand
	autoRNG *rand.Rand
	rngSeed int64
	dt      float32

	bus      *events.Bus
	registry *systems.Registry
	tiers    *systems.TierTable
	selector *systems.SpawnSelector
	queue    *systems.NextFruitQueue
	golden   *systems.GoldenPromoter
	merges   *systems.MergeCoordinator
	skills   *systems.SkillEvolutionHandler
	physics  *systems.PhysicsSystem // nil when physics is external

	// State
	tick     int32
	score    int
	best     int
	sessions int
	gameOver bool
	overflow float32 // Seconds the ceiling has been continuously occupied
	dropAcc  float32 // Autoplay timer

	stepsPerUpdate int
	autoDrop       bool
	autoDropSec    float32
	skillChance    float64
	autoRestart    bool

	// Telemetry
	collector       *telemetry.Collector
	perfCollector   *telemetry.PerfCollector
	tickMerges      int
	lifetimeTracker *telemetry.LifetimeTracker
	milestones      *telemetry.MilestoneDetector
	outputManager   *telemetry.OutputManager
	logStats        bool
	snapshotDir     string
	statsCallback   func(telemetry.WindowStats)
	boardSink       func(*telemetry.Snapshot)
	boardEvery      int32
	lastStats       *telemetry.WindowStats
}

// NewGame builds an engine from cfg and seeds the spawn queue.
func NewGame(cfg *config.Config, opts Options) (*Game, error) {
	bus := events.NewBus()
	rng := rand.New(rand.NewSource(opts.Seed))
	registry := systems.NewRegistry(bus)
	tiers := systems.NewTierTable(cfg)
	selector := systems.NewSpawnSelector(tiers, systems.SpawnPolicyFromConfig(cfg), rng)

	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}
	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	g := &Game{
		cfg:      cfg,
		rng:      rng,
		autoRNG:  rand.New(rand.NewSource(opts.Seed + 1)),
		rngSeed:  opts.Seed,
		dt:       cfg.Derived.DT32,
		bus:      bus,
		registry: registry,
		tiers:    tiers,
		selector: selector,

		stepsPerUpdate: steps,
		autoDrop:       opts.AutoDrop,
		autoDropSec:    float32(opts.AutoDropSec),
		skillChance:    opts.SkillChance,
		autoRestart:    opts.AutoRestart,

		collector:       telemetry.NewCollector(statsWindow, cfg.Derived.DT32),
		perfCollector:   telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		lifetimeTracker: telemetry.NewLifetimeTracker(),
		milestones: telemetry.NewMilestoneDetector(
			cfg.Telemetry.MilestoneHistory,
			cfg.Telemetry.ComboMultiplier,
			cfg.Telemetry.ComboMinMerges,
		),
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
		boardSink:     opts.BoardSink,
		boardEvery:    int32(opts.BoardEveryTicks),
	}
	if g.autoDropSec <= 0 {
		g.autoDropSec = 0.8
	}

	g.queue = systems.NewNextFruitQueue(registry, selector, tiers, bus, g.spawnPosition())
	g.golden = systems.NewGoldenPromoter(registry, tiers, bus, rng, systems.GoldenSettingsFromConfig(cfg))
	g.merges = systems.NewMergeCoordinator(registry, tiers, bus, systems.MergeSettingsFromConfig(cfg))
	g.skills = systems.NewSkillEvolutionHandler(registry, tiers, bus, float32(cfg.Skills.PowerMassMultiplier))
	if !opts.DisablePhysics {
		bounds := systems.Bounds{Width: cfg.Derived.ContainerW, Height: cfg.Derived.ContainerH}
		g.physics = systems.NewPhysicsSystem(registry, bounds, systems.PhysicsSettingsFromConfig(cfg))
	}

	registry.OnTrack(g.onTrack)
	registry.OnDestroy(g.onDestroy)
	bus.Subscribe(g.collector)
	bus.SubscribeFunc(g.onEvent,
		events.TypeScoreAwarded,
		events.TypeMergeCompleted,
		events.TypeGoldenSpawned,
		events.TypeFruitReleased,
	)

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("initializing output: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if err := g.queue.Seed(); err != nil {
		om.Close()
		return nil, fmt.Errorf("seeding spawn queue: %w", err)
	}
	g.sessions = 1
	g.publishBoard()

	return g, nil
}

func (g *Game) spawnPosition() components.Vec2 {
	return components.Vec2{X: g.cfg.Derived.ContainerW / 2, Y: float32(g.cfg.Container.SpawnerY)}
}

// onEvent keeps score and feeds lifetime and milestone tracking.
func (g *Game) onEvent(ev events.Event) {
	switch e := ev.(type) {
	case events.ScoreAwarded:
		g.score += e.Points
		g.best = max(g.best, g.score)
	case events.MergeCompleted:
		g.tickMerges++
		rec := telemetry.NewMergeRecord(g.tick, e)
		g.handleMilestones(g.milestones.ObserveMerge(rec))
	case events.GoldenSpawned:
		g.lifetimeTracker.MarkGolden(e.Entity)
	case events.FruitReleased:
		g.milestones.MarkReached(int(e.Tier))
	}
}

func (g *Game) onTrack(e ecs.Entity) {
	if f := g.registry.Fruit(e); f != nil {
		g.lifetimeTracker.Register(e, g.tick, f.Tier, f.EvolvedFromMerge)
	}
}

func (g *Game) onDestroy(e ecs.Entity, cause events.DestroyCause) {
	s := g.lifetimeTracker.Remove(e, g.tick, g.dt)
	if s == nil || cause == events.CauseReset || cause == events.CauseAborted {
		return
	}
	g.collector.RecordLifetime(s.SurvivalTimeSec)
}

// Update advances the engine by StepsPerUpdate ticks, running autoplay and
// auto-restart when enabled.
func (g *Game) Update() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		if g.gameOver {
			if !g.autoRestart {
				return
			}
			if err := g.Reset(ResetCommand{}); err != nil {
				slog.Error("auto restart failed", "error", err)
				return
			}
		}
		if g.autoDrop {
			g.autoplay()
		}
		g.Tick(g.dt)
	}
}

// autoplay drops the held fruit at a random x on a fixed cadence.
func (g *Game) autoplay() {
	g.dropAcc += g.dt
	if g.dropAcc < g.autoDropSec {
		return
	}
	g.dropAcc = 0

	if g.skillChance > 0 && g.autoRNG.Float64() < g.skillChance {
		skill := components.Skill(1 + g.autoRNG.Intn(3))
		if err := g.ActivateSkill(SkillActivationCommand{Skill: skill}); err != nil {
			slog.Debug("autoplay_skill_failed", "error", err)
		}
	}
	x := g.autoRNG.Float32() * g.cfg.Derived.ContainerW
	if _, err := g.Release(ReleaseCommand{X: x}); err != nil {
		slog.Debug("autoplay_release_failed", "error", err)
	}
}

// Unload flushes output and logs the session summary.
func (g *Game) Unload() {
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	slog.Info("session_summary",
		"sessions", g.sessions,
		"tick", g.tick,
		"score", g.score,
		"best", g.best,
		"live", g.registry.Len(),
	)
}

// Config returns the engine configuration.
func (g *Game) Config() *config.Config { return g.cfg }

// Bus returns the outbound event bus.
func (g *Game) Bus() *events.Bus { return g.bus }

// Registry returns the entity registry. Callers must stay on the engine goroutine.
func (g *Game) Registry() *systems.Registry { return g.registry }

// Tiers returns the tier table.
func (g *Game) Tiers() *systems.TierTable { return g.tiers }

// Merges returns the merge coordinator.
func (g *Game) Merges() *systems.MergeCoordinator { return g.merges }

// Queue returns the next-fruit queue.
func (g *Game) Queue() *systems.NextFruitQueue { return g.queue }

// Golden returns the golden promoter.
func (g *Game) Golden() *systems.GoldenPromoter { return g.golden }

// CurrentTick returns the number of ticks since the engine started.
func (g *Game) CurrentTick() int32 { return g.tick }

// Score returns the current session score.
func (g *Game) Score() int { return g.score }

// Best returns the best score across sessions.
func (g *Game) Best() int { return g.best }

// Sessions returns how many sessions have started.
func (g *Game) Sessions() int { return g.sessions }

// GameOver reports whether the session has ended.
func (g *Game) GameOver() bool { return g.gameOver }

// OverflowProgress returns how far the overflow timer is toward game over, 0..1.
func (g *Game) OverflowProgress() float32 {
	limit := float32(g.cfg.Container.OverflowSeconds)
	if limit <= 0 {
		return 0
	}
	return min(g.overflow/limit, 1)
}

// LastStats returns the most recently flushed stats window, or nil before
// the first flush.
func (g *Game) LastStats() *telemetry.WindowStats { return g.lastStats }

// Perf returns the perf collector.
func (g *Game) Perf() *telemetry.PerfCollector { return g.perfCollector }
