package game

import (
	"log/slog"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles milestones.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.sampleBoard())
	perfStats := g.perfCollector.Stats()
	merges := g.collector.DrainMerges()
	g.lastStats = &stats

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
		if err := g.outputManager.WriteMerges(merges); err != nil {
			slog.Error("failed to write merges", "error", err)
		}
	}

	g.handleMilestones(g.milestones.Check(stats))
}

// handleMilestones logs, records and snapshots detected milestones.
func (g *Game) handleMilestones(milestones []telemetry.Milestone) {
	for _, m := range milestones {
		if g.logStats {
			m.LogMilestone()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteMilestone(m); err != nil {
				slog.Error("failed to write milestone", "error", err)
			}
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&m)
		}
	}
}

// sampleBoard collects the board state for the stats window.
func (g *Game) sampleBoard() telemetry.BoardSample {
	all := g.registry.All()
	tiers := make([]float64, 0, len(all))
	for _, e := range all {
		if f := g.registry.Fruit(e); f != nil {
			tiers = append(tiers, float64(f.Tier))
		}
	}
	return telemetry.BoardSample{
		LiveTiers:    tiers,
		Score:        g.score,
		PendingPairs: g.merges.Pending(),
		CeilingCount: g.golden.CeilingCount(),
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (g *Game) saveSnapshot(milestone *telemetry.Milestone) {
	snapshot := g.CreateSnapshot(milestone)

	path, err := telemetry.SaveSnapshot(snapshot, g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "tick", g.tick)
}

// publishBoard hands a fresh snapshot to the board sink.
func (g *Game) publishBoard() {
	if g.boardSink != nil {
		g.boardSink(g.CreateSnapshot(nil))
	}
}

// CreateSnapshot builds a snapshot from the current state.
func (g *Game) CreateSnapshot(milestone *telemetry.Milestone) *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:         telemetry.SnapshotVersion,
		RNGSeed:         g.rngSeed,
		ContainerWidth:  g.cfg.Derived.ContainerW,
		ContainerHeight: g.cfg.Derived.ContainerH,
		Tick:            g.tick,
		Score:           g.score,
		Milestone:       milestone,
	}

	if f := g.registry.Fruit(g.queue.Current()); f != nil {
		tier := f.Tier
		snapshot.CurrentTier = &tier
	}
	if tier, ok := g.queue.PreviewTier(); ok {
		snapshot.PreviewTier = &tier
	}

	for _, e := range g.registry.All() {
		f, b, ok := g.registry.Get(e)
		if !ok {
			continue
		}

		var lifetime *telemetry.LifetimeStatsJSON
		if ls := g.lifetimeTracker.Get(e); ls != nil {
			ls.SurvivalTimeSec = float32(g.tick-ls.BirthTick) * g.dt
			lifetime = ls.ToJSON()
		}

		state := telemetry.FruitState{
			ID:             e.ID(),
			Tier:           f.Tier,
			X:              b.Pos.X,
			Y:              b.Pos.Y,
			VelX:           b.Vel.X,
			VelY:           b.Vel.Y,
			Scale:          b.Scale,
			Mass:           b.Mass,
			Golden:         f.Golden,
			UpgradedGolden: f.UpgradedGolden,
			Evolving:       f.Evolving,
			FromMerge:      f.EvolvedFromMerge,
			Visible:        f.Visible,
			Lifetime:       lifetime,
		}
		if f.Skill != components.SkillNone {
			state.Skill = f.Skill.String()
		}

		snapshot.Fruits = append(snapshot.Fruits, state)
	}

	for _, p := range g.merges.Pairs() {
		snapshot.Pairs = append(snapshot.Pairs, telemetry.PairState{
			A:        p.A.Entity.ID(),
			B:        p.B.Entity.ID(),
			Tier:     p.Tier,
			Phase:    p.Phase.String(),
			MeetingX: p.Meeting.X,
			MeetingY: p.Meeting.Y,
		})
	}

	return snapshot
}
