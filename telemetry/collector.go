package telemetry

import (
	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/events"
)

// Collector accumulates engine events within time windows and produces
// WindowStats. It subscribes to the event bus.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32
	tick            int32

	// Event counters for current window
	released       int
	merges         [components.MaxTier + 1]int
	terminalMerges int
	golden         int
	upgradedGolden int
	skillsUsed     int
	destroyed      int
	outOfBounds    int
	points         int
	resets         int

	// Lifetimes (seconds) of fruit destroyed this window
	lifetimes []float64

	// Merge log rows not yet drained
	mergeLog []MergeRecord
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// SetTick stamps subsequent merge log rows.
func (c *Collector) SetTick(tick int32) {
	c.tick = tick
}

// OnEvent records a bus event.
func (c *Collector) OnEvent(ev events.Event) {
	switch e := ev.(type) {
	case events.FruitReleased:
		c.released++
	case events.MergeCompleted:
		if int(e.FromTier) < len(c.merges) {
			c.merges[e.FromTier]++
		}
		if e.Terminal {
			c.terminalMerges++
		}
		c.mergeLog = append(c.mergeLog, NewMergeRecord(c.tick, e))
	case events.GoldenSpawned:
		if e.Upgraded {
			c.upgradedGolden++
		} else {
			c.golden++
		}
	case events.SkillUsed:
		c.skillsUsed++
	case events.EntityDestroyed:
		c.destroyed++
		if e.Cause == events.CauseOutOfBounds {
			c.outOfBounds++
		}
	case events.ScoreAwarded:
		c.points += e.Points
	case events.GameReset:
		c.resets++
	}
}

// RecordLifetime adds the lifetime of a destroyed fruit.
func (c *Collector) RecordLifetime(sec float32) {
	c.lifetimes = append(c.lifetimes, float64(sec))
}

// DrainMerges returns the merge log rows recorded since the last call.
func (c *Collector) DrainMerges() []MergeRecord {
	out := c.mergeLog
	c.mergeLog = nil
	return out
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// BoardSample is the board state sampled at window end.
type BoardSample struct {
	LiveTiers    []float64 // Tier of every tracked fruit
	Score        int
	PendingPairs int
	CeilingCount int
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, board BoardSample) WindowStats {
	tierDist := ComputeDistribution(board.LiveTiers)
	lifeDist := ComputeDistribution(c.lifetimes)

	maxTier := -1
	for _, t := range board.LiveTiers {
		if int(t) > maxTier {
			maxTier = int(t)
		}
	}

	totalMerges := 0
	for _, n := range c.merges {
		totalMerges += n
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Live:         len(board.LiveTiers),
		Score:        board.Score,
		PendingPairs: board.PendingPairs,
		CeilingCount: board.CeilingCount,
		MaxTier:      maxTier,

		Released:       c.released,
		Merges:         totalMerges,
		TerminalMerges: c.terminalMerges,
		Golden:         c.golden,
		UpgradedGolden: c.upgradedGolden,
		SkillsUsed:     c.skillsUsed,
		Destroyed:      c.destroyed,
		OutOfBounds:    c.outOfBounds,
		Points:         c.points,
		Resets:         c.resets,

		TierMean: tierDist.Mean,
		TierStd:  tierDist.Std,
		TierP50:  tierDist.P50,
		TierP90:  tierDist.P90,

		LifetimeMean: lifeDist.Mean,
		LifetimeP50:  lifeDist.P50,
	}
	stats.SetMergesByTier(c.merges[:])

	// Reset for next window
	c.windowStartTick = currentTick
	c.released = 0
	c.merges = [components.MaxTier + 1]int{}
	c.terminalMerges = 0
	c.golden = 0
	c.upgradedGolden = 0
	c.skillsUsed = 0
	c.destroyed = 0
	c.outOfBounds = 0
	c.points = 0
	c.resets = 0
	c.lifetimes = c.lifetimes[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
