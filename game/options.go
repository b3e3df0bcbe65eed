package game

import "github.com/pthm-cable/fruitmerge/telemetry"

// Options configures a Game beyond what config.Config holds.
type Options struct {
	Seed           int64
	LogStats       bool
	StatsWindowSec float64
	SnapshotDir    string
	OutputDir      string
	Headless       bool
	StepsPerUpdate int

	// DisablePhysics leaves collision detection to the caller, who feeds
	// HandleCollision and HandleBoundaryExit directly.
	DisablePhysics bool

	// Autoplay: drop the held fruit at a random x every AutoDropSec seconds.
	AutoDrop    bool
	AutoDropSec float64
	SkillChance float64 // Chance an autoplay drop carries a random skill
	AutoRestart bool    // Reset after game over instead of idling

	// StatsCallback receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)

	// BoardSink receives a board snapshot every BoardEveryTicks ticks and
	// after every reset. It runs on the engine goroutine.
	BoardSink       func(*telemetry.Snapshot)
	BoardEveryTicks int
}

// DefaultOptions returns options for an interactive session.
func DefaultOptions() Options {
	return Options{
		Seed:            1,
		StepsPerUpdate:  1,
		AutoDropSec:     0.8,
		BoardEveryTicks: 30,
	}
}
