package game

import (
	"fmt"
	"io"
	"strings"

	"github.com/pthm-cable/fruitmerge/telemetry"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// Summary returns a human-readable session summary.
func (g *Game) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %d @ tick %d | score %d (best %d)\n", g.sessions, g.tick, g.score, g.best)
	fmt.Fprintf(&sb, "Live fruit: %d | pending merges: %d | on ceiling: %d\n",
		g.registry.Len(), g.merges.Pending(), g.golden.CeilingCount())

	counts := make([]int, g.tiers.Len())
	for _, e := range g.registry.All() {
		if f := g.registry.Fruit(e); f != nil {
			counts[f.Tier]++
		}
	}
	for i, n := range counts {
		if n == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  %-12s %3d\n", g.cfg.Derived.TierNames[i], n)
	}
	return sb.String()
}

// LogSummary writes the session summary and perf breakdown through Logf.
func (g *Game) LogSummary() {
	for _, line := range strings.Split(strings.TrimRight(g.Summary(), "\n"), "\n") {
		Logf("%s", line)
	}

	perf := g.perfCollector.Stats()
	Logf("Avg tick: %dus (%d ticks/s, %dns per fruit)",
		perf.AvgTick.Microseconds(), int(perf.TicksPerSecond), perf.CostPerFruit.Nanoseconds())
	Logf("Pending pairs: %.1f avg, %d peak | %d merges in window", perf.AvgPending, perf.PeakPending, perf.Merges)
	for _, phase := range telemetry.Phases() {
		Logf("  %-12s %5.1f%%", phase, perf.Pct(phase))
	}
}
