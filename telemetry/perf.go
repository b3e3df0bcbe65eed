package telemetry

import (
	"log/slog"
	"time"
)

// Phase is one slice of the engine tick.
type Phase uint8

const (
	PhasePhysics    Phase = iota // Solver step
	PhaseCollisions              // Contact routing: skills, golden, pairing
	PhaseMerge                   // Pair converge/grow/consume
	PhaseEdges                   // Exits, ceiling, overflow
	PhaseTelemetry               // Window flush, board publish

	// NumPhases is the number of tick phases.
	NumPhases
)

// String returns the phase name used in logs and CSV columns.
func (p Phase) String() string {
	switch p {
	case PhasePhysics:
		return "physics"
	case PhaseCollisions:
		return "collisions"
	case PhaseMerge:
		return "merge"
	case PhaseEdges:
		return "edges"
	case PhaseTelemetry:
		return "telemetry"
	default:
		return "unknown"
	}
}

// Phases returns the tick phases in execution order.
func Phases() []Phase {
	out := make([]Phase, NumPhases)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// TickLoad is the board work one tick handled.
type TickLoad struct {
	Live     int // Tracked fruit after the tick
	Contacts int // First contacts routed
	Pending  int // Live merge pairs after the tick
	Merges   int // Pairs consumed during the tick
}

type tickSample struct {
	total  time.Duration
	phases [NumPhases]time.Duration
	load   TickLoad
}

// PerfCollector keeps a rolling window of tick timings alongside the board
// load each tick carried, so cost can be read against pile size and merge churn.
type PerfCollector struct {
	samples []tickSample
	next    int
	filled  int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{samples: make([]tickSample, window)}
}

// StartTick begins timing a tick.
func (p *PerfCollector) StartTick() {
	p.cur = tickSample{}
	p.tickStart = time.Now()
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseStart, p.inPhase = phase, now, true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase && p.phase < NumPhases {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// EndTick records the tick with the load it handled.
func (p *PerfCollector) EndTick(load TickLoad) {
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.tickStart)
	p.cur.load = load

	p.samples[p.next] = p.cur
	p.next = (p.next + 1) % len(p.samples)
	p.filled = min(p.filled+1, len(p.samples))
}

// RecordFrame marks a rendered frame in graphical mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarizes the window.
type PerfStats struct {
	Ticks          int
	AvgTick        time.Duration
	MaxTick        time.Duration
	PhaseAvg       [NumPhases]time.Duration
	PhasePct       [NumPhases]float64
	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64

	// Board load across the window
	AvgLive         float64
	ContactsPerTick float64
	AvgPending      float64
	PeakPending     int
	Merges          int
	CostPerFruit    time.Duration // Average tick time per live fruit
}

// Pct returns the share of tick time spent in phase, 0..100.
func (s PerfStats) Pct(phase Phase) float64 {
	if phase >= NumPhases {
		return 0
	}
	return s.PhasePct[phase]
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Ticks: p.filled, FrameDuration: p.frame}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var live, contacts, pending int
	for _, sample := range p.samples[:p.filled] {
		total += sample.total
		s.MaxTick = max(s.MaxTick, sample.total)
		for i, d := range sample.phases {
			s.PhaseAvg[i] += d
		}
		live += sample.load.Live
		contacts += sample.load.Contacts
		pending += sample.load.Pending
		s.PeakPending = max(s.PeakPending, sample.load.Pending)
		s.Merges += sample.load.Merges
	}

	n := time.Duration(p.filled)
	s.AvgTick = total / n
	for i := range s.PhaseAvg {
		s.PhaseAvg[i] /= n
		if s.AvgTick > 0 {
			s.PhasePct[i] = float64(s.PhaseAvg[i]) / float64(s.AvgTick) * 100
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}

	fn := float64(p.filled)
	s.AvgLive = float64(live) / fn
	s.ContactsPerTick = float64(contacts) / fn
	s.AvgPending = float64(pending) / fn
	if s.AvgLive > 0 {
		s.CostPerFruit = time.Duration(float64(s.AvgTick) / s.AvgLive)
	}
	return s
}

// LogStats logs the window through slog.
func (s PerfStats) LogStats() {
	attrs := []any{
		"ticks", s.Ticks,
		"avg_tick_us", s.AvgTick.Microseconds(),
		"max_tick_us", s.MaxTick.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
		"live_avg", s.AvgLive,
		"contacts_per_tick", s.ContactsPerTick,
		"pending_avg", s.AvgPending,
		"pending_peak", s.PeakPending,
		"merges", s.Merges,
		"ns_per_fruit", s.CostPerFruit.Nanoseconds(),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, phase := range Phases() {
		if pct := s.Pct(phase); pct > 0.1 {
			attrs = append(attrs, phase.String()+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd       int32   `csv:"window_end"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	FPS             float64 `csv:"fps"`
	LiveAvg         float64 `csv:"live_avg"`
	ContactsPerTick float64 `csv:"contacts_per_tick"`
	PendingAvg      float64 `csv:"pending_avg"`
	PendingPeak     int     `csv:"pending_peak"`
	Merges          int     `csv:"merges"`
	NSPerFruit      int64   `csv:"ns_per_fruit"`
	PhysicsPct      float64 `csv:"physics_pct"`
	CollisionsPct   float64 `csv:"collisions_pct"`
	MergePct        float64 `csv:"merge_pct"`
	EdgesPct        float64 `csv:"edges_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats into a perf.csv row.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		AvgTickUS:       s.AvgTick.Microseconds(),
		MaxTickUS:       s.MaxTick.Microseconds(),
		TicksPerSec:     s.TicksPerSecond,
		FPS:             s.FPS,
		LiveAvg:         s.AvgLive,
		ContactsPerTick: s.ContactsPerTick,
		PendingAvg:      s.AvgPending,
		PendingPeak:     s.PeakPending,
		Merges:          s.Merges,
		NSPerFruit:      s.CostPerFruit.Nanoseconds(),
		PhysicsPct:      s.Pct(PhasePhysics),
		CollisionsPct:   s.Pct(PhaseCollisions),
		MergePct:        s.Pct(PhaseMerge),
		EdgesPct:        s.Pct(PhaseEdges),
		TelemetryPct:    s.Pct(PhaseTelemetry),
	}
}
