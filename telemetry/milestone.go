package telemetry

import (
	"fmt"
	"log/slog"
)

// MilestoneType identifies the type of milestone.
type MilestoneType string

const (
	MilestoneFirstTier     MilestoneType = "first_tier"
	MilestoneComboSurge    MilestoneType = "combo_surge"
	MilestoneTerminalMerge MilestoneType = "terminal_merge"
)

// Milestone represents an automatically detected session moment.
type Milestone struct {
	Type        MilestoneType `csv:"type" json:"type"`
	Tick        int32         `csv:"tick" json:"tick"`
	Description string        `csv:"description" json:"description"`
}

// LogMilestone logs the milestone using slog.
func (m Milestone) LogMilestone() {
	slog.Info("milestone",
		"type", string(m.Type),
		"tick", m.Tick,
		"description", m.Description,
	)
}

// MilestoneDetector detects interesting moments in a session.
type MilestoneDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	comboMultiplier float64
	comboMinMerges  int

	reached [10]bool // Tiers seen on the board or produced by a merge
}

// NewMilestoneDetector creates a detector with the given history size.
// A combo surge fires when a window's merge count is at least comboMinMerges
// and exceeds comboMultiplier times the rolling average.
func NewMilestoneDetector(historySize int, comboMultiplier float64, comboMinMerges int) *MilestoneDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &MilestoneDetector{
		history:         make([]WindowStats, historySize),
		historySize:     historySize,
		comboMultiplier: comboMultiplier,
		comboMinMerges:  comboMinMerges,
	}
}

// Reset forgets reached tiers and history. Called when a session restarts.
func (md *MilestoneDetector) Reset() {
	md.reached = [10]bool{}
	md.historyIdx = 0
	md.historyFull = false
}

// ObserveMerge checks a single merge for first-reach and terminal milestones.
func (md *MilestoneDetector) ObserveMerge(rec MergeRecord) []Milestone {
	var out []Milestone
	if rec.Terminal {
		out = append(out, Milestone{
			Type:        MilestoneTerminalMerge,
			Tick:        rec.Tick,
			Description: fmt.Sprintf("Two tier %d fruit merged at the top of the table", rec.FromTier),
		})
		return out
	}
	if rec.ResultTier >= 0 && rec.ResultTier < len(md.reached) && !md.reached[rec.ResultTier] {
		md.reached[rec.ResultTier] = true
		out = append(out, Milestone{
			Type:        MilestoneFirstTier,
			Tick:        rec.Tick,
			Description: fmt.Sprintf("First tier %d fruit of the session", rec.ResultTier),
		})
	}
	return out
}

// MarkReached records a tier as seen without emitting a milestone.
// Spawned tiers never count as milestones.
func (md *MilestoneDetector) MarkReached(tier int) {
	if tier >= 0 && tier < len(md.reached) {
		md.reached[tier] = true
	}
}

// Check analyzes the latest window and returns any triggered milestones.
func (md *MilestoneDetector) Check(stats WindowStats) []Milestone {
	var out []Milestone

	if m := md.checkComboSurge(stats); m != nil {
		out = append(out, *m)
	}

	md.addToHistory(stats)
	return out
}

func (md *MilestoneDetector) addToHistory(stats WindowStats) {
	md.history[md.historyIdx] = stats
	md.historyIdx = (md.historyIdx + 1) % md.historySize
	if md.historyIdx == 0 {
		md.historyFull = true
	}
}

func (md *MilestoneDetector) getHistory() []WindowStats {
	if md.historyFull {
		return md.history
	}
	return md.history[:md.historyIdx]
}

func (md *MilestoneDetector) checkComboSurge(stats WindowStats) *Milestone {
	history := md.getHistory()
	if len(history) < 3 || stats.Merges < md.comboMinMerges {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Merges
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Merges) > avg*md.comboMultiplier {
		return &Milestone{
			Type:        MilestoneComboSurge,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d merges is %.1fx the rolling average (%.1f)", stats.Merges, float64(stats.Merges)/avg, avg),
		}
	}
	return nil
}
