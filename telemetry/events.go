// Package telemetry provides session stats, milestones, merge logs and snapshots.
package telemetry

import "github.com/pthm-cable/fruitmerge/events"

// MergeRecord is one row of merges.csv.
type MergeRecord struct {
	Tick       int32   `csv:"tick"`
	FromTier   int     `csv:"from_tier"`
	ResultTier int     `csv:"result_tier"`
	X          float32 `csv:"x"`
	Y          float32 `csv:"y"`
	Terminal   bool    `csv:"terminal"`
}

// NewMergeRecord builds a merge log row from a completed merge.
func NewMergeRecord(tick int32, ev events.MergeCompleted) MergeRecord {
	return MergeRecord{
		Tick:       tick,
		FromTier:   int(ev.FromTier),
		ResultTier: int(ev.ResultTier),
		X:          ev.Position.X,
		Y:          ev.Position.Y,
		Terminal:   ev.Terminal,
	}
}
