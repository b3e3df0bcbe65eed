package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/fruitmerge/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the board state at one tick.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	ContainerWidth  float32 `json:"container_width"`
	ContainerHeight float32 `json:"container_height"`

	Tick  int32 `json:"tick"`
	Score int   `json:"score"`

	CurrentTier *components.Tier `json:"current_tier,omitempty"`
	PreviewTier *components.Tier `json:"preview_tier,omitempty"`

	Fruits []FruitState `json:"fruits"`
	Pairs  []PairState  `json:"pairs,omitempty"`

	Milestone *Milestone `json:"milestone,omitempty"`
}

// FruitState holds one tracked fruit.
type FruitState struct {
	ID   uint32          `json:"id"`
	Tier components.Tier `json:"tier"`

	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	VelX  float32 `json:"vel_x"`
	VelY  float32 `json:"vel_y"`
	Scale float32 `json:"scale"`
	Mass  float32 `json:"mass"`

	Golden         bool   `json:"golden,omitempty"`
	UpgradedGolden bool   `json:"upgraded_golden,omitempty"`
	Evolving       bool   `json:"evolving,omitempty"`
	FromMerge      bool   `json:"from_merge,omitempty"`
	Visible        bool   `json:"visible"`
	Skill          string `json:"skill,omitempty"`

	Lifetime *LifetimeStatsJSON `json:"lifetime,omitempty"`
}

// PairState holds one evolving pair.
type PairState struct {
	A        uint32          `json:"a"`
	B        uint32          `json:"b"`
	Tier     components.Tier `json:"tier"`
	Phase    string          `json:"phase"`
	MeetingX float32         `json:"meeting_x"`
	MeetingY float32         `json:"meeting_y"`
}

// LifetimeStatsJSON is the JSON-serializable form of LifetimeStats.
type LifetimeStatsJSON struct {
	BirthTick       int32   `json:"birth_tick"`
	SurvivalTimeSec float32 `json:"survival_time_sec"`
	Contacts        int     `json:"contacts"`
}

// ToJSON converts LifetimeStats to its JSON form.
func (ls *LifetimeStats) ToJSON() *LifetimeStatsJSON {
	if ls == nil {
		return nil
	}
	return &LifetimeStatsJSON{
		BirthTick:       ls.BirthTick,
		SurvivalTimeSec: ls.SurvivalTimeSec,
		Contacts:        ls.Contacts,
	}
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Milestone != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Milestone.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
