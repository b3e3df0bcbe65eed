package systems

import (
	"errors"
	"math/rand"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
)

// ErrZeroSpawnWeight is returned when the reachable spawn pool carries no weight.
var ErrZeroSpawnWeight = errors.New("spawn pool has zero total weight")

// SpawnWeightEntry is the mutable per-tier spawn state.
type SpawnWeightEntry struct {
	BaseWeight     int
	ActiveModifier bool
}

// SpawnPolicy selects which neighbors of the previous tier get the modifier.
type SpawnPolicy struct {
	GlobalModifier int
	FavorLower     bool
	FavorHigher    bool
	FavorSame      bool
}

// SpawnPolicyFromConfig reads the adjacency policy from config.
func SpawnPolicyFromConfig(cfg *config.Config) SpawnPolicy {
	return SpawnPolicy{
		GlobalModifier: cfg.Spawn.GlobalModifier,
		FavorLower:     cfg.Spawn.FavorLower,
		FavorHigher:    cfg.Spawn.FavorHigher,
		FavorSame:      cfg.Spawn.FavorSame,
	}
}

// SpawnSelector picks the next tier to spawn, biased toward the tiers
// adjacent to the previous spawn.
type SpawnSelector struct {
	entries []SpawnWeightEntry
	policy  SpawnPolicy
	rng     *rand.Rand
}

// NewSpawnSelector creates a selector over the tier table.
func NewSpawnSelector(tiers *TierTable, policy SpawnPolicy, rng *rand.Rand) *SpawnSelector {
	entries := make([]SpawnWeightEntry, tiers.Len())
	for i := range entries {
		entries[i].BaseWeight = tiers.Info(components.Tier(i)).BaseWeight
	}
	return &SpawnSelector{entries: entries, policy: policy, rng: rng}
}

// Policy returns the active adjacency policy.
func (s *SpawnSelector) Policy() SpawnPolicy {
	return s.policy
}

// SetBaseWeights replaces the per-tier base weights. Extra values are ignored.
func (s *SpawnSelector) SetBaseWeights(weights []int) {
	for i := range s.entries {
		if i < len(weights) {
			s.entries[i].BaseWeight = weights[i]
		}
	}
}

// Entries returns a copy of the current weight table, including the
// modifier flags left by the last draw.
func (s *SpawnSelector) Entries() []SpawnWeightEntry {
	out := make([]SpawnWeightEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ChooseNextTier draws the next tier. hasPrev is false for the first spawn
// of a session, which always yields the lowest tier.
func (s *SpawnSelector) ChooseNextTier(prev components.Tier, hasPrev bool) (components.Tier, error) {
	if !hasPrev {
		return 0, nil
	}

	s.applyModifiers(prev)
	pool, total := s.pool()
	if total <= 0 {
		return 0, ErrZeroSpawnWeight
	}

	// Draw in [1, total]; the first tier whose running sum reaches it wins.
	draw := s.rng.Intn(total) + 1
	cumulative := 0
	for i := 0; i < pool; i++ {
		cumulative += s.effectiveWeight(i)
		if cumulative >= draw {
			return components.Tier(i), nil
		}
	}
	return components.Tier(pool - 1), nil
}

// Distribution returns the exact probability of each tier following prev.
// Tiers outside the candidate pool get 0.
func (s *SpawnSelector) Distribution(prev components.Tier, hasPrev bool) ([]float64, error) {
	probs := make([]float64, len(s.entries))
	if !hasPrev {
		probs[0] = 1
		return probs, nil
	}

	s.applyModifiers(prev)
	pool, total := s.pool()
	if total <= 0 {
		return nil, ErrZeroSpawnWeight
	}
	for i := 0; i < pool; i++ {
		probs[i] = float64(s.effectiveWeight(i)) / float64(total)
	}
	return probs, nil
}

// applyModifiers clears every flag, then flags the neighbors of prev.
func (s *SpawnSelector) applyModifiers(prev components.Tier) {
	for i := range s.entries {
		s.entries[i].ActiveModifier = false
	}

	p := int(prev)
	if s.policy.FavorLower && p-1 >= 0 {
		s.entries[p-1].ActiveModifier = true
	}
	if s.policy.FavorHigher && p+1 < len(s.entries) {
		s.entries[p+1].ActiveModifier = true
	}
	if s.policy.FavorSame && p < len(s.entries) {
		s.entries[p].ActiveModifier = true
	}
}

func (s *SpawnSelector) effectiveWeight(i int) int {
	e := s.entries[i]
	w := e.BaseWeight
	if e.ActiveModifier {
		w += s.policy.GlobalModifier
	}
	if w < 0 {
		w = 0
	}
	return w
}

// pool returns the spawn ceiling (lowest zero-weight tier) and the
// total weight of every tier below it.
func (s *SpawnSelector) pool() (ceiling, total int) {
	ceiling = len(s.entries)
	for i := range s.entries {
		if s.effectiveWeight(i) == 0 {
			ceiling = i
			break
		}
	}
	for i := 0; i < ceiling; i++ {
		total += s.effectiveWeight(i)
	}
	return ceiling, total
}
