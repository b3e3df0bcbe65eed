package systems

import (
	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
)

// TierInfo is one row of the tier table.
type TierInfo struct {
	Name       string
	BaseWeight int
	Value      int
	Radius     float32
	Mass       float32
}

// TierTable is the static, ordered list of fruit tiers.
type TierTable struct {
	tiers []TierInfo
}

// NewTierTable builds the table from loaded config.
func NewTierTable(cfg *config.Config) *TierTable {
	tiers := make([]TierInfo, len(cfg.Tiers))
	for i, t := range cfg.Tiers {
		tiers[i] = TierInfo{
			Name:       t.Name,
			BaseWeight: t.BaseWeight,
			Value:      cfg.Derived.TierValues[i],
			Radius:     float32(t.Radius),
			Mass:       float32(t.Mass),
		}
	}
	return &TierTable{tiers: tiers}
}

// Len returns the number of tiers.
func (t *TierTable) Len() int {
	return len(t.tiers)
}

// Info returns the row for a tier. Out-of-range tiers return the zero row.
func (t *TierTable) Info(tier components.Tier) TierInfo {
	if int(tier) >= len(t.tiers) {
		return TierInfo{}
	}
	return t.tiers[tier]
}

// Value returns the point value of a tier.
func (t *TierTable) Value(tier components.Tier) int {
	return t.Info(tier).Value
}

// Max returns the highest tier in the table.
func (t *TierTable) Max() components.Tier {
	return components.Tier(len(t.tiers) - 1)
}

// Successor returns the next tier, or false for the terminal tier.
func (t *TierTable) Successor(tier components.Tier) (components.Tier, bool) {
	if tier >= t.Max() {
		return tier, false
	}
	return tier + 1, true
}
