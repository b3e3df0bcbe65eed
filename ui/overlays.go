package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayPairs     OverlayID = "pairs"
	OverlayVelocity  OverlayID = "velocity"
	OverlayIDs       OverlayID = "ids"
	OverlayHidden    OverlayID = "hidden"
	OverlayStats     OverlayID = "stats"
	OverlayPerf      OverlayID = "perf"
	OverlayInspector OverlayID = "inspector"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID          OverlayID
	Name        string
	Description string
	Key         int32  // Keyboard key to toggle (0 = no key)
	KeyLabel    string // Key label for display (e.g., "S", "V")
	Category    string
	Exclusive   []OverlayID // Other overlays to disable when this is enabled
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	return reg
}

func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{
		ID:          OverlayPairs,
		Name:        "Merge Pairs",
		Description: "Link evolving pairs to their meeting point",
		Key:         rl.KeyP,
		KeyLabel:    "P",
		Category:    "board",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayVelocity,
		Name:        "Velocity",
		Description: "Show fruit velocity vectors",
		Key:         rl.KeyV,
		KeyLabel:    "V",
		Category:    "board",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayIDs,
		Name:        "Entity IDs",
		Description: "Label fruit with their entity id",
		Key:         rl.KeyI,
		KeyLabel:    "I",
		Category:    "board",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayHidden,
		Name:        "Hidden Fruit",
		Description: "Outline merge results that are still growing",
		Key:         rl.KeyO,
		KeyLabel:    "O",
		Category:    "board",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayStats,
		Name:        "Window Stats",
		Description: "Show the last telemetry window",
		Key:         rl.KeyT,
		KeyLabel:    "T",
		Category:    "panels",
		Exclusive:   []OverlayID{OverlayPerf},
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayPerf,
		Name:        "Tick Phases",
		Description: "Show per-phase tick timing",
		Key:         rl.KeyF,
		KeyLabel:    "F",
		Category:    "panels",
		Exclusive:   []OverlayID{OverlayStats},
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayInspector,
		Name:        "Inspector",
		Description: "Show the selected fruit",
		Key:         rl.KeyN,
		KeyLabel:    "N",
		Category:    "panels",
	})
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = false
}

// Toggle switches an overlay on/off and handles exclusivity.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.SetEnabled(id, !r.enabled[id])
	return r.enabled[id]
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}
	r.enabled[id] = enabled
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// Categories returns all unique categories in order.
func (r *OverlayRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, desc := range r.descriptors {
		if !seen[desc.Category] {
			seen[desc.Category] = true
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleKeyPress toggles the overlay bound to key.
// Returns the overlay ID, its new state and whether a toggle occurred.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool, bool) {
	for _, desc := range r.descriptors {
		if desc.Key == key {
			return desc.ID, r.Toggle(desc.ID), true
		}
	}
	return "", false, false
}

// Keys returns every bound toggle key.
func (r *OverlayRegistry) Keys() []int32 {
	keys := make([]int32, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		if desc.Key != 0 {
			keys = append(keys, desc.Key)
		}
	}
	return keys
}
