package main

import (
	"fmt"
	"math"

	"github.com/pthm-cable/fruitmerge/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the base weights being tuned, one per tier from the
// lowest tier up.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates one weight parameter for each of the first n tiers.
// The lowest tier keeps a weight of at least 1 so the first-spawn pool
// always has weight.
func NewParamVector(cfg *config.Config, n int, maxWeight float64) *ParamVector {
	n = min(n, len(cfg.Tiers))
	specs := make([]ParamSpec, n)
	for i := range specs {
		lo := 0.0
		if i == 0 {
			lo = 1
		}
		specs[i] = ParamSpec{
			Name:    cfg.Tiers[i].Name,
			Path:    fmt.Sprintf("tiers[%d].base_weight", i),
			Min:     lo,
			Max:     maxWeight,
			Default: min(max(float64(cfg.Tiers[i].BaseWeight), lo), maxWeight),
		}
	}
	return &ParamVector{Specs: specs}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Weights rounds clamped values to integer base weights.
func (pv *ParamVector) Weights(values []float64) []int {
	clamped := pv.Clamp(values)
	w := make([]int, len(clamped))
	for i, v := range clamped {
		w[i] = int(math.Round(v))
	}
	return w
}

// ApplyToConfig writes the weights into the tier table. Tiers beyond the
// vector are left untouched.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, w := range pv.Weights(values) {
		cfg.Tiers[i].BaseWeight = w
	}
}
