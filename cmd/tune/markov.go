package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/systems"
)

// TransitionMatrix returns P with P[i][j] the probability that tier j
// spawns right after tier i under the given base weights.
func TransitionMatrix(cfg *config.Config, weights []int) (*mat.Dense, error) {
	tiers := systems.NewTierTable(cfg)
	sel := systems.NewSpawnSelector(tiers, systems.SpawnPolicyFromConfig(cfg), rand.New(rand.NewSource(1)))
	sel.SetBaseWeights(weights)

	n := tiers.Len()
	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		row, err := sel.Distribution(components.Tier(i), true)
		if errors.Is(err, systems.ErrZeroSpawnWeight) {
			// Unreachable or dead-end tier: fall back to the first-spawn rule.
			row, _ = sel.Distribution(0, false)
		} else if err != nil {
			return nil, fmt.Errorf("tier %d: %w", i, err)
		}
		p.SetRow(i, row)
	}
	return p, nil
}

// Stationary returns the long-run spawn frequency of each tier for a
// session that starts at tier 0. It averages the chain's distribution over
// iters steps, which converges even for periodic chains.
func Stationary(p *mat.Dense, iters int) []float64 {
	n, _ := p.Dims()
	pi := mat.NewVecDense(n, nil)
	pi.SetVec(0, 1)

	sum := make([]float64, n)
	next := mat.NewVecDense(n, nil)
	for k := 0; k < iters; k++ {
		// Row vector times P, computed as P^T * pi.
		next.MulVec(p.T(), pi)
		pi.CopyVec(next)
		floats.Add(sum, pi.RawVector().Data)
	}
	if total := floats.Sum(sum); total > 0 {
		floats.Scale(1/total, sum)
	}
	return sum
}

// Loss is the KL divergence of the stationary distribution from target,
// over the tiers target covers. Missing mass in a targeted tier is
// penalized through a small floor.
func Loss(stationary, target []float64) float64 {
	const floor = 1e-9
	var kl float64
	for i, t := range target {
		if t <= 0 || i >= len(stationary) {
			continue
		}
		kl += t * math.Log(t/math.Max(stationary[i], floor))
	}
	return kl
}

// normalizeTarget scales target to sum to 1.
func normalizeTarget(target []float64) ([]float64, error) {
	total := floats.Sum(target)
	if total <= 0 || floats.Min(target) < 0 {
		return nil, errors.New("target must be non-negative with positive sum")
	}
	out := make([]float64, len(target))
	copy(out, target)
	floats.Scale(1/total, out)
	return out, nil
}
