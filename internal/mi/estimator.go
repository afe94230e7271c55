// Package mi estimates mutual information between feature columns and a target.
//
// Discrete/discrete pairs use the contingency-table plug-in estimate. Pairs with
// a continuous side use k-nearest-neighbour estimators: Kraskov, Stögbauer and
// Grassberger (2004) for continuous/continuous, and Ross (2014) for
// continuous/discrete. Continuous inputs are scaled to unit variance and
// perturbed with tiny seeded noise so that repeated values do not produce
// degenerate neighbour distances. The same seed always yields the same result.
package mi

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultNeighbors is the k used by the nearest-neighbour estimators.
const DefaultNeighbors = 3

// noiseScale multiplies max(1, mean|x|) to size the jitter on continuous inputs.
const noiseScale = 1e-10

var (
	// ErrShape indicates feature, flag and target lengths disagree.
	ErrShape = errors.New("mi: inconsistent input shape")
	// ErrTooFewSamples indicates an empty sample.
	ErrTooFewSamples = errors.New("mi: need at least 1 sample")
	// ErrNonFinite indicates a NaN or infinite input value.
	ErrNonFinite = errors.New("mi: non-finite input value")
)

// Estimator scores each feature column against the target. discrete flags
// which feature columns hold integer codes; discreteTarget selects the
// classification-style estimate over the regression-style one.
type Estimator interface {
	Estimate(features [][]float64, discrete []bool, target []float64, discreteTarget bool) ([]float64, error)
}

// KNN is the default Estimator. The zero value uses DefaultNeighbors and seed 0.
type KNN struct {
	Neighbors int
	Seed      uint64
}

// Estimate implements Estimator. Inputs are not modified. Scores are >= 0.
// A single observation carries no information, so every score is 0.
func (e KNN) Estimate(features [][]float64, discrete []bool, target []float64, discreteTarget bool) ([]float64, error) {
	n := len(target)
	if n < 1 {
		return nil, ErrTooFewSamples
	}
	if len(discrete) != len(features) {
		return nil, fmt.Errorf("%w: %d features, %d discrete flags", ErrShape, len(features), len(discrete))
	}
	for j, f := range features {
		if len(f) != n {
			return nil, fmt.Errorf("%w: feature %d has %d rows, target has %d", ErrShape, j, len(f), n)
		}
		if i := firstNonFinite(f); i >= 0 {
			return nil, fmt.Errorf("%w: feature %d row %d", ErrNonFinite, j, i)
		}
	}
	if i := firstNonFinite(target); i >= 0 {
		return nil, fmt.Errorf("%w: target row %d", ErrNonFinite, i)
	}
	if n == 1 {
		return make([]float64, len(features)), nil
	}
	k := e.Neighbors
	if k <= 0 {
		k = DefaultNeighbors
	}
	if k > n-1 {
		k = n - 1
	}
	rng := rand.New(rand.NewPCG(e.Seed, e.Seed))

	xs := make([][]float64, len(features))
	var cont []int
	for j, f := range features {
		x := append([]float64(nil), f...)
		if !discrete[j] {
			scaleUnit(x)
			cont = append(cont, j)
		}
		xs[j] = x
	}
	// Row-major draw across continuous columns keeps results independent of
	// the number of discrete columns interleaved between them.
	if len(cont) > 0 {
		amp := make([]float64, len(cont))
		for c, j := range cont {
			amp[c] = noiseAmplitude(xs[j])
		}
		for i := 0; i < n; i++ {
			for c, j := range cont {
				xs[j][i] += amp[c] * rng.NormFloat64()
			}
		}
	}
	y := append([]float64(nil), target...)
	if !discreteTarget {
		scaleUnit(y)
		amp := noiseAmplitude(y)
		for i := range y {
			y[i] += amp * rng.NormFloat64()
		}
	}

	out := make([]float64, len(xs))
	for j, x := range xs {
		var v float64
		switch {
		case discrete[j] && discreteTarget:
			v = discreteMI(x, y)
		case discrete[j]:
			v = mixedMI(y, x, k)
		case discreteTarget:
			v = mixedMI(x, y, k)
		default:
			v = continuousMI(x, y, k)
		}
		if math.IsNaN(v) || v < 0 {
			v = 0
		}
		out[j] = v
	}
	return out, nil
}

func firstNonFinite(x []float64) int {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// scaleUnit divides x in place by its population standard deviation, leaving
// near-constant columns untouched.
func scaleUnit(x []float64) {
	n := float64(len(x))
	_, v := stat.MeanVariance(x, nil)
	std := math.Sqrt(v * (n - 1) / n)
	if math.IsNaN(std) || std < 10*epsilon {
		return
	}
	floats.Scale(1/std, x)
}

const epsilon = 2.220446049250313e-16

func noiseAmplitude(x []float64) float64 {
	meanAbs := floats.Norm(x, 1) / float64(len(x))
	return noiseScale * math.Max(1, meanAbs)
}
