package fml

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Reduce collapses a set of scores to one summary statistic. The same
// reduction is applied to the observed mutations and to every simulated
// mutation set.
func Reduce(method StatisticMethod, values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	if method == GeometricMean {
		// Shifted geometric mean, tolerant of zero scores.
		var sum float64
		for _, v := range values {
			sum += math.Log1p(v)
		}
		return math.Expm1(sum / float64(len(values)))
	}

	return stat.Mean(values, nil)
}

// Batch tallies one sampling batch's outcomes relative to the observed
// statistic.
type Batch struct {
	// Size is the number of simulated mutation sets in the batch.
	Size int
	// GreaterEqual counts simulated statistics >= the observed statistic;
	// LessEqual counts those <= it. Ties count toward both.
	GreaterEqual int
	LessEqual    int
}

// Add accumulates another batch's tallies.
func (b *Batch) Add(o Batch) {
	b.Size += o.Size
	b.GreaterEqual += o.GreaterEqual
	b.LessEqual += o.LessEqual
}

// SampleBatch draws size simulated mutation sets of muts draws each from the
// outcome space, reduces each to a statistic, and tallies how many fall at or
// beyond the observed statistic. Only one simulated set's scores are held in
// memory at a time; the per-simulation values are never retained.
func (o *OutcomeSpace) SampleBatch(rng *rand.Rand, size, muts int, observed float64, method StatisticMethod) Batch {
	b := Batch{Size: size}
	buf := make([]float64, muts)

	for i := 0; i < size; i++ {
		for j := 0; j < muts; j++ {
			buf[j] = o.Scores[o.table.Sample(rng)]
		}
		simulated := Reduce(method, buf)
		if simulated >= observed {
			b.GreaterEqual++
		}
		if simulated <= observed {
			b.LessEqual++
		}
	}

	return b
}
