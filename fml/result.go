package fml

import (
	"sort"

	"gopkg.in/guregu/null.v3"
)

// ElementResult is the outcome of one computable element, immutable once the
// element's task completes (q-values are filled in by the aggregator at the
// single merge point after all tasks finish).
type ElementResult struct {
	ElementID string
	Symbol    null.String

	// Mutations counts the scored observations; Recurrence the distinct
	// mutated positions; Samples the distinct mutated samples.
	Mutations  int
	Recurrence int
	Samples    int

	// Simulations actually run, and the extreme-outcome tallies they
	// produced.
	Simulations  int
	GreaterEqual int
	LessEqual    int

	PValue    float64
	PValueNeg float64
	QValue    null.Float
	QValueNeg null.Float
}

// pValue applies the +1 floor: a p-value is never exactly zero no matter how
// many simulations ran.
func pValue(count, total int) float64 {
	if count < 1 {
		count = 1
	}
	return float64(count) / float64(total+1)
}

// minSamplesForCorrection is the number of distinct mutated samples an
// element needs before multiple-testing correction applies to it.
const minSamplesForCorrection = 2

// Correct applies Benjamini-Hochberg correction across the results, in place.
// Only elements with at least two distinct mutated samples participate and
// receive q-values; the rest keep uncorrected p-values and null q-values.
func Correct(results []*ElementResult) {
	var eligible []*ElementResult
	for _, r := range results {
		if r.Samples >= minSamplesForCorrection {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return
	}

	ps := make([]float64, len(eligible))
	negs := make([]float64, len(eligible))
	for i, r := range eligible {
		ps[i] = r.PValue
		negs[i] = r.PValueNeg
	}

	for i, q := range benjaminiHochberg(ps) {
		eligible[i].QValue = null.FloatFrom(q)
	}
	for i, q := range benjaminiHochberg(negs) {
		eligible[i].QValueNeg = null.FloatFrom(q)
	}
}

// benjaminiHochberg converts p-values to false-discovery-rate adjusted
// q-values, preserving input order.
func benjaminiHochberg(ps []float64) []float64 {
	n := len(ps)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return ps[order[i]] < ps[order[j]] })

	qs := make([]float64, n)
	running := 1.0
	for rank := n; rank >= 1; rank-- {
		idx := order[rank-1]
		q := ps[idx] * float64(n) / float64(rank)
		if q < running {
			running = q
		}
		qs[idx] = running
	}
	return qs
}
