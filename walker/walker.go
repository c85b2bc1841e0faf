// Package walker implements Walker's alias method for drawing from an
// arbitrary discrete probability distribution in O(1) per draw after O(N)
// preprocessing.
package walker

import (
	"fmt"
	"math/rand"

	"github.com/carbocation/pfx"
)

// Table is a prepared alias table over N outcomes. Build it once with New and
// share it freely across goroutines; Sample only reads it.
type Table struct {
	// prob[i] is the acceptance threshold of bin i after rescaling each
	// probability by N. alias[i] is the outcome paired with bin i.
	prob  []float64
	alias []int
}

// New builds an alias table from the given probabilities. The probabilities
// must be non-negative and sum to a positive value; they are normalized
// internally, so callers may pass unnormalized weights.
func New(weights []float64) (*Table, error) {
	n := len(weights)
	if n == 0 {
		return nil, pfx.Err(fmt.Errorf("walker: empty probability vector"))
	}

	var total float64
	for i, w := range weights {
		if w < 0 {
			return nil, pfx.Err(fmt.Errorf("walker: negative weight %g at outcome %d", w, i))
		}
		total += w
	}
	if total <= 0 {
		return nil, pfx.Err(fmt.Errorf("walker: total probability mass is zero"))
	}

	t := &Table{
		prob:  make([]float64, n),
		alias: make([]int, n),
	}

	// Rescale so that the average bin holds exactly 1.0, then split the bins
	// into those holding less ("small") and more ("large") than one unit.
	scaled := make([]float64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		scaled[i] = w * float64(n) / total
		if scaled[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	// Classic pairing: each small bin donates its deficit to a large bin,
	// which may in turn become small.
	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		t.prob[s] = scaled[s]
		t.alias[s] = l

		scaled[l] -= 1 - scaled[s]
		if scaled[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	// Leftovers are within floating-point error of exactly 1.
	for _, i := range large {
		t.prob[i] = 1
		t.alias[i] = i
	}
	for _, i := range small {
		t.prob[i] = 1
		t.alias[i] = i
	}

	return t, nil
}

// Len returns the number of outcomes in the table.
func (t *Table) Len() int {
	return len(t.prob)
}

// Sample draws one outcome index using the supplied generator. The table
// never seeds or owns a generator itself; reproducibility is the caller's
// concern.
func (t *Table) Sample(rng *rand.Rand) int {
	j := rng.Intn(len(t.prob))
	if rng.Float64() <= t.prob[j] {
		return j
	}
	return t.alias[j]
}
