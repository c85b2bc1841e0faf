package fml

import (
	"math"
	"testing"
)

func TestPValueFloor(t *testing.T) {
	for _, v := range []struct {
		count, total int
		expected     float64
	}{
		{0, 100000, 1.0 / 100001},
		{1, 100000, 1.0 / 100001},
		{500, 999, 0.5},
		{100000, 100000, 100000.0 / 100001},
	} {
		if got := pValue(v.count, v.total); math.Abs(got-v.expected) > 1e-15 {
			t.Errorf("pValue(%d, %d): got %g, want %g", v.count, v.total, got, v.expected)
		}
	}
}

func TestBenjaminiHochberg(t *testing.T) {
	// Worked example: sorted q candidates are [0.01*4/1, 0.02*4/2, 0.03*4/3,
	// 0.04*4/4] = [0.04, 0.04, 0.04, 0.04] after the running minimum.
	got := benjaminiHochberg([]float64{0.02, 0.04, 0.01, 0.03})
	want := []float64{0.04, 0.04, 0.04, 0.04}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("q[%d]: got %g, want %g", i, got[i], want[i])
		}
	}

	// A clear separation survives the correction.
	got = benjaminiHochberg([]float64{0.001, 0.5, 0.9})
	want = []float64{0.003, 0.75, 0.9}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("q[%d]: got %g, want %g", i, got[i], want[i])
		}
	}

	// The running minimum keeps q-values monotone in p-value order.
	got = benjaminiHochberg([]float64{0.01, 0.011, 0.012, 0.8})
	for i := 0; i < 3; i++ {
		if got[i] > got[3] {
			t.Errorf("monotonicity violated: q=%v", got)
		}
	}
}

func TestCorrectOnlyMultiSampleElements(t *testing.T) {
	results := []*ElementResult{
		{ElementID: "A", Samples: 3, PValue: 0.01, PValueNeg: 0.9},
		{ElementID: "B", Samples: 1, PValue: 0.001, PValueNeg: 0.5},
		{ElementID: "C", Samples: 2, PValue: 0.04, PValueNeg: 0.8},
	}

	Correct(results)

	// B has a single mutated sample: no q-values, p-value untouched.
	if results[1].QValue.Valid || results[1].QValueNeg.Valid {
		t.Errorf("single-sample element received q-values: %+v", results[1])
	}
	if results[1].PValue != 0.001 {
		t.Errorf("single-sample p-value changed: %g", results[1].PValue)
	}

	// A and C are corrected over n=2, excluding B.
	if !results[0].QValue.Valid || !results[2].QValue.Valid {
		t.Fatal("multi-sample elements missing q-values")
	}
	if got, want := results[0].QValue.Float64, 0.02; math.Abs(got-want) > 1e-12 {
		t.Errorf("q(A): got %g, want %g", got, want)
	}
	if got, want := results[2].QValue.Float64, 0.04; math.Abs(got-want) > 1e-12 {
		t.Errorf("q(C): got %g, want %g", got, want)
	}
	if !results[0].QValueNeg.Valid || !results[2].QValueNeg.Valid {
		t.Error("multi-sample elements missing negative-tail q-values")
	}
}

func TestCorrectNoEligibleElements(t *testing.T) {
	results := []*ElementResult{
		{ElementID: "A", Samples: 1, PValue: 0.01},
	}
	Correct(results)
	if results[0].QValue.Valid {
		t.Errorf("got q-value %v for ineligible element", results[0].QValue)
	}
}
