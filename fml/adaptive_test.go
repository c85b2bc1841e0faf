package fml

import (
	"math/rand"
	"testing"
)

func samplingConfig() Config {
	return Config{
		Sampling:       1000,
		SamplingMax:    100000,
		SamplingChunk:  1000,
		SamplingMinObs: 10,
		Statistic:      ArithmeticMean,
	}
}

// With a modest observed statistic, both tails fill quickly: the controller
// must stop at the configured minimum, far below the ceiling.
func TestRunSamplingStopsEarly(t *testing.T) {
	space, err := NewOutcomeSpace([]float64{1, 2, 3}, []float64{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}

	cfg := samplingConfig()
	rng := rand.New(rand.NewSource(3))
	b := RunSampling(space, rng, cfg, 1, 2.0)

	if b.Size != cfg.Sampling {
		t.Errorf("total simulations: got %d, want %d", b.Size, cfg.Sampling)
	}
	if b.GreaterEqual < cfg.SamplingMinObs || b.LessEqual < cfg.SamplingMinObs {
		t.Errorf("tallies ge=%d le=%d below min obs %d at stop", b.GreaterEqual, b.LessEqual, cfg.SamplingMinObs)
	}
}

// An observed statistic beyond every outcome never yields greater-or-equal
// observations, so the controller must run all the way to the ceiling.
func TestRunSamplingHitsCeiling(t *testing.T) {
	space, err := NewOutcomeSpace([]float64{1, 2, 3}, []float64{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}

	cfg := samplingConfig()
	cfg.SamplingMax = 5000
	rng := rand.New(rand.NewSource(4))
	b := RunSampling(space, rng, cfg, 1, 100.0)

	if b.Size != cfg.SamplingMax {
		t.Errorf("total simulations: got %d, want ceiling %d", b.Size, cfg.SamplingMax)
	}
	if b.GreaterEqual != 0 {
		t.Errorf("greater-or-equal: got %d, want 0", b.GreaterEqual)
	}
	if b.LessEqual != b.Size {
		t.Errorf("less-or-equal: got %d, want %d", b.LessEqual, b.Size)
	}
}

// Termination bound: sampling <= total <= sampling_max whenever the
// min-observation criterion is reachable, across a spread of configurations.
func TestRunSamplingBounds(t *testing.T) {
	space, err := NewOutcomeSpace([]float64{0, 5}, []float64{0.9, 0.1})
	if err != nil {
		t.Fatal(err)
	}

	for _, v := range []struct {
		name     string
		observed float64
		chunk    int
	}{
		{"balanced", 0.5, 300},
		{"rare high tail", 5, 700},
		{"chunk larger than max", 0.5, 1 << 20},
	} {
		cfg := samplingConfig()
		cfg.SamplingChunk = v.chunk
		rng := rand.New(rand.NewSource(5))
		b := RunSampling(space, rng, cfg, 2, v.observed)

		if b.Size < cfg.Sampling || b.Size > cfg.SamplingMax {
			t.Errorf("%s: total %d outside [%d, %d]", v.name, b.Size, cfg.Sampling, cfg.SamplingMax)
		}
		if b.Size < cfg.SamplingMax &&
			(b.GreaterEqual < cfg.SamplingMinObs || b.LessEqual < cfg.SamplingMinObs) {
			t.Errorf("%s: stopped below ceiling with ge=%d le=%d", v.name, b.GreaterEqual, b.LessEqual)
		}
	}
}

// A first chunk already exceeding the min-observation criterion in both tails
// must end the run at the first chunk boundary past the minimum, not at the
// ceiling.
func TestRunSamplingFirstChunkSatisfies(t *testing.T) {
	space, err := NewOutcomeSpace([]float64{1, 3}, []float64{0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		Sampling:       1000,
		SamplingMax:    1 << 30,
		SamplingChunk:  1000,
		SamplingMinObs: 10,
		Statistic:      ArithmeticMean,
	}
	rng := rand.New(rand.NewSource(6))
	b := RunSampling(space, rng, cfg, 1, 2.0)

	if b.Size != 1000 {
		t.Errorf("total simulations: got %d, want 1000", b.Size)
	}
}
