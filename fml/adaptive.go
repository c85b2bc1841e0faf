package fml

import "math/rand"

// RunSampling drives the sampling engine in bounded chunks until the adaptive
// stopping rule fires. It stops when either the absolute ceiling SamplingMax
// is reached, or at least Sampling sets have been simulated and both tails
// hold SamplingMinObs extreme outcomes. The chunk size caps the per-call
// memory footprint.
func RunSampling(space *OutcomeSpace, rng *rand.Rand, cfg Config, muts int, observed float64) Batch {
	var total Batch

	for total.Size < cfg.SamplingMax {
		size := cfg.SamplingChunk
		if remaining := cfg.SamplingMax - total.Size; size > remaining {
			size = remaining
		}

		total.Add(space.SampleBatch(rng, size, muts, observed, cfg.Statistic))

		if total.Size >= cfg.Sampling &&
			total.GreaterEqual >= cfg.SamplingMinObs &&
			total.LessEqual >= cfg.SamplingMinObs {
			break
		}
	}

	return total
}
