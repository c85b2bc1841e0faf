package fml

import (
	"fmt"

	"github.com/carbocation/pfx"
)

// StatisticMethod selects the reduction applied to a set of scores, both for
// the observed mutations and for every simulated mutation set. The two must
// always match for the comparison to be well-defined.
type StatisticMethod int

const (
	ArithmeticMean StatisticMethod = iota
	GeometricMean
)

func (s StatisticMethod) String() string {
	if s == GeometricMean {
		return "gmean"
	}
	return "amean"
}

// ParseStatisticMethod maps a configuration string to a StatisticMethod.
func ParseStatisticMethod(name string) (StatisticMethod, error) {
	switch name {
	case "amean":
		return ArithmeticMean, nil
	case "gmean":
		return GeometricMean, nil
	}
	return 0, pfx.Err(fmt.Errorf("unknown statistic method %q (want amean or gmean)", name))
}

// IndelMethod selects how insertions and deletions are scored and simulated.
type IndelMethod int

const (
	// IndelsAsSubstitutions decomposes the indel into the single-base changes
	// it implies against the shifted reference and takes the maximum
	// resolvable score. Used for non-coding regions.
	IndelsAsSubstitutions IndelMethod = iota
	// IndelsAsStops treats frameshift indels in coding elements as premature
	// stops, scored from the element's precomputed stop scores.
	IndelsAsStops
)

func (m IndelMethod) String() string {
	if m == IndelsAsStops {
		return "stop"
	}
	return "max"
}

// ParseIndelMethod maps a configuration string to an IndelMethod.
func ParseIndelMethod(name string) (IndelMethod, error) {
	switch name {
	case "max":
		return IndelsAsSubstitutions, nil
	case "stop":
		return IndelsAsStops, nil
	}
	return 0, pfx.Err(fmt.Errorf("unknown indel method %q (want max or stop)", name))
}

// StopsFunction reduces the set of stop scores of an element to the score
// assigned to one frameshift indel.
type StopsFunction int

const (
	StopsMean StopsFunction = iota
	StopsMedian
	StopsRandomUniform
	StopsRandomChoice
)

func (f StopsFunction) String() string {
	switch f {
	case StopsMedian:
		return "median"
	case StopsRandomUniform:
		return "random"
	case StopsRandomChoice:
		return "random_choice"
	}
	return "mean"
}

// ParseStopsFunction maps a configuration string to a StopsFunction.
func ParseStopsFunction(name string) (StopsFunction, error) {
	switch name {
	case "mean":
		return StopsMean, nil
	case "median":
		return StopsMedian, nil
	case "random":
		return StopsRandomUniform, nil
	case "random_choice":
		return StopsRandomChoice, nil
	}
	return 0, pfx.Err(fmt.Errorf("unknown stops function %q", name))
}

// Config holds the options recognized by the analysis core. Loading and
// defaulting is the caller's concern; Validate must pass before any element
// task is scheduled.
type Config struct {
	// Sampling is the minimum number of simulated mutation sets per element.
	Sampling int
	// SamplingMax caps the total number of simulated sets for elements that
	// never reach SamplingMinObs extreme outcomes.
	SamplingMax int
	// SamplingChunk caps the number of simulated sets requested from the
	// sampling engine in one batch, bounding peak memory.
	SamplingChunk int
	// SamplingMinObs is the number of extreme outcomes in both tails after
	// which sampling may stop early (once Sampling has been reached).
	SamplingMinObs int

	Statistic StatisticMethod

	// DiscardMNP drops multi-nucleotide substitutions instead of scoring them.
	DiscardMNP bool

	// IncludeIndels enables indel scoring and simulation altogether.
	IncludeIndels bool
	IndelMethod   IndelMethod
	// MaxIndelLength drops indels longer than this unconditionally.
	MaxIndelLength int
	// MaxConsecutive drops indels whose repeated unit occurs at least this
	// many times consecutively around the indel site. 0 disables the filter.
	MaxConsecutive int
	// MinStopsPerElement is the minimum number of stop scores needed before
	// the stops function is applied; below it the maximum available stop
	// score is used instead.
	MinStopsPerElement int
	StopsFunction      StopsFunction
	// GeneExomicFrameshiftRatio derives the frameshift probability from each
	// element's own observed ratio instead of the cohort-wide exomic ratio.
	GeneExomicFrameshiftRatio bool

	// Cores is the worker pool size; 0 means all available cores.
	Cores int
	// Seed is the run-level random seed. Per-element generators are derived
	// deterministically from it and the element ID.
	Seed int64
}

// Validate checks the configuration preconditions that must hold before any
// element task is scheduled. A failure here is fatal to the run.
func (c Config) Validate() error {
	if c.Sampling <= 0 {
		return pfx.Err(fmt.Errorf("sampling must be positive, got %d", c.Sampling))
	}
	if c.SamplingMax < c.Sampling {
		return pfx.Err(fmt.Errorf("sampling_max (%d) must be at least sampling (%d)", c.SamplingMax, c.Sampling))
	}
	if c.SamplingChunk <= 0 {
		return pfx.Err(fmt.Errorf("sampling_chunk must be positive, got %d", c.SamplingChunk))
	}
	if c.SamplingMinObs < 0 {
		return pfx.Err(fmt.Errorf("sampling_min_obs must not be negative, got %d", c.SamplingMinObs))
	}
	if c.IncludeIndels && c.MaxIndelLength <= 0 {
		return pfx.Err(fmt.Errorf("max indel length must be positive when indels are included, got %d", c.MaxIndelLength))
	}
	if c.Cores < 0 {
		return pfx.Err(fmt.Errorf("cores must not be negative, got %d", c.Cores))
	}
	return nil
}
