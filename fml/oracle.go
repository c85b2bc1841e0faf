package fml

import "gopkg.in/guregu/null.v3"

// ScoreOracle resolves the functional-impact score of a single-base change.
// Implementations must be safe for concurrent use by multiple worker tasks;
// the engine only ever reads through this interface.
type ScoreOracle interface {
	// Score returns the impact score for substituting ref by alt at the given
	// position, or an invalid null.Float when no score is known. The element
	// ID is provided for scores files that carry per-element values.
	Score(elementID, chromosome string, position int, ref, alt string) null.Float
}

// SequenceSource provides reference-genome sequence. Start is 1-based.
// Implementations must be safe for concurrent use.
type SequenceSource interface {
	Reference(chromosome string, start, length int) (string, error)
}

// StopSource provides the precomputed stop scores of an element: the impact
// scores of alterations known to introduce a premature stop. Required only
// when indels are simulated as stops.
type StopSource interface {
	StopScores(elementID string) []float64
}
