package fml

import (
	"fmt"

	"github.com/carbocation/pfx"
	"gopkg.in/guregu/null.v3"
)

// MemorySequence is a SequenceSource over chromosome sequences held in
// memory. Positions are 1-based. Safe for concurrent reads once populated.
type MemorySequence map[string]string

// Reference implements SequenceSource.
func (m MemorySequence) Reference(chromosome string, start, length int) (string, error) {
	seq, ok := m[chromosome]
	if !ok {
		return "", pfx.Err(fmt.Errorf("unknown chromosome %q", chromosome))
	}
	if start < 1 || start+length-1 > len(seq) {
		return "", pfx.Err(fmt.Errorf("%s:%d+%d outside sequence of length %d", chromosome, start, length, len(seq)))
	}
	return seq[start-1 : start-1+length], nil
}

// MemoryOracle is a ScoreOracle backed by a map, keyed by position and
// substitution. Safe for concurrent reads once populated.
type MemoryOracle map[string]float64

func oracleKey(chromosome string, position int, ref, alt string) string {
	return fmt.Sprintf("%s:%d:%s>%s", chromosome, position, ref, alt)
}

// Set registers the score of one substitution.
func (m MemoryOracle) Set(chromosome string, position int, ref, alt string, score float64) {
	m[oracleKey(chromosome, position, ref, alt)] = score
}

// Score implements ScoreOracle. The element ID is ignored; scores are global.
func (m MemoryOracle) Score(_, chromosome string, position int, ref, alt string) null.Float {
	v, ok := m[oracleKey(chromosome, position, ref, alt)]
	if !ok {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// MemoryStops is a StopSource over per-element stop scores held in memory.
type MemoryStops map[string][]float64

// StopScores implements StopSource.
func (m MemoryStops) StopScores(elementID string) []float64 {
	return m[elementID]
}
