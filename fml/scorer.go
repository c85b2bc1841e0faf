package fml

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
)

// ScoredObservation is one observed mutation that resolved to a score.
type ScoredObservation struct {
	Mutation Mutation
	Score    float64
	// Bucket is the signature bucket the mutation belongs to (its classifier
	// tag). Empty when no classifier applies.
	Bucket string
}

// Observed aggregates the scored mutations of one element together with the
// per-type counts needed downstream. Mutations that resolve no score are
// dropped and do not appear in any count here.
type Observed struct {
	Observations []ScoredObservation

	SNVs             int
	MNPs             int
	Indels           int
	FrameshiftIndels int
}

// Scores returns the assigned scores in observation order.
func (o *Observed) Scores() []float64 {
	out := make([]float64, len(o.Observations))
	for i, obs := range o.Observations {
		out[i] = obs.Score
	}
	return out
}

// Recurrence is the number of distinct mutated positions.
func (o *Observed) Recurrence() int {
	seen := make(map[int]struct{})
	for _, obs := range o.Observations {
		seen[obs.Mutation.Position] = struct{}{}
	}
	return len(seen)
}

// SampleCount is the number of distinct samples carrying at least one scored
// mutation.
func (o *Observed) SampleCount() int {
	seen := make(map[string]struct{})
	for _, obs := range o.Observations {
		seen[obs.Mutation.Sample] = struct{}{}
	}
	return len(seen)
}

// Scorer converts raw mutation records into scored observations per element.
// It is deterministic given identical inputs and generator state.
type Scorer struct {
	Oracle   ScoreOracle
	Sequence SequenceSource
	Stops    StopSource
	Config   Config
}

// ScoreElement scores every mutation mapped to the element. The generator is
// only consumed by the randomized stop reductions, so elements without
// frameshift indels leave it untouched.
func (s *Scorer) ScoreElement(element Element, muts []Mutation, rng *rand.Rand) (*Observed, error) {
	out := &Observed{}

	for _, m := range muts {
		var score float64
		var ok bool
		var err error

		switch m.Type {
		case SNP:
			score, ok = s.scoreSNV(element.ID, m)
		case MNP:
			if s.Config.DiscardMNP {
				continue
			}
			score, ok = s.scoreMNP(element.ID, m)
		case Insertion, Deletion:
			if !s.Config.IncludeIndels {
				continue
			}
			score, ok, err = s.scoreIndel(element, m, rng)
			if err != nil {
				return nil, pfx.Err(err)
			}
		default:
			continue
		}

		if !ok {
			// Unscoreable observation: recovered locally by dropping it.
			continue
		}

		out.Observations = append(out.Observations, ScoredObservation{
			Mutation: m,
			Score:    score,
			Bucket:   m.Classifier,
		})
		switch m.Type {
		case SNP:
			out.SNVs++
		case MNP:
			out.MNPs++
		default:
			out.Indels++
			if m.IsFrameshift() {
				out.FrameshiftIndels++
			}
		}
	}

	return out, nil
}

func (s *Scorer) scoreSNV(elementID string, m Mutation) (float64, bool) {
	v := s.Oracle.Score(elementID, m.Chromosome, m.Position, m.Ref, m.Alt)
	return v.Float64, v.Valid
}

// scoreMNP decomposes a multi-nucleotide substitution into its constituent
// single-position changes and keeps the maximum resolvable score.
func (s *Scorer) scoreMNP(elementID string, m Mutation) (float64, bool) {
	best := 0.0
	found := false
	for i := 0; i < len(m.Ref) && i < len(m.Alt); i++ {
		if m.Ref[i] == m.Alt[i] {
			continue
		}
		v := s.Oracle.Score(elementID, m.Chromosome, m.Position+i, string(m.Ref[i]), string(m.Alt[i]))
		if !v.Valid {
			continue
		}
		if !found || v.Float64 > best {
			best = v.Float64
			found = true
		}
	}
	return best, found
}

func (s *Scorer) scoreIndel(element Element, m Mutation, rng *rand.Rand) (float64, bool, error) {
	if m.IndelLength() > s.Config.MaxIndelLength {
		return 0, false, nil
	}

	repetitive, err := s.inRepetitiveRegion(m)
	if err != nil {
		return 0, false, pfx.Err(err)
	}
	if repetitive {
		return 0, false, nil
	}

	if s.Config.IndelMethod == IndelsAsStops && element.Coding && m.IsFrameshift() {
		score, ok, err := s.stopScore(element.ID, rng)
		return score, ok, err
	}

	// In-frame indels under the stop policy, and every indel under the
	// substitution policy, score as the implied single-base changes.
	score, ok, err := s.indelAsSubstitutions(element, m)
	return score, ok, err
}

// inRepetitiveRegion checks whether the indel's repeated unit occurs at least
// MaxConsecutive times in the reference window centered on the indel. The
// window spans twice the unit length times the threshold.
func (s *Scorer) inRepetitiveRegion(m Mutation) (bool, error) {
	if s.Config.MaxConsecutive <= 0 {
		return false, nil
	}

	unit := m.Ref
	if m.Type == Insertion {
		unit = m.Alt
	}
	if unit == "" {
		return false, nil
	}

	size := s.Config.MaxConsecutive * 2 * len(unit)
	ref, err := s.Sequence.Reference(m.Chromosome, m.Position-size/2-1, size+1)
	if err != nil {
		return false, pfx.Err(fmt.Errorf("repetitive-region lookup at %s:%d: %w", m.Chromosome, m.Position, err))
	}

	return strings.Count(ref, unit) >= s.Config.MaxConsecutive, nil
}

// indelAsSubstitutions walks the window the indel disturbs, comparing the
// reference against the shifted (or alt-prefixed) sequence, and keeps the
// maximum resolvable per-base score.
func (s *Scorer) indelAsSubstitutions(element Element, m Mutation) (float64, bool, error) {
	size := m.IndelLength()
	if size == 0 {
		return 0, false, nil
	}

	reference, alteration, start, err := s.mutationSequences(element, m, size)
	if err != nil {
		return 0, false, pfx.Err(err)
	}

	best := 0.0
	found := false
	for i := 0; i < size && i < len(reference) && i < len(alteration); i++ {
		if reference[i] == alteration[i] {
			continue
		}
		v := s.Oracle.Score(element.ID, m.Chromosome, start+i, string(reference[i]), string(alteration[i]))
		if !v.Valid {
			continue
		}
		if !found || v.Float64 > best {
			best = v.Float64
			found = true
		}
	}
	return best, found, nil
}

// mutationSequences returns the reference and altered sequences across the
// indel window, plus the genomic position of their first base. On the
// negative strand the window extends upstream of the mutation instead.
func (s *Scorer) mutationSequences(element Element, m Mutation, size int) (reference, alteration string, start int, err error) {
	indelSize := m.IndelLength()

	if element.PositiveStrand() {
		ref, err := s.Sequence.Reference(m.Chromosome, m.Position, indelSize+size)
		if err != nil {
			return "", "", 0, err
		}
		var alt string
		if m.Type == Insertion {
			alt = m.Alt + ref
		} else {
			alt = ref[min(indelSize, len(ref)):]
		}
		return clip(ref, size), clip(alt, size), m.Position, nil
	}

	ref, err2 := s.Sequence.Reference(m.Chromosome, m.Position-(indelSize+size), indelSize+size)
	if err2 != nil {
		return "", "", 0, err2
	}
	var alt string
	if m.Type == Insertion {
		alt = ref + m.Alt
	} else {
		alt = ref[:len(ref)-min(indelSize, len(ref))]
	}
	return tail(ref, size), tail(alt, size), m.Position - size, nil
}

// stopScore reduces the element's precomputed stop scores per the configured
// stops function. With fewer than the configured minimum of stop scores, the
// maximum available one is used instead.
func (s *Scorer) stopScore(elementID string, rng *rand.Rand) (float64, bool, error) {
	if s.Stops == nil {
		return 0, false, pfx.Err(fmt.Errorf("indels configured as stops but no stop-score source is available"))
	}

	values := s.Stops.StopScores(elementID)
	if len(values) == 0 {
		return 0, false, nil
	}

	if len(values) < s.Config.MinStopsPerElement {
		max, err := stats.Max(values)
		if err != nil {
			return 0, false, pfx.Err(err)
		}
		return max, true, nil
	}

	switch s.Config.StopsFunction {
	case StopsMedian:
		v, err := stats.Median(values)
		if err != nil {
			return 0, false, pfx.Err(err)
		}
		return v, true, nil
	case StopsRandomUniform:
		lo, err := stats.Min(values)
		if err != nil {
			return 0, false, pfx.Err(err)
		}
		hi, err := stats.Max(values)
		if err != nil {
			return 0, false, pfx.Err(err)
		}
		return lo + rng.Float64()*(hi-lo), true, nil
	case StopsRandomChoice:
		return values[rng.Intn(len(values))], true, nil
	default:
		v, err := stats.Mean(values)
		if err != nil {
			return 0, false, pfx.Err(err)
		}
		return v, true, nil
	}
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func tail(s string, n int) string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
