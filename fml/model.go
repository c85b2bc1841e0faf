package fml

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bgtools/fmlsim/signature"
	"github.com/bgtools/fmlsim/walker"
	"github.com/carbocation/pfx"
)

// OutcomeSpace is the discrete candidate space of one element: every scored
// single-base change at every background position, plus one pseudo-outcome
// per stop score when indels are simulated as stops. Scores and Weights are
// parallel arrays; Weights sum to 1. Built once per element and reused across
// the whole adaptive sampling run, never shared across elements.
type OutcomeSpace struct {
	Scores  []float64
	Weights []float64
	// StopOutcomes counts the pseudo-outcomes appended at the tail of the
	// arrays for frameshift simulation.
	StopOutcomes int

	table *walker.Table
}

// Len returns the number of candidate outcomes.
func (o *OutcomeSpace) Len() int {
	return len(o.Scores)
}

// NewOutcomeSpace builds an outcome space directly from parallel score and
// weight arrays. Weights are normalized internally.
func NewOutcomeSpace(scores, weights []float64) (*OutcomeSpace, error) {
	if len(scores) != len(weights) {
		return nil, pfx.Err(fmt.Errorf("scores and weights length mismatch: %d vs %d", len(scores), len(weights)))
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, pfx.Err(fmt.Errorf("outcome space has zero probability mass"))
	}

	normalized := make([]float64, len(weights))
	for i, w := range weights {
		normalized[i] = w / total
	}

	table, err := walker.New(normalized)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return &OutcomeSpace{
		Scores:  append([]float64(nil), scores...),
		Weights: normalized,
		table:   table,
	}, nil
}

// NotComputableError marks an element whose outcome space carries zero
// probability mass, typically because the signature has no weight for the
// only reference triplets present. Such elements are excluded from the result
// table rather than silently producing a p-value.
type NotComputableError struct {
	ElementID string
	Triplets  []string
}

func (e *NotComputableError) Error() string {
	return fmt.Sprintf("element %s is not computable: zero simulation probability for triplets [%s]",
		e.ElementID, strings.Join(e.Triplets, " "))
}

// ModelBuilder assembles the OutcomeSpace of an element by combining the
// score oracle, the reference sequence, the mutational signature, and the
// frameshift policy.
type ModelBuilder struct {
	Oracle    ScoreOracle
	Sequence  SequenceSource
	Stops     StopSource
	Signature signature.Table
	Config    Config
}

// Build enumerates every possible substitution across the element's segments
// and assigns each a probability. pFrameshift is the probability mass granted
// to stop pseudo-outcomes; pass 0 when stop simulation does not apply.
func (b *ModelBuilder) Build(element Element, observed *Observed, pFrameshift float64) (*OutcomeSpace, error) {
	frequencies := b.bucketFrequencies(observed)

	var scores, weights []float64
	seenTriplets := make(map[string]struct{})

	for _, seg := range element.Segments {
		// One lookup covers the segment plus one flanking base on each side,
		// enough for every triplet in the segment.
		seq, err := b.Sequence.Reference(seg.Chromosome, seg.Start-1, seg.Len()+2)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("segment %s:%d-%d: %w", seg.Chromosome, seg.Start, seg.End, err))
		}
		if len(seq) < seg.Len()+2 {
			return nil, pfx.Err(fmt.Errorf("segment %s:%d-%d: reference returned %d bases, want %d",
				seg.Chromosome, seg.Start, seg.End, len(seq), seg.Len()+2))
		}

		for pos := seg.Start; pos <= seg.End; pos++ {
			i := pos - seg.Start + 1
			refTriplet := seq[i-1 : i+2]
			ref := refTriplet[1 : 2]
			seenTriplets[refTriplet] = struct{}{}

			for _, alt := range []string{"A", "C", "G", "T"} {
				if alt == ref {
					continue
				}

				v := b.Oracle.Score(element.ID, seg.Chromosome, pos, ref, alt)
				if !v.Valid {
					continue
				}

				scores = append(scores, v.Float64)
				weights = append(weights, b.substitutionWeight(refTriplet, alt, frequencies))
			}
		}
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if len(weights) == 0 || total <= 0 {
		triplets := make([]string, 0, len(seenTriplets))
		for t := range seenTriplets {
			triplets = append(triplets, t)
		}
		sort.Strings(triplets)
		return nil, &NotComputableError{ElementID: element.ID, Triplets: triplets}
	}

	space := &OutcomeSpace{}

	// Stop pseudo-outcomes take pFrameshift of the mass; substitutions share
	// the remainder in proportion to their signature weights.
	var stopScores []float64
	if pFrameshift > 0 && b.Stops != nil {
		stopScores = b.Stops.StopScores(element.ID)
	}

	pSubs := 1.0
	if len(stopScores) > 0 {
		pSubs = 1 - pFrameshift
	}

	for i := range weights {
		weights[i] = pSubs * weights[i] / total
	}
	space.Scores = scores
	space.Weights = weights

	for _, v := range stopScores {
		space.Scores = append(space.Scores, v)
		space.Weights = append(space.Weights, pFrameshift/float64(len(stopScores)))
		space.StopOutcomes++
	}

	table, err := walker.New(space.Weights)
	if err != nil {
		return nil, pfx.Err(err)
	}
	space.table = table

	return space, nil
}

// substitutionWeight is the signature-derived weight of one candidate change:
// the per-bucket probability of its triplet context, averaged over the
// buckets observed in the element.
func (b *ModelBuilder) substitutionWeight(refTriplet, alt string, frequencies map[string]float64) float64 {
	if b.Signature == nil {
		return 1
	}

	altTriplet := refTriplet[:1] + alt + refTriplet[2:]

	var w float64
	for bucket, f := range frequencies {
		w += b.Signature.Probability(bucket, refTriplet, altTriplet) * f
	}
	return w
}

// bucketFrequencies computes each signature bucket's relative frequency among
// the element's scored substitutions. Elements whose observations carry no
// substitutions fall back to a uniform split across the signature's buckets.
func (b *ModelBuilder) bucketFrequencies(observed *Observed) map[string]float64 {
	if b.Signature == nil {
		return nil
	}

	counts := make(map[string]float64)
	var total float64
	for _, obs := range observed.Observations {
		if obs.Mutation.Type != SNP && obs.Mutation.Type != MNP {
			continue
		}
		counts[obs.Bucket]++
		total++
	}

	if total == 0 {
		buckets := b.Signature.Buckets()
		out := make(map[string]float64, len(buckets))
		for _, k := range buckets {
			out[k] = 1 / float64(len(buckets))
		}
		return out
	}

	for k := range counts {
		counts[k] /= total
	}
	return counts
}

// CohortFrameshiftRatio computes the cohort-wide exomic frameshift ratio:
// frameshift indels over all indels mapped to coding elements. Returns 0 when
// no indels map.
func CohortFrameshiftRatio(elements []Element, mutations map[string][]Mutation) float64 {
	var indels, frameshift float64
	for _, e := range elements {
		if !e.Coding {
			continue
		}
		for _, m := range mutations[e.ID] {
			if !m.IsIndel() {
				continue
			}
			indels++
			if m.IsFrameshift() {
				frameshift++
			}
		}
	}
	if indels == 0 {
		return 0
	}
	return frameshift / indels
}

// elementFrameshiftRatio is the per-element alternative: observed frameshift
// indels over all scored observations of the element.
func elementFrameshiftRatio(observed *Observed) float64 {
	if len(observed.Observations) == 0 {
		return 0
	}
	return float64(observed.FrameshiftIndels) / float64(len(observed.Observations))
}
