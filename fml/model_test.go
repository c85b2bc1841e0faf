package fml

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/bgtools/fmlsim/signature"
)

func modelElement() Element {
	return Element{
		ID:     "E1",
		Coding: true,
		Segments: []Segment{
			{Chromosome: "1", Start: 2, End: 4, Strand: "+"},
		},
	}
}

// Without a signature, every resolvable substitution gets equal probability.
func TestBuildUniform(t *testing.T) {
	oracle := MemoryOracle{}
	oracle.Set("1", 2, "C", "A", 1)
	oracle.Set("1", 2, "C", "G", 2)
	oracle.Set("1", 3, "G", "T", 3)

	b := &ModelBuilder{Oracle: oracle, Sequence: testSequence}
	space, err := b.Build(modelElement(), &Observed{}, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(space.Scores, []float64{1, 2, 3}) {
		t.Errorf("scores: got %v", space.Scores)
	}
	for i, w := range space.Weights {
		if math.Abs(w-1.0/3) > 1e-12 {
			t.Errorf("weight %d: got %g, want 1/3", i, w)
		}
	}
	if space.StopOutcomes != 0 {
		t.Errorf("stop outcomes: got %d, want 0", space.StopOutcomes)
	}
}

// With a signature, each candidate change is weighted by its triplet context's
// probability.
func TestBuildSignatureWeighted(t *testing.T) {
	oracle := MemoryOracle{}
	oracle.Set("1", 2, "C", "A", 1)
	oracle.Set("1", 2, "C", "G", 2)
	oracle.Set("1", 3, "G", "T", 3)

	sig := signature.Table{
		"": {
			{RefTriplet: "ACG", AltTriplet: "AAG"}: 0.75,
			{RefTriplet: "ACG", AltTriplet: "AGG"}: 0.25,
		},
	}

	b := &ModelBuilder{Oracle: oracle, Sequence: testSequence, Signature: sig}
	space, err := b.Build(modelElement(), &Observed{}, 0)
	if err != nil {
		t.Fatal(err)
	}

	// The CGT>CTT change carries no signature mass, so the full weight splits
	// across the two ACG changes.
	want := []float64{0.75, 0.25, 0}
	for i, w := range space.Weights {
		if math.Abs(w-want[i]) > 1e-12 {
			t.Errorf("weight %d: got %g, want %g", i, w, want[i])
		}
	}
}

// Bucketed signatures are mixed per the element's observed bucket frequencies.
func TestBuildBucketFrequencies(t *testing.T) {
	oracle := MemoryOracle{}
	oracle.Set("1", 2, "C", "A", 1)
	oracle.Set("1", 2, "C", "G", 2)

	sig := signature.Table{
		"B1": {{RefTriplet: "ACG", AltTriplet: "AAG"}: 1},
		"B2": {{RefTriplet: "ACG", AltTriplet: "AGG"}: 1},
	}

	observed := &Observed{
		Observations: []ScoredObservation{
			{Mutation: Mutation{Type: SNP}, Bucket: "B1"},
			{Mutation: Mutation{Type: SNP}, Bucket: "B1"},
			{Mutation: Mutation{Type: SNP}, Bucket: "B2"},
		},
	}

	b := &ModelBuilder{Oracle: oracle, Sequence: testSequence, Signature: sig}
	space, err := b.Build(modelElement(), observed, 0)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{2.0 / 3, 1.0 / 3}
	for i, w := range space.Weights {
		if math.Abs(w-want[i]) > 1e-12 {
			t.Errorf("weight %d: got %g, want %g", i, w, want[i])
		}
	}
}

// A signature with no mass for any triplet present in the element leaves zero
// total probability: the element is not computable.
func TestBuildNotComputable(t *testing.T) {
	oracle := MemoryOracle{}
	oracle.Set("1", 2, "C", "A", 1)

	sig := signature.Table{
		"": {{RefTriplet: "TTT", AltTriplet: "TAT"}: 1},
	}

	b := &ModelBuilder{Oracle: oracle, Sequence: testSequence, Signature: sig}
	_, err := b.Build(modelElement(), &Observed{}, 0)

	var nce *NotComputableError
	if !errors.As(err, &nce) {
		t.Fatalf("got %v, want NotComputableError", err)
	}
	if !reflect.DeepEqual(nce.Triplets, []string{"ACG", "CGT", "GTA"}) {
		t.Errorf("triplets: got %v", nce.Triplets)
	}
}

// An element with no resolvable substitutions at all is also not computable.
func TestBuildNoScores(t *testing.T) {
	b := &ModelBuilder{Oracle: MemoryOracle{}, Sequence: testSequence}
	_, err := b.Build(modelElement(), &Observed{}, 0)

	var nce *NotComputableError
	if !errors.As(err, &nce) {
		t.Fatalf("got %v, want NotComputableError", err)
	}
}

// Stop pseudo-outcomes take the frameshift probability mass and split it
// evenly; substitutions share the remainder.
func TestBuildStopOutcomes(t *testing.T) {
	oracle := MemoryOracle{}
	oracle.Set("1", 2, "C", "A", 1)
	oracle.Set("1", 3, "G", "T", 3)

	stops := MemoryStops{"E1": {5, 7}}

	b := &ModelBuilder{Oracle: oracle, Sequence: testSequence, Stops: stops}
	space, err := b.Build(modelElement(), &Observed{}, 0.2)
	if err != nil {
		t.Fatal(err)
	}

	if space.Len() != 4 || space.StopOutcomes != 2 {
		t.Fatalf("got %d outcomes (%d stops), want 4 (2 stops)", space.Len(), space.StopOutcomes)
	}
	want := []float64{0.4, 0.4, 0.1, 0.1}
	for i, w := range space.Weights {
		if math.Abs(w-want[i]) > 1e-12 {
			t.Errorf("weight %d: got %g, want %g", i, w, want[i])
		}
	}
	if space.Scores[2] != 5 || space.Scores[3] != 7 {
		t.Errorf("stop scores: got %v", space.Scores[2:])
	}

	var total float64
	for _, w := range space.Weights {
		total += w
	}
	if math.Abs(total-1) > 1e-12 {
		t.Errorf("weights sum to %g, want 1", total)
	}
}

// Without stop scores the frameshift mass is not reserved: substitutions keep
// the full probability.
func TestBuildNoStopsAvailable(t *testing.T) {
	oracle := MemoryOracle{}
	oracle.Set("1", 2, "C", "A", 1)

	b := &ModelBuilder{Oracle: oracle, Sequence: testSequence, Stops: MemoryStops{}}
	space, err := b.Build(modelElement(), &Observed{}, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if space.Len() != 1 || space.StopOutcomes != 0 {
		t.Fatalf("got %d outcomes (%d stops), want 1 substitution only", space.Len(), space.StopOutcomes)
	}
	if math.Abs(space.Weights[0]-1) > 1e-12 {
		t.Errorf("weight: got %g, want 1", space.Weights[0])
	}
}

func TestCohortFrameshiftRatio(t *testing.T) {
	elements := []Element{
		{ID: "C1", Coding: true},
		{ID: "N1", Coding: false},
	}
	mutations := map[string][]Mutation{
		// Two frameshifts among three indels; the SNV does not count.
		"C1": {
			{Type: Deletion, Ref: "A"},
			{Type: Insertion, Alt: "ACT"},
			{Type: Deletion, Ref: "AC"},
			{Type: SNP, Ref: "A", Alt: "C"},
		},
		// Non-coding elements never contribute.
		"N1": {
			{Type: Deletion, Ref: "ACTG"},
		},
	}

	if got := CohortFrameshiftRatio(elements, mutations); math.Abs(got-2.0/3) > 1e-12 {
		t.Errorf("got %g, want 2/3", got)
	}
	if got := CohortFrameshiftRatio(elements, nil); got != 0 {
		t.Errorf("empty cohort: got %g, want 0", got)
	}
}

func TestElementFrameshiftRatio(t *testing.T) {
	observed := &Observed{
		Observations: []ScoredObservation{
			{Mutation: Mutation{Type: SNP}},
			{Mutation: Mutation{Type: Deletion, Ref: "A"}},
		},
		FrameshiftIndels: 1,
	}
	if got := elementFrameshiftRatio(observed); got != 0.5 {
		t.Errorf("got %g, want 0.5", got)
	}
	if got := elementFrameshiftRatio(&Observed{}); got != 0 {
		t.Errorf("empty: got %g, want 0", got)
	}
}
