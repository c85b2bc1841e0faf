// Package fml estimates, per genomic element, whether observed somatic
// mutations carry a higher functional-impact burden than expected under a
// local null mutational model. Observed mutations are scored, a background
// probability model is built over every possible change in the element, and
// the observed statistic is compared against many simulated mutation sets
// drawn from that model.
package fml

// MutationType classifies a mutation record.
type MutationType int

const (
	SNP MutationType = iota
	MNP
	Insertion
	Deletion
)

func (t MutationType) String() string {
	switch t {
	case SNP:
		return "snp"
	case MNP:
		return "mnp"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	}
	return "unknown"
}

// Mutation is one somatic mutation record, immutable once loaded. Ref and Alt
// have equal length for SNP/MNP; for an insertion Ref is empty and for a
// deletion Alt is empty. Position is 1-based.
type Mutation struct {
	Chromosome string
	Position   int
	Ref        string
	Alt        string
	Sample     string
	Type       MutationType
	// Classifier optionally tags the mutation with a signature bucket (e.g.,
	// the sample or cancer type the signature was derived from).
	Classifier string
}

// IsIndel reports whether the mutation is an insertion or deletion.
func (m Mutation) IsIndel() bool {
	return m.Type == Insertion || m.Type == Deletion
}

// IndelLength is the number of inserted or deleted bases, 0 for non-indels.
func (m Mutation) IndelLength() int {
	if !m.IsIndel() {
		return 0
	}
	if len(m.Ref) > len(m.Alt) {
		return len(m.Ref)
	}
	return len(m.Alt)
}

// IsFrameshift reports whether an indel shifts the reading frame (length not
// a multiple of 3). Non-indels are never frameshifts.
func (m Mutation) IsFrameshift() bool {
	n := m.IndelLength()
	return n > 0 && n%3 != 0
}

// Segment is a half-open genomic interval [Start, End], 1-based inclusive,
// belonging to one element.
type Segment struct {
	Chromosome string
	Start      int
	End        int
	Strand     string
}

// Len is the number of positions covered by the segment.
func (s Segment) Len() int {
	return s.End - s.Start + 1
}

// Element is a genomic region of interest composed of non-overlapping
// segments. The segments define the element's background: every position a
// simulated mutation could land on.
type Element struct {
	ID       string
	Symbol   string
	Coding   bool
	Segments []Segment
}

// BackgroundSize is the total number of positions across all segments.
func (e Element) BackgroundSize() int {
	n := 0
	for _, s := range e.Segments {
		n += s.Len()
	}
	return n
}

// PositiveStrand reports whether the element is annotated on the positive
// strand. Elements with no strand annotation are treated as positive.
func (e Element) PositiveStrand() bool {
	return len(e.Segments) == 0 || e.Segments[0].Strand != "-"
}
