// Package signature models mutational signatures: probability distributions
// over trinucleotide substitution contexts, optionally split into classifier
// buckets (e.g., per sample or per cancer type). Probabilities within a
// bucket sum to one.
package signature

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// Change identifies a substitution by its reference and alternate triplets:
// the mutated base together with its two flanking bases.
type Change struct {
	RefTriplet string
	AltTriplet string
}

// Bucket maps each triplet change to its mutation probability.
type Bucket map[Change]float64

// Table maps classifier buckets to their substitution probabilities. A table
// built without a classifier holds a single bucket under the empty key.
type Table map[string]Bucket

// Observation is one substitution contributing to a computed signature.
type Observation struct {
	RefTriplet string
	AltTriplet string
	// Classifier assigns the observation to a bucket; leave empty for a
	// global signature.
	Classifier string
}

// Probability returns the mutation probability of the given change within a
// bucket, falling back to the table's single global bucket when the bucket is
// unknown. Changes absent from the bucket have probability 0.
func (t Table) Probability(bucket, refTriplet, altTriplet string) float64 {
	b, ok := t[bucket]
	if !ok {
		b, ok = t[""]
		if !ok {
			return 0
		}
	}
	return b[Change{RefTriplet: refTriplet, AltTriplet: altTriplet}]
}

// Buckets returns the classifier keys present in the table.
func (t Table) Buckets() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	return out
}

var complement = map[byte]byte{'A': 'T', 'T': 'A', 'G': 'C', 'C': 'G', 'N': 'N'}

// ReverseComplement returns the reverse complement of seq, the same context
// read from the opposite strand. Bases outside ACGTN pass through unchanged.
func ReverseComplement(seq string) string {
	var b strings.Builder
	b.Grow(len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		if c, ok := complement[seq[i]]; ok {
			b.WriteByte(c)
		} else {
			b.WriteByte(seq[i])
		}
	}
	return b.String()
}

// Compute counts triplet changes across the cohort's substitutions and
// normalizes each bucket to sum to one. With collapse set, each change also
// counts toward its reverse complement, folding the signature onto one
// strand.
func Compute(observations []Observation, collapse bool) Table {
	counts := make(map[string]map[Change]float64)

	for _, o := range observations {
		bucket, ok := counts[o.Classifier]
		if !ok {
			bucket = make(map[Change]float64)
			counts[o.Classifier] = bucket
		}

		bucket[Change{RefTriplet: o.RefTriplet, AltTriplet: o.AltTriplet}]++
		if collapse {
			bucket[Change{
				RefTriplet: ReverseComplement(o.RefTriplet),
				AltTriplet: ReverseComplement(o.AltTriplet),
			}]++
		}
	}

	out := make(Table, len(counts))
	for classifier, bucket := range counts {
		out[classifier] = normalize(bucket)
	}
	return out
}

// NormalizeBySites corrects a signature by the genomic availability of each
// reference triplet: each change's probability is divided by the number of
// sites carrying its reference triplet, then the bucket is renormalized.
// Changes whose triplet has no site count keep a zero probability.
func (t Table) NormalizeBySites(siteCounts map[string]float64) Table {
	out := make(Table, len(t))
	for classifier, bucket := range t {
		corrected := make(map[Change]float64, len(bucket))
		for change, p := range bucket {
			sites := siteCounts[change.RefTriplet]
			if sites <= 0 {
				continue
			}
			corrected[change] = p / sites
		}
		out[classifier] = normalize(corrected)
	}
	return out
}

func normalize(bucket map[Change]float64) Bucket {
	var total float64
	for _, v := range bucket {
		total += v
	}

	out := make(Bucket, len(bucket))
	if total <= 0 {
		return out
	}
	for k, v := range bucket {
		out[k] = v / total
	}
	return out
}

type signatureRow struct {
	Classifier  string  `csv:"CLASSIFIER"`
	RefTriplet  string  `csv:"REF_TRIPLET"`
	AltTriplet  string  `csv:"ALT_TRIPLET"`
	Probability float64 `csv:"PROBABILITY"`
}

// Load reads a precomputed signature from a tab-delimited file with columns
// CLASSIFIER, REF_TRIPLET, ALT_TRIPLET, PROBABILITY. Each bucket is
// renormalized to sum to one.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a signature table from tab-delimited input. See Load.
func Read(r io.Reader) (Table, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		cr := csv.NewReader(in)
		cr.Comma = '\t'
		return cr
	})

	var rows []*signatureRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	counts := make(map[string]map[Change]float64)
	for _, row := range rows {
		if len(row.RefTriplet) != 3 || len(row.AltTriplet) != 3 {
			return nil, pfx.Err(fmt.Errorf("malformed signature triplets %q>%q", row.RefTriplet, row.AltTriplet))
		}
		bucket, ok := counts[row.Classifier]
		if !ok {
			bucket = make(map[Change]float64)
			counts[row.Classifier] = bucket
		}
		bucket[Change{RefTriplet: row.RefTriplet, AltTriplet: row.AltTriplet}] += row.Probability
	}

	out := make(Table, len(counts))
	for classifier, bucket := range counts {
		out[classifier] = normalize(bucket)
	}
	return out, nil
}
