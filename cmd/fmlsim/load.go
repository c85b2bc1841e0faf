package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bgtools/fmlsim/fml"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

type mutationRow struct {
	Chromosome string `csv:"CHROMOSOME"`
	Position   int    `csv:"POSITION"`
	Ref        string `csv:"REF"`
	Alt        string `csv:"ALT"`
	Sample     string `csv:"SAMPLE"`
	Classifier string `csv:"SIGNATURE"`
}

type elementRow struct {
	Chromosome string `csv:"CHROMOSOME"`
	Start      int    `csv:"START"`
	Stop       int    `csv:"STOP"`
	Strand     string `csv:"STRAND"`
	Element    string `csv:"ELEMENT"`
	Symbol     string `csv:"SYMBOL"`
	Coding     int    `csv:"CODING"`
}

func tabReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = '\t'
	r.LazyQuotes = true
	return r
}

// ReadMutations loads the tab-delimited mutations file. The mutation type is
// inferred from the ref/alt alleles; a "-" allele marks the empty side of an
// indel.
func ReadMutations(path string) ([]fml.Mutation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	gocsv.SetCSVReader(tabReader)
	var rows []*mutationRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]fml.Mutation, 0, len(rows))
	for _, row := range rows {
		ref := strings.ToUpper(strings.TrimSpace(row.Ref))
		alt := strings.ToUpper(strings.TrimSpace(row.Alt))
		if ref == "-" {
			ref = ""
		}
		if alt == "-" {
			alt = ""
		}

		m := fml.Mutation{
			Chromosome: strings.TrimPrefix(row.Chromosome, "chr"),
			Position:   row.Position,
			Ref:        ref,
			Alt:        alt,
			Sample:     row.Sample,
			Classifier: row.Classifier,
		}

		switch {
		case ref == "" && alt != "":
			m.Type = fml.Insertion
		case alt == "" && ref != "":
			m.Type = fml.Deletion
		case len(ref) == 1 && len(alt) == 1:
			m.Type = fml.SNP
		case len(ref) == len(alt):
			m.Type = fml.MNP
		default:
			// Unequal non-empty alleles are complex events this analysis
			// does not model.
			continue
		}

		out = append(out, m)
	}

	return out, nil
}

// ReadElements loads the tab-delimited elements file, grouping segment rows
// by element ID.
func ReadElements(path string) ([]fml.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	gocsv.SetCSVReader(tabReader)
	var rows []*elementRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	byID := make(map[string]*fml.Element)
	order := []string{}
	for _, row := range rows {
		e, ok := byID[row.Element]
		if !ok {
			e = &fml.Element{
				ID:     row.Element,
				Symbol: row.Symbol,
				Coding: row.Coding != 0,
			}
			byID[row.Element] = e
			order = append(order, row.Element)
		}
		e.Segments = append(e.Segments, fml.Segment{
			Chromosome: strings.TrimPrefix(row.Chromosome, "chr"),
			Start:      row.Start,
			End:        row.Stop,
			Strand:     row.Strand,
		})
	}

	out := make([]fml.Element, 0, len(byID))
	for _, id := range order {
		e := byID[id]
		sort.Slice(e.Segments, func(i, j int) bool { return e.Segments[i].Start < e.Segments[j].Start })
		out = append(out, *e)
	}
	return out, nil
}

// MapMutations assigns each mutation to every element whose segments contain
// its position.
func MapMutations(elements []fml.Element, mutations []fml.Mutation) map[string][]fml.Mutation {
	type span struct {
		start, end int
		element    string
	}
	byChrom := make(map[string][]span)
	for _, e := range elements {
		for _, s := range e.Segments {
			byChrom[s.Chromosome] = append(byChrom[s.Chromosome], span{start: s.Start, end: s.End, element: e.ID})
		}
	}
	for _, spans := range byChrom {
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	}

	out := make(map[string][]fml.Mutation)
	for _, m := range mutations {
		for _, s := range byChrom[m.Chromosome] {
			if s.start > m.Position {
				break
			}
			if m.Position >= s.start && m.Position <= s.end {
				out[s.element] = append(out[s.element], m)
			}
		}
	}
	return out
}

// ReadFasta loads a reference FASTA into memory, keyed by the first word of
// each record header, with any chr prefix stripped.
func ReadFasta(path string) (fml.MemorySequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	out := make(fml.MemorySequence)
	var name string
	var seq strings.Builder

	flush := func() {
		if name != "" {
			out[name] = seq.String()
		}
		seq.Reset()
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			name = strings.TrimPrefix(strings.Fields(line[1:])[0], "chr")
			continue
		}
		seq.WriteString(strings.ToUpper(line))
	}
	if err := sc.Err(); err != nil {
		return nil, pfx.Err(err)
	}
	flush()

	if len(out) == 0 {
		return nil, pfx.Err(fmt.Errorf("no sequences found in %s", path))
	}
	return out, nil
}
