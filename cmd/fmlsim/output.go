package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/bgtools/fmlsim/fml"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

type resultRow struct {
	ElementID  string `csv:"GENE_ID"`
	Symbol     string `csv:"SYMBOL"`
	Mutations  int    `csv:"MUTS"`
	Recurrence int    `csv:"MUTS_RECURRENCE"`
	Samples    int    `csv:"SAMPLES"`
	PValue     string `csv:"P_VALUE"`
	QValue     string `csv:"Q_VALUE"`
	PValueNeg  string `csv:"P_VALUE_NEG"`
	QValueNeg  string `csv:"Q_VALUE_NEG"`
}

// WriteResults renders the result table as tab-delimited output, one row per
// computable element. Elements without a q-value carry an empty field.
func WriteResults(results []*fml.ElementResult, w io.Writer) error {
	rows := make([]*resultRow, 0, len(results))
	for _, r := range results {
		row := &resultRow{
			ElementID:  r.ElementID,
			Symbol:     r.Symbol.ValueOrZero(),
			Mutations:  r.Mutations,
			Recurrence: r.Recurrence,
			Samples:    r.Samples,
			PValue:     formatP(r.PValue),
			PValueNeg:  formatP(r.PValueNeg),
		}
		if r.QValue.Valid {
			row.QValue = formatP(r.QValue.Float64)
		}
		if r.QValueNeg.Valid {
			row.QValueNeg = formatP(r.QValueNeg.Float64)
		}
		rows = append(rows, row)
	}

	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		cw := csv.NewWriter(out)
		cw.Comma = '\t'
		return gocsv.NewSafeCSVWriter(cw)
	})

	return pfx.Err(gocsv.Marshal(rows, w))
}

func formatP(p float64) string {
	return fmt.Sprintf("%.6g", p)
}

// PrintHistogram draws a terminal histogram of the p-values, a quick sanity
// check that the distribution is roughly uniform with a driver tail.
func PrintHistogram(results []*fml.ElementResult) error {
	if len(results) == 0 {
		return nil
	}

	ps := make([]float64, 0, len(results))
	for _, r := range results {
		ps = append(ps, r.PValue)
	}

	hist := histogram.Hist(20, ps)
	return pfx.Err(histogram.Fprint(os.Stdout, hist, histogram.Linear(40)))
}
