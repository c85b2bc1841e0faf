// Package qq renders a quantile-quantile plot of the per-element p-values:
// observed -log10 p against the uniform expectation. Strong departures above
// the diagonal indicate elements whose mutation burden exceeds the null.
package qq

import (
	"io"
	"math"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Plot renders the QQ plot as a PNG. The input p-values need not be sorted.
func Plot(pvalues []float64, w io.Writer) error {
	n := len(pvalues)
	if n == 0 {
		return pfx.Err(io.ErrUnexpectedEOF)
	}

	sorted := make([]float64, n)
	copy(sorted, pvalues)
	sort.Float64s(sorted)

	expected := make([]float64, n)
	observed := make([]float64, n)
	maxVal := 0.0
	for i, p := range sorted {
		expected[i] = -math.Log10((float64(i) + 0.5) / float64(n))
		observed[i] = -math.Log10(p)
		if expected[i] > maxVal {
			maxVal = expected[i]
		}
		if observed[i] > maxVal {
			maxVal = observed[i]
		}
	}

	graph := chart.Chart{
		Width:  640,
		Height: 640,
		XAxis: chart.XAxis{
			Name: "Expected -log10(p)",
		},
		YAxis: chart.YAxis{
			Name:  "Observed -log10(p)",
			Range: &chart.ContinuousRange{Min: 0, Max: maxVal * 1.05},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Diagonal",
				Style: chart.Style{
					StrokeColor:     drawing.ColorFromHex("999999"),
					StrokeDashArray: []float64{4, 4},
				},
				XValues: []float64{0, maxVal},
				YValues: []float64{0, maxVal},
			},
			chart.ContinuousSeries{
				Name: "Elements",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    3,
					DotColor:    drawing.ColorFromHex("1f77b4"),
				},
				XValues: expected,
				YValues: observed,
			},
		},
	}

	return pfx.Err(graph.Render(chart.PNG, w))
}
