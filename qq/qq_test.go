package qq

import (
	"bytes"
	"testing"
)

func TestPlotRendersPNG(t *testing.T) {
	ps := []float64{0.001, 0.2, 0.4, 0.6, 0.8, 0.95}

	var b bytes.Buffer
	if err := Plot(ps, &b); err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix(b.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Errorf("output is not a PNG (%d bytes)", b.Len())
	}
}

func TestPlotRejectsEmptyInput(t *testing.T) {
	var b bytes.Buffer
	if err := Plot(nil, &b); err == nil {
		t.Fatal("expected error for empty input")
	}
}
