package stats

import (
	"math"
	"testing"
)

func TestMeanAndStdDev(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	if got := Mean(xs); got != 3 {
		t.Fatalf("mean = %v, want 3", got)
	}
	want := math.Sqrt(2.5)
	if got := StdDev(xs); math.Abs(got-want) > 1e-12 {
		t.Fatalf("stddev = %v, want %v", got, want)
	}
	if got := StdDev([]float64{7}); got != 0 {
		t.Fatalf("stddev of single obs = %v, want 0", got)
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	if got := Quantile(xs, 0); got != 1 {
		t.Fatalf("q0 = %v", got)
	}
	if got := Quantile(xs, 1); got != 4 {
		t.Fatalf("q1 = %v", got)
	}
	if got := Quantile(xs, 0.5); math.Abs(got-2.5) > 1e-12 {
		t.Fatalf("median = %v, want 2.5", got)
	}
}

func TestQuantileEdgesCollapsesTies(t *testing.T) {
	xs := make([]float64, 100)
	for i := range xs {
		xs[i] = float64(i)
	}
	edges := QuantileEdges(xs, 10)
	if len(edges) != 9 {
		t.Fatalf("edges = %d, want 9", len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			t.Fatalf("edges not strictly increasing: %v", edges)
		}
	}

	// constant sample collapses to no interior edges
	flat := []float64{0.4, 0.4, 0.4, 0.4}
	if edges := QuantileEdges(flat, 10); len(edges) != 0 {
		t.Fatalf("constant sample produced edges: %v", edges)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4, 5})
	if s.Min != 1 || s.Max != 5 || s.Median != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Q1 != 2 || s.Q3 != 4 {
		t.Fatalf("unexpected quartiles %+v", s)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp01(-0.2); got != 0 {
		t.Fatalf("clamp01(-0.2) = %v", got)
	}
	if got := Clamp01(1.7); got != 1 {
		t.Fatalf("clamp01(1.7) = %v", got)
	}
	if got := Clamp(0.3, 0, 1); got != 0.3 {
		t.Fatalf("clamp passthrough = %v", got)
	}
}
