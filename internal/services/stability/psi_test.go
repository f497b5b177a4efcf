package stability

import (
	"math"
	"testing"

	"LGDPulse/internal/domain/models"
)

const eps = 1e-4

func TestPSIIdenticalDistributionsIsZero(t *testing.T) {
	p := []float64{0.1, 0.2, 0.3, 0.4}
	if got := PSI(p, p, eps); got != 0 {
		t.Fatalf("PSI(P,P) = %v, want 0", got)
	}
}

func TestPSIAsymmetricUnderSwappedBaseline(t *testing.T) {
	// The index itself is term-wise symmetric in the shares; the asymmetry
	// that matters comes from bins being frozen on the baseline. Swapping
	// which population defines the binning changes the value.
	e := New(Config{Bins: 4})
	p := []float64{1, 1, 1, 2, 2, 3, 4, 5, 6, 9}
	q := []float64{1, 4, 4, 5, 5, 5, 6, 7, 8, 9}

	binsP := e.Freeze(Population{Quarter: "2024Q4", Values: map[string][]float64{"x": p}})["x"]
	binsQ := e.Freeze(Population{Quarter: "2024Q4", Values: map[string][]float64{"x": q}})["x"]

	pq := PSI(Distribution(p, binsP), Distribution(q, binsP), eps)
	qp := PSI(Distribution(q, binsQ), Distribution(p, binsQ), eps)
	if pq <= 0 || qp <= 0 {
		t.Fatalf("expected positive PSI, got %v and %v", pq, qp)
	}
	if math.Abs(pq-qp) < 1e-12 {
		t.Fatalf("PSI unexpectedly symmetric under swapped baseline: %v vs %v", pq, qp)
	}
}

func TestPSINonNegativeWithEmptyBins(t *testing.T) {
	p := []float64{0.5, 0.5, 0}
	q := []float64{0, 0.5, 0.5}
	if got := PSI(p, q, eps); got <= 0 || math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("PSI with empty bins = %v", got)
	}
}

func uniformValues(n, bins int) []float64 {
	// n values evenly spread so quantile bins hold n/bins each
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n)
	}
	return out
}

func TestEvaluateIdenticalSnapshotsGreen(t *testing.T) {
	e := New(Config{Bins: 10})
	baseline := Population{Quarter: "2024Q4", Values: map[string][]float64{
		"ltv": uniformValues(1000, 10),
	}}
	current := Population{Quarter: "2025Q1", Values: map[string][]float64{
		"ltv": uniformValues(1000, 10),
	}}

	bins := e.Freeze(baseline)
	res, err := e.Evaluate(bins, baseline, []Population{current})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Cells) != 1 {
		t.Fatalf("cells = %d, want 1", len(res.Cells))
	}
	cell := res.Cells[0]
	if cell.PSI != 0 || cell.Status != models.StatusGreen || cell.BreachStreak != 0 {
		t.Fatalf("unexpected cell %+v", cell)
	}
}

func TestEvaluateShiftedSnapshotBreachesWithDecomposition(t *testing.T) {
	e := New(Config{Bins: 10})
	baseline := Population{Quarter: "2024Q4", Values: map[string][]float64{
		"ltv": uniformValues(1000, 10),
	}}

	// shift 200 exposures from bin 1 to bin 10
	shifted := uniformValues(1000, 10)
	moved := 0
	for i := range shifted {
		if shifted[i] < 0.2 && moved < 200 {
			shifted[i] = 0.95
			moved++
		}
	}
	current := Population{Quarter: "2025Q1", Values: map[string][]float64{"ltv": shifted}}

	bins := e.Freeze(baseline)
	res, err := e.Evaluate(bins, baseline, []Population{current})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cell := res.Cells[0]
	if cell.PSI <= 0.10 {
		t.Fatalf("PSI = %v, want > 0.10", cell.PSI)
	}
	if cell.Status != models.StatusRed || cell.BreachStreak != 1 {
		t.Fatalf("unexpected cell %+v", cell)
	}
	if len(cell.Decomposition) == 0 {
		t.Fatalf("breach must carry a decomposition")
	}

	// the emptied and overfilled bins dominate the waterfall
	top := map[int]bool{cell.Decomposition[0].Bin: true, cell.Decomposition[1].Bin: true}
	var sum, topSum float64
	for _, c := range cell.Decomposition {
		sum += c.Contribution
		if top[c.Bin] {
			topSum += c.Contribution
		}
	}
	if topSum < sum/2 {
		t.Fatalf("top bins contribute %v of %v, want majority", topSum, sum)
	}
	if math.Abs(sum-cell.PSI) > 1e-9 {
		t.Fatalf("decomposition sums to %v, PSI is %v", sum, cell.PSI)
	}
}

func TestEvaluateConsecutiveBreachStreak(t *testing.T) {
	e := New(Config{Bins: 10})
	baseline := Population{Quarter: "2024Q4", Values: map[string][]float64{
		"ltv": uniformValues(1000, 10),
	}}
	drifted := make([]float64, 1000)
	for i := range drifted {
		drifted[i] = 0.95 // everything in the top bin
	}
	q1 := Population{Quarter: "2025Q1", Values: map[string][]float64{"ltv": drifted}}
	q2 := Population{Quarter: "2025Q2", Values: map[string][]float64{"ltv": drifted}}

	bins := e.Freeze(baseline)
	res, err := e.Evaluate(bins, baseline, []Population{q1, q2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cells[0].BreachStreak != 1 || res.Cells[1].BreachStreak != 2 {
		t.Fatalf("streaks = %d, %d; want 1, 2", res.Cells[0].BreachStreak, res.Cells[1].BreachStreak)
	}
	if MaxStreak(res) != 2 {
		t.Fatalf("max streak = %d, want 2", MaxStreak(res))
	}
}

func TestEvaluateStreakResetsAfterRecovery(t *testing.T) {
	e := New(Config{Bins: 10})
	base := uniformValues(1000, 10)
	drifted := make([]float64, 1000)
	for i := range drifted {
		drifted[i] = 0.95
	}
	baseline := Population{Quarter: "2024Q4", Values: map[string][]float64{"ltv": base}}
	q1 := Population{Quarter: "2025Q1", Values: map[string][]float64{"ltv": drifted}}
	q2 := Population{Quarter: "2025Q2", Values: map[string][]float64{"ltv": base}}
	q3 := Population{Quarter: "2025Q3", Values: map[string][]float64{"ltv": drifted}}

	bins := e.Freeze(baseline)
	res, err := e.Evaluate(bins, baseline, []Population{q1, q2, q3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 0, 1}
	for i, cell := range res.Cells {
		if cell.BreachStreak != want[i] {
			t.Fatalf("streaks: got %+v at %d, want %v", cell.BreachStreak, i, want)
		}
	}
	if MaxStreak(res) != 1 {
		t.Fatalf("max streak = %d, want 1", MaxStreak(res))
	}
}

func TestDistributionSharesSumToOne(t *testing.T) {
	e := New(Config{Bins: 10})
	baseline := Population{Quarter: "2024Q4", Values: map[string][]float64{
		"ltv": uniformValues(777, 10),
	}}
	def := e.Freeze(baseline)["ltv"]
	shares := Distribution(baseline.Values["ltv"], def)
	sum := 0.0
	for _, s := range shares {
		sum += s
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("shares sum to %v", sum)
	}
}

func TestFreezeUsesBaselineOnly(t *testing.T) {
	e := New(Config{Bins: 4})
	baseline := Population{Quarter: "2024Q4", Values: map[string][]float64{
		"ltv": {1, 2, 3, 4, 5, 6, 7, 8},
	}}
	bins := e.Freeze(baseline)
	def, ok := bins["ltv"]
	if !ok {
		t.Fatalf("ltv bins missing")
	}
	if len(def.Edges) != 3 {
		t.Fatalf("edges = %v, want 3 interior edges", def.Edges)
	}
}
