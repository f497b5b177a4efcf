package sensitivity

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"LGDPulse/internal/domain/models"
	"LGDPulse/internal/services/predict"
)

// linearModel scores base + sum(coef * feature), which makes every shock
// delta exactly predictable.
type linearModel struct {
	id    string
	base  float64
	coefs map[string]float64
}

func (m *linearModel) ID() string { return m.id }

func (m *linearModel) Predict(features []map[string]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, f := range features {
		v := m.base
		for name, c := range m.coefs {
			v += c * f[name]
		}
		out[i] = v
	}
	return out, nil
}

func makeBaseline(n int, features func(i int) map[string]float64) *models.Snapshot {
	snap := &models.Snapshot{Name: "base", Quarter: "2025Q1", AsOf: time.Now()}
	for i := 0; i < n; i++ {
		snap.Records = append(snap.Records, models.ExposureRecord{
			ID:       fmt.Sprintf("e%d", i),
			EAD:      100,
			Features: features(i),
		})
	}
	return snap
}

func newEngine(cfg Config) *Engine {
	return New(cfg, predict.NewAdapter(42, time.Second))
}

func TestEvaluateTornadoOrdering(t *testing.T) {
	snap := makeBaseline(4, func(i int) map[string]float64 {
		ltv, rate := 0.4, 1.0
		if i%2 == 1 {
			ltv, rate = 0.6, 2.0
		}
		return map[string]float64{"ltv": ltv, "rate": rate}
	})
	m := &linearModel{id: "m1", base: 0.3, coefs: map[string]float64{"ltv": 0.3, "rate": 0.05}}

	res, err := newEngine(Config{}).Evaluate(context.Background(), m, snap, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Drivers) != 2 {
		t.Fatalf("drivers = %d, want 2", len(res.Drivers))
	}
	// ltv has the larger coef * std, so it leads the tornado
	if res.Drivers[0].Driver != "ltv" || res.Drivers[1].Driver != "rate" {
		t.Fatalf("tornado order = %s, %s", res.Drivers[0].Driver, res.Drivers[1].Driver)
	}
	for _, d := range res.Drivers {
		if d.DeltaUp <= 0 || d.DeltaDown >= 0 {
			t.Fatalf("monotone driver %s has deltas %v / %v", d.Driver, d.DeltaUp, d.DeltaDown)
		}
		if d.MaxAbsDelta < math.Abs(d.DeltaUp) || d.MaxAbsDelta < math.Abs(d.DeltaDown) {
			t.Fatalf("max abs delta inconsistent for %s: %+v", d.Driver, d)
		}
		if d.Outlier {
			t.Fatalf("small shock flagged as outlier: %+v", d)
		}
	}
	for _, r := range res.Results {
		if r.Status != models.StatusGreen {
			t.Fatalf("result %s = %s, want green", r.Metric, r.Status)
		}
	}
}

func TestEvaluateZeroVarianceIsNonPerturbable(t *testing.T) {
	snap := makeBaseline(4, func(i int) map[string]float64 {
		ltv := 0.4
		if i%2 == 1 {
			ltv = 0.6
		}
		return map[string]float64{"ltv": ltv, "vintage": 2020}
	})
	m := &linearModel{id: "m1", base: 0.3, coefs: map[string]float64{"ltv": 0.2}}

	res, err := newEngine(Config{}).Evaluate(context.Background(), m, snap, nil)
	if err != nil {
		t.Fatalf("constant driver must not error: %v", err)
	}
	last := res.Drivers[len(res.Drivers)-1]
	if last.Driver != "vintage" || !last.NonPerturbable {
		t.Fatalf("constant driver not flagged non-perturbable: %+v", last)
	}

	var vintage *models.ValidationResult
	for i := range res.Results {
		if res.Results[i].Metric == "sensitivity_vintage" {
			vintage = &res.Results[i]
		}
	}
	if vintage == nil || vintage.Status != models.StatusGreen || vintage.Annotation == "" {
		t.Fatalf("non-perturbable result = %+v", vintage)
	}
}

func TestEvaluateOutlierDriverIsRed(t *testing.T) {
	snap := makeBaseline(4, func(i int) map[string]float64 {
		ltv := 0.2
		if i%2 == 1 {
			ltv = 0.8
		}
		return map[string]float64{"ltv": ltv}
	})
	// std is about 0.346, so the shock delta of 0.4 * std exceeds 0.10
	m := &linearModel{id: "m1", base: 0.1, coefs: map[string]float64{"ltv": 0.4}}

	res, err := newEngine(Config{}).Evaluate(context.Background(), m, snap, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := res.Drivers[0]
	if !d.Outlier || d.MaxAbsDelta <= 0.10 {
		t.Fatalf("expected outlier flag: %+v", d)
	}
	if res.Results[0].Status != models.StatusRed {
		t.Fatalf("outlier result = %s, want red", res.Results[0].Status)
	}
}

func TestEvaluateBoundsClampShocks(t *testing.T) {
	features := func(i int) map[string]float64 {
		ltv := 0.2
		if i%2 == 1 {
			ltv = 0.8
		}
		return map[string]float64{"ltv": ltv}
	}
	m := &linearModel{id: "m1", base: 0.3, coefs: map[string]float64{"ltv": 0.2}}

	free, err := newEngine(Config{}).Evaluate(context.Background(), m, makeBaseline(4, features), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	max := 0.9
	bounded, err := newEngine(Config{
		Bounds: map[string]models.FeatureBound{"ltv": {Max: &max}},
	}).Evaluate(context.Background(), m, makeBaseline(4, features), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the cap only bites on the upward shock
	if bounded.Drivers[0].DeltaUp >= free.Drivers[0].DeltaUp {
		t.Fatalf("bound did not clamp upward shock: %v vs %v",
			bounded.Drivers[0].DeltaUp, free.Drivers[0].DeltaUp)
	}
	if math.Abs(bounded.Drivers[0].DeltaDown-free.Drivers[0].DeltaDown) > 1e-12 {
		t.Fatalf("downward shock changed under upper bound: %v vs %v",
			bounded.Drivers[0].DeltaDown, free.Drivers[0].DeltaDown)
	}
}

func TestEvaluateMacroScenarios(t *testing.T) {
	snap := makeBaseline(10, func(i int) map[string]float64 {
		return map[string]float64{"hpi": 1.0}
	})
	m := &linearModel{id: "m1", base: 0.3, coefs: map[string]float64{"hpi": 0.1}}

	scenarios := map[string]map[string]float64{
		"severe":  {"hpi": 0.2},
		"adverse": {"hpi": 0.5},
	}
	res, err := newEngine(Config{}).Evaluate(context.Background(), m, snap, scenarios)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Scenarios) != 2 {
		t.Fatalf("scenarios = %d, want 2", len(res.Scenarios))
	}
	if res.Scenarios[0].Scenario != "adverse" || res.Scenarios[1].Scenario != "severe" {
		t.Fatalf("scenario order: %+v", res.Scenarios)
	}
	adverse := res.Scenarios[0]
	if math.Abs(adverse.BaselineLGD-0.4) > 1e-9 {
		t.Fatalf("baseline lgd = %v, want 0.4", adverse.BaselineLGD)
	}
	if math.Abs(adverse.Shift-(-0.05)) > 1e-9 {
		t.Fatalf("adverse shift = %v, want -0.05", adverse.Shift)
	}
	severe := res.Scenarios[1]
	if math.Abs(severe.Shift-(-0.08)) > 1e-9 {
		t.Fatalf("severe shift = %v, want -0.08", severe.Shift)
	}
}

func TestEvaluateLeavesBaselineUntouched(t *testing.T) {
	snap := makeBaseline(4, func(i int) map[string]float64 {
		ltv := 0.4
		if i%2 == 1 {
			ltv = 0.6
		}
		return map[string]float64{"ltv": ltv}
	})
	m := &linearModel{id: "m1", base: 0.3, coefs: map[string]float64{"ltv": 0.2}}

	if _, err := newEngine(Config{}).Evaluate(context.Background(), m, snap,
		map[string]map[string]float64{"adverse": {"ltv": 0.9}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, rec := range snap.Records {
		want := 0.4
		if i%2 == 1 {
			want = 0.6
		}
		if rec.Features["ltv"] != want {
			t.Fatalf("baseline record %d mutated: %v", i, rec.Features["ltv"])
		}
	}
}
