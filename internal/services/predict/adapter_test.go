package predict

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"LGDPulse/internal/domain/models"
)

type stubModel struct {
	id    string
	fn    func([]map[string]float64) ([]float64, error)
	seeds []int64
}

func (m *stubModel) ID() string { return m.id }

func (m *stubModel) Predict(features []map[string]float64) ([]float64, error) {
	return m.fn(features)
}

func (m *stubModel) SetSeed(seed int64) { m.seeds = append(m.seeds, seed) }

func exposures(n int) []models.ExposureRecord {
	out := make([]models.ExposureRecord, n)
	for i := range out {
		out[i] = models.ExposureRecord{
			ID:       fmt.Sprintf("e%d", i),
			Features: map[string]float64{"ltv": 0.5},
			EAD:      100,
		}
	}
	return out
}

func TestScoreClampsToUnitInterval(t *testing.T) {
	m := &stubModel{id: "m1", fn: func(rows []map[string]float64) ([]float64, error) {
		return []float64{-0.2, 0.4, 1.3}, nil
	}}
	a := NewAdapter(42, time.Second)
	set, err := a.Score(context.Background(), m, time.Now(), exposures(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := set.All()
	if got[0].LGD != 0 || got[1].LGD != 0.4 || got[2].LGD != 1 {
		t.Fatalf("clamped scores = %v, %v, %v", got[0].LGD, got[1].LGD, got[2].LGD)
	}
}

func TestScoreShapeMismatchIsContractError(t *testing.T) {
	m := &stubModel{id: "m1", fn: func(rows []map[string]float64) ([]float64, error) {
		return []float64{0.5}, nil
	}}
	a := NewAdapter(42, time.Second)
	_, err := a.Score(context.Background(), m, time.Now(), exposures(3))
	var ce *models.ModelContractError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ModelContractError, got %v", err)
	}
	if ce.ModelID != "m1" {
		t.Fatalf("contract error model = %q", ce.ModelID)
	}
}

func TestScoreNaNIsContractError(t *testing.T) {
	nan := 0.0
	m := &stubModel{id: "m1", fn: func(rows []map[string]float64) ([]float64, error) {
		return []float64{0.5, nan / nan}, nil
	}}
	a := NewAdapter(42, time.Second)
	var ce *models.ModelContractError
	if _, err := a.Score(context.Background(), m, time.Now(), exposures(2)); !errors.As(err, &ce) {
		t.Fatalf("expected ModelContractError, got %v", err)
	}
}

func TestScoreAppliesFixedSeed(t *testing.T) {
	m := &stubModel{id: "m1", fn: func(rows []map[string]float64) ([]float64, error) {
		out := make([]float64, len(rows))
		return out, nil
	}}
	a := NewAdapter(7, time.Second)
	if _, err := a.Score(context.Background(), m, time.Now(), exposures(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Score(context.Background(), m, time.Now(), exposures(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.seeds) != 2 || m.seeds[0] != 7 || m.seeds[1] != 7 {
		t.Fatalf("seeds = %v, want [7 7]", m.seeds)
	}
}

func TestScoreTimeoutIsContractError(t *testing.T) {
	m := &stubModel{id: "slow", fn: func(rows []map[string]float64) ([]float64, error) {
		time.Sleep(200 * time.Millisecond)
		return make([]float64, len(rows)), nil
	}}
	a := NewAdapter(42, 10*time.Millisecond)
	var ce *models.ModelContractError
	if _, err := a.Score(context.Background(), m, time.Now(), exposures(1)); !errors.As(err, &ce) {
		t.Fatalf("expected ModelContractError on timeout, got %v", err)
	}
}

func TestSetIsRestartable(t *testing.T) {
	calls := 0
	m := &stubModel{id: "m1", fn: func(rows []map[string]float64) ([]float64, error) {
		calls++
		return make([]float64, len(rows)), nil
	}}
	a := NewAdapter(42, time.Second)
	set, err := a.Score(context.Background(), m, time.Now(), exposures(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, second := 0, 0
	set.Each(func(models.Prediction) { first++ })
	set.Each(func(models.Prediction) { second++ })
	if first != 5 || second != 5 {
		t.Fatalf("iterations = %d, %d", first, second)
	}
	if calls != 1 {
		t.Fatalf("model scored %d times, want 1", calls)
	}
}
