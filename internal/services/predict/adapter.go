package predict

import (
	"context"
	"fmt"
	"math"
	"time"

	"LGDPulse/internal/domain/models"
	domsvc "LGDPulse/internal/domain/service"
	"LGDPulse/pkg/stats"
)

// Adapter wraps a loaded scoring model behind a uniform contract: it builds
// the feature table, applies the fixed evaluation seed, enforces the output
// contract and clamps estimates to [0,1]. It is the sole caller of the
// model boundary.
type Adapter struct {
	seed    int64
	timeout time.Duration
}

// NewAdapter creates an adapter with a fixed evaluation seed and a scoring
// timeout. The timeout is the only externally imposed latency in the
// analytics path; on expiry scoring fails as a contract violation instead
// of hanging.
func NewAdapter(seed int64, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{seed: seed, timeout: timeout}
}

// Set is an immutable, restartable collection of predictions: the model is
// scored exactly once and the set can be iterated any number of times
// without side effects.
type Set struct {
	modelID string
	asOf    time.Time
	preds   []models.Prediction
}

// Len returns the number of predictions.
func (s *Set) Len() int { return len(s.preds) }

// All returns the predictions in exposure order. Callers must not mutate
// the returned slice.
func (s *Set) All() []models.Prediction { return s.preds }

// Each calls fn for every prediction in order.
func (s *Set) Each(fn func(models.Prediction)) {
	for _, p := range s.preds {
		fn(p)
	}
}

// ByExposure indexes the set by exposure identifier.
func (s *Set) ByExposure() map[string]models.Prediction {
	out := make(map[string]models.Prediction, len(s.preds))
	for _, p := range s.preds {
		out[p.ExposureID] = p
	}
	return out
}

// Score produces one prediction per exposure. Outputs are clamped to [0,1];
// a shape mismatch, a NaN/Inf estimate or a scoring timeout is a
// ModelContractError.
func (a *Adapter) Score(ctx context.Context, m domsvc.Model, asOf time.Time, exposures []models.ExposureRecord) (*Set, error) {
	if m == nil {
		return nil, models.NewModelContractError("", "model is nil", nil)
	}

	table := make([]map[string]float64, len(exposures))
	for i := range exposures {
		table[i] = exposures[i].Features
	}

	if seedable, ok := m.(domsvc.Seedable); ok {
		seedable.SetSeed(a.seed)
	}

	out, err := a.predictWithTimeout(ctx, m, table)
	if err != nil {
		return nil, err
	}
	if len(out) != len(exposures) {
		return nil, models.NewModelContractError(m.ID(),
			fmt.Sprintf("expected %d scores, got %d", len(exposures), len(out)), nil)
	}

	preds := make([]models.Prediction, len(exposures))
	for i, lgd := range out {
		if math.IsNaN(lgd) || math.IsInf(lgd, 0) {
			return nil, models.NewModelContractError(m.ID(),
				fmt.Sprintf("non-finite score for exposure %s", exposures[i].ID), nil)
		}
		preds[i] = models.Prediction{
			ExposureID: exposures[i].ID,
			ModelID:    m.ID(),
			LGD:        stats.Clamp01(lgd),
			AsOf:       asOf,
			Features:   exposures[i].Features,
		}
	}
	return &Set{modelID: m.ID(), asOf: asOf, preds: preds}, nil
}

// predictWithTimeout runs the scoring call under the adapter timeout so a
// stuck model surfaces as a contract error rather than a hang.
func (a *Adapter) predictWithTimeout(ctx context.Context, m domsvc.Model, table []map[string]float64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type scored struct {
		out []float64
		err error
	}
	done := make(chan scored, 1)
	go func() {
		out, err := m.Predict(table)
		done <- scored{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, models.NewModelContractError(m.ID(), "scoring timed out", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, models.NewModelContractError(m.ID(), "scoring failed", res.err)
		}
		return res.out, nil
	}
}
