package override

import (
	"sort"

	"LGDPulse/internal/domain/models"
	"LGDPulse/pkg/stats"
)

// Config holds the override volume thresholds expressed as a fraction of
// total predictions.
type Config struct {
	VolumeWarn float64
	VolumeRed  float64
}

func (c *Config) applyDefaults() {
	if c.VolumeRed <= 0 {
		c.VolumeRed = 0.10
	}
	if c.VolumeWarn <= 0 {
		c.VolumeWarn = 0.5 * c.VolumeRed
	}
}

// Reconciler resolves raw override records into the active set and the
// per-reason statistics behind the override report.
type Reconciler struct {
	cfg Config
}

// New creates an override reconciler.
func New(cfg Config) *Reconciler {
	cfg.applyDefaults()
	return &Reconciler{cfg: cfg}
}

// Reconcile picks the latest override per exposure as active and sends every
// superseded record to the audit trail in arrival order. Records with a
// reason outside the documented enumeration are re-labelled residual, never
// dropped; active plus audited always equals the input count.
// totalPredictions sizes the volume share and must cover the full scored
// portfolio of the cycle.
func (r *Reconciler) Reconcile(records []models.OverrideRecord, totalPredictions int) *models.OverrideResult {
	active := make(map[string]models.OverrideRecord, len(records))
	var trail []models.OverrideRecord
	for _, rec := range records {
		if !rec.Reason.Valid() {
			rec.Reason = models.ReasonResidual
		}
		prev, ok := active[rec.ExposureID]
		if !ok {
			active[rec.ExposureID] = rec
			continue
		}
		if rec.Timestamp.After(prev.Timestamp) {
			trail = append(trail, prev)
			active[rec.ExposureID] = rec
		} else {
			trail = append(trail, rec)
		}
	}

	result := &models.OverrideResult{
		TotalRecords: len(records),
		Active:       len(active),
		AuditTrail:   trail,
	}
	if totalPredictions > 0 {
		result.VolumeShare = float64(len(active)) / float64(totalPredictions)
	}
	result.ByReason = r.reasonStats(active, totalPredictions)
	result.Results = r.buildResults(result)
	return result
}

func (r *Reconciler) reasonStats(active map[string]models.OverrideRecord, totalPredictions int) []models.ReasonStats {
	grouped := map[models.ReasonCode][]models.OverrideRecord{}
	for _, rec := range active {
		grouped[rec.Reason] = append(grouped[rec.Reason], rec)
	}
	reasons := make([]models.ReasonCode, 0, len(grouped))
	for reason := range grouped {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	out := make([]models.ReasonStats, 0, len(reasons))
	for _, reason := range reasons {
		recs := grouped[reason]
		modelLGD := make([]float64, len(recs))
		overrideLGD := make([]float64, len(recs))
		for i, rec := range recs {
			modelLGD[i] = rec.ModelLGD
			overrideLGD[i] = rec.OverrideLGD
		}
		rs := models.ReasonStats{
			Reason:      reason,
			Count:       len(recs),
			ModelLGD:    summary(modelLGD),
			OverrideLGD: summary(overrideLGD),
		}
		if totalPredictions > 0 {
			rs.VolumeShare = float64(len(recs)) / float64(totalPredictions)
		}
		out = append(out, rs)
	}
	return out
}

func summary(xs []float64) models.LGDSummary {
	five := stats.Summarize(xs)
	return models.LGDSummary{
		Min:    five.Min,
		Q1:     five.Q1,
		Median: five.Median,
		Q3:     five.Q3,
		Max:    five.Max,
		Mean:   stats.Mean(xs),
	}
}

func (r *Reconciler) buildResults(result *models.OverrideResult) []models.ValidationResult {
	status := models.StatusGreen
	if result.VolumeShare > r.cfg.VolumeRed {
		status = models.StatusRed
	} else if result.VolumeShare > r.cfg.VolumeWarn {
		status = models.StatusAmber
	}
	out := []models.ValidationResult{{
		Metric:    "override_volume",
		Value:     result.VolumeShare,
		Threshold: r.cfg.VolumeRed,
		Status:    status,
	}}
	for _, rs := range result.ByReason {
		if rs.Reason != models.ReasonResidual {
			continue
		}
		// undocumented reason codes are a policy finding on their own
		out = append(out, models.ValidationResult{
			Metric:    "override_residual_reasons",
			Value:     float64(rs.Count),
			Threshold: 0,
			Status:    models.StatusAmber,
		})
	}
	return out
}
