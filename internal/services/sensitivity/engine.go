package sensitivity

import (
	"context"
	"math"
	"sort"

	"LGDPulse/internal/domain/models"
	domsvc "LGDPulse/internal/domain/service"
	"LGDPulse/internal/services/predict"
	"LGDPulse/pkg/stats"
)

// Config controls the sensitivity engine.
type Config struct {
	// DeltaWarn / DeltaRed grade the absolute LGD delta of a single driver
	// shock; a driver past DeltaRed is an outlier flag for governance.
	DeltaWarn float64
	DeltaRed  float64

	// Bounds are natural feature domains. Perturbed values are clamped back
	// inside before scoring rather than allowed out of domain.
	Bounds map[string]models.FeatureBound
}

func (c *Config) applyDefaults() {
	if c.DeltaRed <= 0 {
		c.DeltaRed = 0.10
	}
	if c.DeltaWarn <= 0 {
		c.DeltaWarn = 0.5 * c.DeltaRed
	}
}

// Engine perturbs model inputs and measures output elasticity. All shocks
// are applied on the raw feature scale and re-scored through the prediction
// adapter.
type Engine struct {
	cfg     Config
	adapter *predict.Adapter
}

// New creates a sensitivity engine.
func New(cfg Config, adapter *predict.Adapter) *Engine {
	cfg.applyDefaults()
	return &Engine{cfg: cfg, adapter: adapter}
}

// Evaluate runs both modes: per-driver +/- one standard deviation shocks
// (tornado) and named macro scenarios (PIT shift versus the TTC baseline).
// Scenarios may be nil when the macro source is unavailable; the scenario
// section is then simply absent.
func (e *Engine) Evaluate(ctx context.Context, m domsvc.Model, baseline *models.Snapshot, scenarios map[string]map[string]float64) (*models.SensitivityResult, error) {
	base, err := e.adapter.Score(ctx, m, baseline.AsOf, baseline.Records)
	if err != nil {
		return nil, err
	}
	baseMean := meanLGD(base)

	drivers, err := e.driverShocks(ctx, m, baseline, baseMean)
	if err != nil {
		return nil, err
	}

	result := &models.SensitivityResult{ModelID: m.ID(), Drivers: drivers}
	if len(scenarios) > 0 {
		shifts, err := e.macroScenarios(ctx, m, baseline, baseMean, scenarios)
		if err != nil {
			return nil, err
		}
		result.Scenarios = shifts
	}
	result.Results = e.buildResults(result)
	return result, nil
}

// driverShocks perturbs each driver by one baseline standard deviation in
// both directions, holding all other variables fixed. Zero-variance drivers
// are skipped and flagged non-perturbable rather than erroring.
func (e *Engine) driverShocks(ctx context.Context, m domsvc.Model, baseline *models.Snapshot, baseMean float64) ([]models.DriverSensitivity, error) {
	out := make([]models.DriverSensitivity, 0)
	for _, driver := range baseline.FeatureNames() {
		std := stats.StdDev(baseline.FeatureValues(driver))
		if std == 0 {
			out = append(out, models.DriverSensitivity{Driver: driver, NonPerturbable: true})
			continue
		}

		up, err := e.scoreShocked(ctx, m, baseline, driver, +std)
		if err != nil {
			return nil, err
		}
		down, err := e.scoreShocked(ctx, m, baseline, driver, -std)
		if err != nil {
			return nil, err
		}

		d := models.DriverSensitivity{
			Driver:    driver,
			Std:       std,
			DeltaUp:   up - baseMean,
			DeltaDown: down - baseMean,
		}
		d.MaxAbsDelta = math.Max(math.Abs(d.DeltaUp), math.Abs(d.DeltaDown))
		d.Outlier = d.MaxAbsDelta > e.cfg.DeltaRed
		out = append(out, d)
	}

	// tornado ordering: largest magnitude first, non-perturbable last
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NonPerturbable != out[j].NonPerturbable {
			return !out[i].NonPerturbable
		}
		return out[i].MaxAbsDelta > out[j].MaxAbsDelta
	})
	return out, nil
}

func (e *Engine) scoreShocked(ctx context.Context, m domsvc.Model, baseline *models.Snapshot, driver string, shift float64) (float64, error) {
	shocked := e.shockRecords(baseline.Records, func(features map[string]float64) {
		if v, ok := features[driver]; ok {
			features[driver] = e.clampToBound(driver, v+shift)
		}
	})
	set, err := e.adapter.Score(ctx, m, baseline.AsOf, shocked)
	if err != nil {
		return 0, err
	}
	return meanLGD(set), nil
}

// macroScenarios applies each scenario's shocked macro-variable values and
// reports the resulting point-in-time LGD shift versus the through-the-cycle
// baseline mean.
func (e *Engine) macroScenarios(ctx context.Context, m domsvc.Model, baseline *models.Snapshot, baseMean float64, scenarios map[string]map[string]float64) ([]models.ScenarioShift, error) {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.ScenarioShift, 0, len(names))
	for _, name := range names {
		shocks := scenarios[name]
		shocked := e.shockRecords(baseline.Records, func(features map[string]float64) {
			for macro, value := range shocks {
				features[macro] = e.clampToBound(macro, value)
			}
		})
		set, err := e.adapter.Score(ctx, m, baseline.AsOf, shocked)
		if err != nil {
			return nil, err
		}
		pit := meanLGD(set)
		out = append(out, models.ScenarioShift{
			Scenario:    name,
			BaselineLGD: baseMean,
			ShockedLGD:  pit,
			Shift:       pit - baseMean,
		})
	}
	return out, nil
}

// shockRecords deep-copies the records before mutating features so the
// baseline snapshot stays immutable.
func (e *Engine) shockRecords(records []models.ExposureRecord, mutate func(map[string]float64)) []models.ExposureRecord {
	out := make([]models.ExposureRecord, len(records))
	for i := range records {
		out[i] = records[i]
		features := make(map[string]float64, len(records[i].Features))
		for k, v := range records[i].Features {
			features[k] = v
		}
		mutate(features)
		out[i].Features = features
	}
	return out
}

func (e *Engine) clampToBound(feature string, v float64) float64 {
	if bound, ok := e.cfg.Bounds[feature]; ok {
		return bound.Clamp(v)
	}
	return v
}

func (e *Engine) buildResults(r *models.SensitivityResult) []models.ValidationResult {
	var out []models.ValidationResult
	for _, d := range r.Drivers {
		if d.NonPerturbable {
			out = append(out, models.ValidationResult{
				Metric:     "sensitivity_" + d.Driver,
				Value:      0,
				Threshold:  e.cfg.DeltaRed,
				Status:     models.StatusGreen,
				Annotation: "non-perturbable",
			})
			continue
		}
		status := models.StatusGreen
		if d.MaxAbsDelta > e.cfg.DeltaRed {
			status = models.StatusRed
		} else if d.MaxAbsDelta > e.cfg.DeltaWarn {
			status = models.StatusAmber
		}
		out = append(out, models.ValidationResult{
			Metric:    "sensitivity_" + d.Driver,
			Value:     d.MaxAbsDelta,
			Threshold: e.cfg.DeltaRed,
			Status:    status,
		})
	}
	return out
}

func meanLGD(set *predict.Set) float64 {
	if set.Len() == 0 {
		return 0
	}
	sum := 0.0
	set.Each(func(p models.Prediction) { sum += p.LGD })
	return sum / float64(set.Len())
}
