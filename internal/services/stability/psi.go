package stability

import (
	"fmt"
	"math"
	"sort"

	"LGDPulse/internal/domain/models"
	"LGDPulse/pkg/stats"
	"LGDPulse/pkg/util"
)

// Config controls the PSI engine.
type Config struct {
	// Bins is the number of quantile bins frozen from the baseline.
	Bins int

	// Epsilon floors each bin share before the log ratio so empty bins never
	// divide by zero or take log(0).
	Epsilon float64

	// PSIRed is the breach threshold: PSI at or below it is Green, above is
	// Red.
	PSIRed float64
}

func (c *Config) applyDefaults() {
	if c.Bins <= 0 {
		c.Bins = 10
	}
	if c.Epsilon <= 0 {
		c.Epsilon = 1e-4
	}
	if c.PSIRed <= 0 {
		c.PSIRed = 0.10
	}
}

// Population is the per-feature value series of one period.
type Population struct {
	Quarter string
	Values  map[string][]float64
}

// Engine computes distributional drift for model inputs and outputs across
// snapshots.
type Engine struct {
	cfg Config
}

// New creates a PSI engine.
func New(cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{cfg: cfg}
}

// Freeze computes bin definitions from the baseline period only. The
// returned definitions are immutable reference state for the life of a
// monitoring cycle; Evaluate never recomputes them.
func (e *Engine) Freeze(baseline Population) map[string]models.BinDefinition {
	defs := make(map[string]models.BinDefinition, len(baseline.Values))
	for feature, values := range baseline.Values {
		defs[feature] = models.BinDefinition{
			Feature: feature,
			Edges:   stats.QuantileEdges(values, e.cfg.Bins),
		}
	}
	return defs
}

// Distribution buckets values with a frozen definition and returns bin
// shares summing to one. An empty sample yields all-zero shares.
func Distribution(values []float64, def models.BinDefinition) []float64 {
	shares := make([]float64, def.NumBins())
	if len(values) == 0 {
		return shares
	}
	for _, v := range values {
		shares[def.BinIndex(v)]++
	}
	n := float64(len(values))
	for i := range shares {
		shares[i] /= n
	}
	return shares
}

// PSI computes the population stability index between an expected
// (baseline) and actual (current) bin-share vector. Both shares are floored
// at eps before the log ratio. PSI >= 0 always, and equals 0 iff the two
// distributions match exactly on the binning.
func PSI(expected, actual []float64, eps float64) float64 {
	total := 0.0
	for i := range expected {
		e := math.Max(expected[i], eps)
		a := eps
		if i < len(actual) {
			a = math.Max(actual[i], eps)
		}
		total += (a - e) * math.Log(a/e)
	}
	return total
}

// Decompose returns each bin's contribution to the total PSI, sorted
// descending, for the breach waterfall.
func Decompose(expected, actual []float64, eps float64) []models.BinContribution {
	out := make([]models.BinContribution, 0, len(expected))
	for i := range expected {
		e := math.Max(expected[i], eps)
		a := eps
		if i < len(actual) {
			a = math.Max(actual[i], eps)
		}
		out = append(out, models.BinContribution{
			Bin:          i,
			Expected:     expected[i],
			Actual:       actualAt(actual, i),
			Contribution: (a - e) * math.Log(a/e),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Contribution > out[j].Contribution })
	return out
}

func actualAt(actual []float64, i int) float64 {
	if i < len(actual) {
		return actual[i]
	}
	return 0
}

// Evaluate computes the (feature x period) PSI matrix against the frozen
// baseline bins, tracks consecutive-quarter breach streaks per feature, and
// attaches the driver decomposition to breached cells.
func (e *Engine) Evaluate(bins map[string]models.BinDefinition, baseline Population, periods []Population) (*models.StabilityResult, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("stability: no frozen bins")
	}

	ordered := make([]Population, len(periods))
	copy(ordered, periods)
	sort.Slice(ordered, func(i, j int) bool {
		return util.QuarterIndex(ordered[i].Quarter) < util.QuarterIndex(ordered[j].Quarter)
	})

	features := make([]string, 0, len(bins))
	for f := range bins {
		features = append(features, f)
	}
	sort.Strings(features)

	result := &models.StabilityResult{
		BaselineQuarter: baseline.Quarter,
		Bins:            bins,
	}

	for _, feature := range features {
		def := bins[feature]
		expected := Distribution(baseline.Values[feature], def)
		streak := 0
		lastBreached := ""
		for _, period := range ordered {
			values, ok := period.Values[feature]
			if !ok {
				continue
			}
			actual := Distribution(values, def)
			psi := PSI(expected, actual, e.cfg.Epsilon)

			cell := models.FeaturePSI{
				Feature: feature,
				Quarter: period.Quarter,
				PSI:     psi,
				Status:  models.StatusGreen,
			}
			if psi > e.cfg.PSIRed {
				cell.Status = models.StatusRed
				cell.Decomposition = Decompose(expected, actual, e.cfg.Epsilon)
				if lastBreached != "" && util.Consecutive(lastBreached, period.Quarter) {
					streak++
				} else {
					streak = 1
				}
				lastBreached = period.Quarter
			} else {
				streak = 0
				lastBreached = ""
			}
			cell.BreachStreak = streak
			result.Cells = append(result.Cells, cell)
		}
	}

	// one validation result per feature on the latest evaluated quarter
	latestByFeature := map[string]models.FeaturePSI{}
	for _, cell := range result.Cells {
		prev, ok := latestByFeature[cell.Feature]
		if !ok || util.QuarterIndex(cell.Quarter) > util.QuarterIndex(prev.Quarter) {
			latestByFeature[cell.Feature] = cell
		}
	}
	for _, feature := range features {
		cell, ok := latestByFeature[feature]
		if !ok {
			continue
		}
		result.Results = append(result.Results, models.ValidationResult{
			Metric:    "psi_" + feature,
			Segment:   cell.Quarter,
			Value:     cell.PSI,
			Threshold: e.cfg.PSIRed,
			Status:    cell.Status,
		})
	}
	return result, nil
}

// MaxStreak returns the largest trailing breach streak across features,
// feeding the two-consecutive-quarter governance rule.
func MaxStreak(result *models.StabilityResult) int {
	latest := map[string]models.FeaturePSI{}
	for _, cell := range result.Cells {
		prev, ok := latest[cell.Feature]
		if !ok || util.QuarterIndex(cell.Quarter) > util.QuarterIndex(prev.Quarter) {
			latest[cell.Feature] = cell
		}
	}
	max := 0
	for _, cell := range latest {
		if cell.BreachStreak > max {
			max = cell.BreachStreak
		}
	}
	return max
}
