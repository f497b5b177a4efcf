package calibration

import (
	"math"
	"sort"

	"LGDPulse/internal/domain/models"
	"LGDPulse/pkg/stats"
	"LGDPulse/pkg/util"
)

// Config holds calibration thresholds. Defaults align with the six
// percentage point MAE and three percentage point segment bias acceptance
// criteria.
type Config struct {
	MAEWarn         float64
	MAERed          float64
	BiasWarn        float64
	BiasRed         float64
	MinSegmentCount int
	Bins            int
	// ConfidenceZ is the normal quantile for the back-testing band; 1.96
	// gives the 95% interval.
	ConfidenceZ float64
}

func (c *Config) applyDefaults() {
	if c.MAERed <= 0 {
		c.MAERed = 0.06
	}
	if c.MAEWarn <= 0 {
		c.MAEWarn = 0.8 * c.MAERed
	}
	if c.BiasRed <= 0 {
		c.BiasRed = 0.03
	}
	if c.BiasWarn <= 0 {
		c.BiasWarn = 0.8 * c.BiasRed
	}
	if c.MinSegmentCount <= 0 {
		c.MinSegmentCount = 30
	}
	if c.Bins <= 0 {
		c.Bins = 10
	}
	if c.ConfidenceZ <= 0 {
		c.ConfidenceZ = 1.96
	}
}

// Analyzer compares predicted against realized LGD, overall and by segment
// and period.
type Analyzer struct {
	cfg Config
}

// New creates a calibration analyzer.
func New(cfg Config) *Analyzer {
	cfg.applyDefaults()
	return &Analyzer{cfg: cfg}
}

// pair is one (prediction, realization) observation.
type pair struct {
	predicted float64
	realized  float64
	segment   string
	quarter   string
}

// Evaluate pairs predictions with realized outcomes across the given
// snapshots and produces accuracy metrics, the decile table and the
// back-testing time series. Decile boundaries come from the baseline
// quarter's predicted distribution and are applied identically to every
// period. Benchmarks may be nil, in which case the external comparison is
// omitted.
func (a *Analyzer) Evaluate(modelID, baselineQuarter string, snaps []*models.Snapshot, preds []models.Prediction, benchmarks []models.BenchmarkRow) (*models.CalibrationResult, error) {
	byExposure := make(map[string]models.Prediction, len(preds))
	for _, p := range preds {
		// a later prediction supersedes an earlier one for the same exposure
		if prev, ok := byExposure[p.ExposureID]; !ok || p.AsOf.After(prev.AsOf) {
			byExposure[p.ExposureID] = p
		}
	}

	var pairs []pair
	for _, snap := range snaps {
		for i := range snap.Records {
			rec := &snap.Records[i]
			if !rec.RecoveriesClosed {
				continue
			}
			p, ok := byExposure[rec.ID]
			if !ok {
				continue
			}
			pairs = append(pairs, pair{
				predicted: p.LGD,
				realized:  rec.RealizedLGD,
				segment:   rec.Segment,
				quarter:   snap.Quarter,
			})
		}
	}

	result := &models.CalibrationResult{ModelID: modelID, Pairs: len(pairs)}
	if len(pairs) == 0 {
		result.Results = append(result.Results, models.ValidationResult{
			Metric: "calibration_mae", Value: 0, Threshold: a.cfg.MAERed,
			Status: models.StatusGreen, Annotation: models.AnnotationLowSample,
		})
		return result, nil
	}

	result.MAE, result.Bias = errorMoments(pairs)
	result.Segments = a.segmentMetrics(pairs)
	result.Deciles = a.decileTable(pairs, baselineQuarter)
	result.TimeSeries = a.timeSeries(pairs)
	if len(benchmarks) > 0 {
		result.Benchmark = benchmarkGaps(pairs, benchmarks)
	}
	result.Results = a.buildResults(result)
	return result, nil
}

func errorMoments(pairs []pair) (mae, bias float64) {
	for _, p := range pairs {
		err := p.predicted - p.realized
		mae += math.Abs(err)
		bias += err
	}
	n := float64(len(pairs))
	return mae / n, bias / n
}

func (a *Analyzer) segmentMetrics(pairs []pair) []models.SegmentCalibration {
	grouped := map[string][]pair{}
	for _, p := range pairs {
		grouped[p.segment] = append(grouped[p.segment], p)
	}
	segments := make([]string, 0, len(grouped))
	for s := range grouped {
		segments = append(segments, s)
	}
	sort.Strings(segments)

	out := make([]models.SegmentCalibration, 0, len(segments))
	for _, s := range segments {
		mae, bias := errorMoments(grouped[s])
		out = append(out, models.SegmentCalibration{
			Segment:   s,
			Count:     len(grouped[s]),
			MAE:       mae,
			Bias:      bias,
			LowSample: len(grouped[s]) < a.cfg.MinSegmentCount,
		})
	}
	return out
}

// decileTable bins pairs by predicted LGD using quantile edges from the
// baseline quarter. Boundaries are frozen: every evaluation period is
// bucketed with the same edges.
func (a *Analyzer) decileTable(pairs []pair, baselineQuarter string) []models.CalibrationBin {
	baselinePred := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		if p.quarter == baselineQuarter {
			baselinePred = append(baselinePred, p.predicted)
		}
	}
	if len(baselinePred) == 0 {
		// no pairs in the baseline quarter; fall back to the pooled
		// predicted distribution
		for _, p := range pairs {
			baselinePred = append(baselinePred, p.predicted)
		}
	}
	edges := stats.QuantileEdges(baselinePred, a.cfg.Bins)
	def := models.BinDefinition{Feature: "predicted_lgd", Edges: edges}

	type acc struct {
		pred  float64
		act   float64
		count int
	}
	bins := make([]acc, def.NumBins())
	for _, p := range pairs {
		i := def.BinIndex(p.predicted)
		bins[i].pred += p.predicted
		bins[i].act += p.realized
		bins[i].count++
	}

	out := make([]models.CalibrationBin, 0, len(bins))
	for i, b := range bins {
		row := models.CalibrationBin{Bin: i, Count: b.count}
		if i == 0 {
			row.Lower = 0
		} else {
			row.Lower = edges[i-1]
		}
		if i == len(bins)-1 {
			row.Upper = 1
		} else {
			row.Upper = edges[i]
		}
		if b.count > 0 {
			row.MeanPredicted = b.pred / float64(b.count)
			row.MeanActual = b.act / float64(b.count)
		}
		out = append(out, row)
	}
	return out
}

func (a *Analyzer) timeSeries(pairs []pair) []models.CalibrationPeriod {
	grouped := map[string][]pair{}
	for _, p := range pairs {
		grouped[p.quarter] = append(grouped[p.quarter], p)
	}
	quarters := make([]string, 0, len(grouped))
	for q := range grouped {
		quarters = append(quarters, q)
	}
	sort.Slice(quarters, func(i, j int) bool {
		return util.QuarterIndex(quarters[i]) < util.QuarterIndex(quarters[j])
	})

	out := make([]models.CalibrationPeriod, 0, len(quarters))
	for _, q := range quarters {
		ps := grouped[q]
		realized := make([]float64, len(ps))
		predicted := make([]float64, len(ps))
		for i, p := range ps {
			realized[i] = p.realized
			predicted[i] = p.predicted
		}
		meanRealized := stats.Mean(realized)
		se := 0.0
		if len(ps) > 1 {
			se = stats.StdDev(realized) / math.Sqrt(float64(len(ps)))
		}
		out = append(out, models.CalibrationPeriod{
			Quarter:       q,
			MeanPredicted: stats.Mean(predicted),
			MeanRealized:  meanRealized,
			BandLower:     meanRealized - a.cfg.ConfidenceZ*se,
			BandUpper:     meanRealized + a.cfg.ConfidenceZ*se,
			Count:         len(ps),
		})
	}
	return out
}

func benchmarkGaps(pairs []pair, benchmarks []models.BenchmarkRow) []models.BenchmarkGap {
	realizedBySeg := map[string][]float64{}
	for _, p := range pairs {
		realizedBySeg[p.segment] = append(realizedBySeg[p.segment], p.realized)
	}
	var out []models.BenchmarkGap
	for _, row := range benchmarks {
		realized, ok := realizedBySeg[row.Segment]
		if !ok {
			continue
		}
		portfolio := stats.Mean(realized)
		out = append(out, models.BenchmarkGap{
			Segment:      row.Segment,
			PortfolioLGD: portfolio,
			BenchmarkLGD: row.MeanLGD,
			Gap:          portfolio - row.MeanLGD,
		})
	}
	return out
}

func (a *Analyzer) buildResults(r *models.CalibrationResult) []models.ValidationResult {
	results := []models.ValidationResult{{
		Metric:    "calibration_mae",
		Value:     r.MAE,
		Threshold: a.cfg.MAERed,
		Status:    grade(r.MAE, a.cfg.MAEWarn, a.cfg.MAERed),
	}}
	for _, seg := range r.Segments {
		res := models.ValidationResult{
			Metric:    "calibration_bias",
			Segment:   seg.Segment,
			Value:     seg.Bias,
			Threshold: a.cfg.BiasRed,
			Status:    grade(math.Abs(seg.Bias), a.cfg.BiasWarn, a.cfg.BiasRed),
		}
		if seg.LowSample {
			// below the minimum count the bias flag is not actionable
			res.Status = models.StatusGreen
			res.Annotation = models.AnnotationLowSample
		}
		results = append(results, res)
	}
	return results
}

// grade maps a non-negative metric onto the traffic light.
func grade(v, warn, red float64) models.Status {
	switch {
	case v > red:
		return models.StatusRed
	case v > warn:
		return models.StatusAmber
	default:
		return models.StatusGreen
	}
}
