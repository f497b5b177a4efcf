package models

import (
	"math"
	"sort"
	"time"
)

// RecoveryCashflow is a single realized recovery on a defaulted exposure.
type RecoveryCashflow struct {
	Amount     float64   `json:"amount"`
	ReceivedAt time.Time `json:"received_at"`
}

// ExposureRecord is one defaulted exposure inside a snapshot. Records are
// immutable once recoveries close; analytics never mutate them.
type ExposureRecord struct {
	ID               string             `json:"id" validate:"required"`
	Segment          string             `json:"segment"`
	Features         map[string]float64 `json:"features"`
	Categoricals     map[string]string  `json:"categoricals,omitempty"`
	EAD              float64            `json:"ead" validate:"gte=0"`
	Defaulted        bool               `json:"defaulted"`
	DefaultDate      time.Time          `json:"default_date"`
	Recoveries       []RecoveryCashflow `json:"recoveries,omitempty"`
	RealizedLGD      float64            `json:"realized_lgd" validate:"gte=0,lte=1"`
	RecoveriesClosed bool               `json:"recoveries_closed"`
}

// Feature returns the named numeric feature and whether it is present.
func (e *ExposureRecord) Feature(name string) (float64, bool) {
	v, ok := e.Features[name]
	return v, ok
}

// RealizedFromRecoveries derives the realized LGD as 1 - PV(recoveries)/EAD,
// discounting each cash flow back to the default date at the given annual
// rate. Returns false if recoveries are still open or EAD is non-positive.
func (e *ExposureRecord) RealizedFromRecoveries(annualRate float64) (float64, bool) {
	if !e.RecoveriesClosed || e.EAD <= 0 {
		return 0, false
	}
	pv := 0.0
	for _, cf := range e.Recoveries {
		years := cf.ReceivedAt.Sub(e.DefaultDate).Hours() / (24 * 365.25)
		if years < 0 {
			years = 0
		}
		pv += cf.Amount / math.Pow(1+annualRate, years)
	}
	lgd := 1 - pv/e.EAD
	if lgd < 0 {
		lgd = 0
	}
	if lgd > 1 {
		lgd = 1
	}
	return lgd, true
}

// Snapshot is a named, quarter-indexed portfolio state. The baseline
// snapshot is fixed for the life of a monitoring cycle.
type Snapshot struct {
	Name    string           `json:"name"`
	Quarter string           `json:"quarter"` // YYYYQ, e.g. "2025Q4"
	AsOf    time.Time        `json:"as_of"`
	Records []ExposureRecord `json:"records"`
}

// FeatureNames returns the sorted union of numeric feature names across records.
func (s *Snapshot) FeatureNames() []string {
	seen := map[string]bool{}
	for i := range s.Records {
		for name := range s.Records[i].Features {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeatureValues collects all present values of one feature across records.
func (s *Snapshot) FeatureValues(name string) []float64 {
	out := make([]float64, 0, len(s.Records))
	for i := range s.Records {
		if v, ok := s.Records[i].Features[name]; ok {
			out = append(out, v)
		}
	}
	return out
}
