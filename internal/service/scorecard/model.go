package scorecard

import (
	"fmt"
	"sort"
)

// Model is a fitted linear LGD scorecard: an intercept plus one coefficient
// per feature. Coefficient tables come from the model inventory via config.
// Raw outputs may leave [0,1]; the prediction adapter clamps them.
type Model struct {
	id        string
	intercept float64
	coefs     map[string]float64
}

// New builds a scorecard from a published coefficient table.
func New(id string, intercept float64, coefs map[string]float64) (*Model, error) {
	if id == "" {
		return nil, fmt.Errorf("scorecard: model id is required")
	}
	if len(coefs) == 0 {
		return nil, fmt.Errorf("scorecard %s: coefficient table is empty", id)
	}
	copied := make(map[string]float64, len(coefs))
	for name, c := range coefs {
		copied[name] = c
	}
	return &Model{id: id, intercept: intercept, coefs: copied}, nil
}

func (m *Model) ID() string { return m.id }

// Predict scores one row per exposure. Every coefficient's feature must be
// present in every row; a gap is a contract violation, not a zero.
func (m *Model) Predict(features []map[string]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		v := m.intercept
		for name, c := range m.coefs {
			x, ok := row[name]
			if !ok {
				return nil, fmt.Errorf("scorecard %s: row %d is missing feature %s", m.id, i, name)
			}
			v += c * x
		}
		out[i] = v
	}
	return out, nil
}

// Features lists the coefficient table's feature names, sorted.
func (m *Model) Features() []string {
	names := make([]string, 0, len(m.coefs))
	for name := range m.coefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
