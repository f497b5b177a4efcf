package models

// BinDefinition is an ordered, non-overlapping binning of one variable.
// Edges are computed from the baseline period only and frozen for the life
// of a monitoring cycle; comparison periods reuse the same definition so
// that PSI stays meaningful. Either Edges (numeric) or Levels (categorical)
// is set, never both.
type BinDefinition struct {
	Feature string    `json:"feature"`
	Edges   []float64 `json:"edges,omitempty"`  // interior edges; n edges make n+1 bins
	Levels  []string  `json:"levels,omitempty"` // categorical levels, last bin is "other"
}

// NumBins returns the number of bins the definition produces.
func (b BinDefinition) NumBins() int {
	if len(b.Levels) > 0 {
		return len(b.Levels) + 1 // trailing "other" bucket
	}
	return len(b.Edges) + 1
}

// BinIndex places a numeric value into its bin. Values on an edge go to the
// lower bin so that the mapping is stable across periods.
func (b BinDefinition) BinIndex(v float64) int {
	i := 0
	for i < len(b.Edges) && v > b.Edges[i] {
		i++
	}
	return i
}

// LevelIndex places a categorical value; unknown levels land in the final
// "other" bucket.
func (b BinDefinition) LevelIndex(v string) int {
	for i, l := range b.Levels {
		if l == v {
			return i
		}
	}
	return len(b.Levels)
}
