package dataprep

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// ParseAmount parses a monetary cell exactly. Blank or malformed text
// yields NaN so it can be imputed later.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return math.NaN()
	}
	return d.InexactFloat64()
}

// NonMissingMean returns the mean of the non-NaN entries and how many there were.
func NonMissingMean(col []float64) (float64, int) {
	vals := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}
	return stat.Mean(vals, nil), len(vals)
}

// ImputeConstant returns a copy of col with NaN entries replaced by fill,
// plus the number of replaced cells.
func ImputeConstant(col []float64, fill float64) ([]float64, int) {
	out := make([]float64, len(col))
	n := 0
	for i, v := range col {
		if math.IsNaN(v) {
			out[i] = fill
			n++
			continue
		}
		out[i] = v
	}
	return out, n
}
