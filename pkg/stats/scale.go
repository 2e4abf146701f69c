package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler holds frozen per-column centers and spreads.
// Spread is the population standard deviation; a zero spread is stored as 1
// so constant columns map to 0 instead of NaN.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// FitStandardScaler computes center and spread for each column in cols.
func FitStandardScaler(cols [][]float64) (StandardScaler, error) {
	s := StandardScaler{
		Mean: make([]float64, len(cols)),
		Std:  make([]float64, len(cols)),
	}
	for j, col := range cols {
		if len(col) == 0 {
			return StandardScaler{}, errors.New("stats: cannot fit scaler on an empty column")
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if math.IsNaN(mean) || math.IsNaN(std) {
			return StandardScaler{}, errors.New("stats: column contains NaN")
		}
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return s, nil
}

// Width is the number of columns the scaler was fit on.
func (s StandardScaler) Width() int { return len(s.Mean) }

// Scale standardizes value v of column j.
func (s StandardScaler) Scale(j int, v float64) float64 {
	return (v - s.Mean[j]) / s.Std[j]
}

// Transform returns a standardized copy of col using column j's parameters.
func (s StandardScaler) Transform(j int, col []float64) []float64 {
	out := make([]float64, len(col))
	for i, v := range col {
		out[i] = s.Scale(j, v)
	}
	return out
}
