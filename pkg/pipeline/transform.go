package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/stats"
)

// ColumnTransformer standardizes the declared numeric columns and passes
// every other column through unchanged.
type ColumnTransformer struct {
	Numeric []string
}

// TransformState is the frozen result of ColumnTransformer.Fit.
type TransformState struct {
	Numeric     []string // scaled, in declared order
	Passthrough []string // remaining columns, in fit-time frame order
	Scaler      stats.StandardScaler
}

// Columns is the output column order: scaled columns, then pass-through.
func (s TransformState) Columns() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Passthrough))
	out = append(out, s.Numeric...)
	return append(out, s.Passthrough...)
}

// Fit learns scaling parameters from train, which must already be fully
// numeric (categorical columns encoded).
func (c ColumnTransformer) Fit(train *data.Frame) (TransformState, error) {
	state := TransformState{Numeric: append([]string(nil), c.Numeric...)}
	declared := make(map[string]bool, len(c.Numeric))
	cols := make([][]float64, 0, len(c.Numeric))
	for _, name := range c.Numeric {
		if declared[name] {
			return TransformState{}, errs.Configf("features.numerical", "column %q listed twice", name)
		}
		declared[name] = true
		vals, err := numeric(train, name)
		if err != nil {
			return TransformState{}, err
		}
		cols = append(cols, vals)
	}
	for _, col := range train.Columns() {
		if declared[col.Name] {
			continue
		}
		if _, err := numeric(train, col.Name); err != nil {
			return TransformState{}, err
		}
		state.Passthrough = append(state.Passthrough, col.Name)
	}

	scaler, err := stats.FitStandardScaler(cols)
	if err != nil {
		return TransformState{}, errs.Schemaf("", "fit scaler: %v", err)
	}
	state.Scaler = scaler
	return state, nil
}

// Apply builds the feature matrix in fit-time column order, whatever the
// order of f. Missing or non-numeric required columns are schema errors;
// extra columns are ignored.
func (s TransformState) Apply(f *data.Frame) (*mat.Dense, error) {
	if f.Len() == 0 {
		return nil, errs.Schemaf("", "no rows to transform")
	}
	names := s.Columns()
	X := mat.NewDense(f.Len(), len(names), nil)
	for j, name := range names {
		vals, err := numeric(f, name)
		if err != nil {
			return nil, err
		}
		if j < len(s.Numeric) {
			vals = s.Scaler.Transform(j, vals)
		}
		X.SetCol(j, vals)
	}
	return X, nil
}

func numeric(f *data.Frame, name string) ([]float64, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, errs.Schemaf(name, "required column is missing")
	}
	if col.Kind != data.Numeric {
		return nil, errs.Schemaf(name, "want numeric column, got %v", col.Kind)
	}
	for _, v := range col.Floats {
		if math.IsNaN(v) {
			return nil, errs.Schemaf(name, "column has missing values")
		}
	}
	return col.Floats, nil
}
