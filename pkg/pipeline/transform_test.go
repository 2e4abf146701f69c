package pipeline

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

func mustFrame(t *testing.T, cols ...data.Column) *data.Frame {
	t.Helper()
	f, err := data.NewFrame(cols...)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

func encodedFrame(t *testing.T) *data.Frame {
	return mustFrame(t,
		data.NumericColumn("Contract", []float64{0, 1, 0, 2, 1, 0, 2, 1}),
		data.NumericColumn("tenure", []float64{1, 34, 2, 45, 8, 22, 10, 28}),
		data.NumericColumn("MonthlyCharges", []float64{29.85, 56.95, 53.85, 42.3, 70.7, 99.65, 89.1, 29.75}),
		data.NumericColumn("TotalCharges", []float64{29.85, 1889.5, 108.15, 1840.75, 151.65, 820.5, 1949.4, 301.9}),
	)
}

var numericCols = []string{"tenure", "MonthlyCharges", "TotalCharges"}

func TestFitStandardizesTrainRows(t *testing.T) {
	f := encodedFrame(t)
	train := f.Take([]int{0, 1, 2, 3, 4})
	test := f.Take([]int{5, 6, 7})

	state, err := ColumnTransformer{Numeric: numericCols}.Fit(train)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	want := []string{"tenure", "MonthlyCharges", "TotalCharges", "Contract"}
	for i, n := range state.Columns() {
		if n != want[i] {
			t.Fatalf("column order = %v, want %v", state.Columns(), want)
		}
	}

	X, err := state.Apply(train)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for j := range numericCols {
		mean, std := stat.PopMeanStdDev(mat.Col(nil, j, X), nil)
		if math.Abs(mean) > 1e-9 || math.Abs(std-1) > 1e-9 {
			t.Fatalf("train column %d: mean=%v std=%v", j, mean, std)
		}
	}
	if mat.Col(nil, 3, X)[1] != 1 {
		t.Fatal("pass-through column was modified")
	}

	Xt, err := state.Apply(test)
	if err != nil {
		t.Fatalf("Apply test: %v", err)
	}
	mean := stat.Mean(mat.Col(nil, 0, Xt), nil)
	if math.Abs(mean) < 1e-6 {
		t.Fatal("test subset looks refit: tenure mean is 0")
	}
	if state.Scaler.Mean[0] != stat.Mean([]float64{1, 34, 2, 45, 8}, nil) {
		t.Fatalf("scaler mean %v not computed from train rows", state.Scaler.Mean[0])
	}
}

func TestApplyIgnoresInputColumnOrder(t *testing.T) {
	f := encodedFrame(t)
	state, err := ColumnTransformer{Numeric: numericCols}.Fit(f)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	permuted, err := f.Select("TotalCharges", "Contract", "MonthlyCharges", "tenure")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	extra, err := permuted.With(data.CategoricalColumn("note", make([]string, f.Len())))
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	a, err := state.Apply(f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b, err := state.Apply(extra)
	if err != nil {
		t.Fatalf("Apply permuted: %v", err)
	}
	if !mat.Equal(a, b) {
		t.Fatal("permuted input produced a different matrix")
	}
}

func TestTransformSchemaErrors(t *testing.T) {
	f := encodedFrame(t)
	state, err := ColumnTransformer{Numeric: numericCols}.Fit(f)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := state.Apply(f.Drop("MonthlyCharges")); !errors.Is(err, errs.ErrSchema) {
		t.Fatalf("missing scaled column: %v", err)
	}
	if _, err := state.Apply(f.Drop("Contract")); !errors.Is(err, errs.ErrSchema) {
		t.Fatalf("missing pass-through column: %v", err)
	}
	text, _ := f.With(data.CategoricalColumn("tenure", make([]string, f.Len())))
	if _, err := state.Apply(text); !errors.Is(err, errs.ErrSchema) {
		t.Fatalf("non-numeric column: %v", err)
	}
	if _, err := (ColumnTransformer{Numeric: []string{"age"}}).Fit(f); !errors.Is(err, errs.ErrSchema) {
		t.Fatalf("undeclared numeric column: %v", err)
	}
	if _, err := state.Apply(f.Take(nil)); !errors.Is(err, errs.ErrSchema) {
		t.Fatalf("empty frame: %v", err)
	}
	raw, _ := f.With(data.CategoricalColumn("gender", make([]string, f.Len())))
	if _, err := (ColumnTransformer{Numeric: numericCols}).Fit(raw); !errors.Is(err, errs.ErrSchema) {
		t.Fatalf("unencoded column: %v", err)
	}
}
