package model

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// Classifier is a binary classifier over a dense feature matrix with labels
// in {0, 1}. Trained state round-trips through MarshalBinary.
type Classifier interface {
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) []int
	PredictProba(X mat.Matrix) []float64 // returns p(y=1)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Importancer is implemented by classifiers that can rank their inputs.
type Importancer interface {
	FeatureImportances() []float64
}

// DefaultName is the classifier used when the configuration names none.
const DefaultName = "gradient_boosting"

// DefaultSeed seeds every classifier whose params omit random_state.
const DefaultSeed int64 = 42

// Factory builds an untrained classifier from an open parameter map.
type Factory func(p *Params) (Classifier, error)

var registry = map[string]Factory{
	"gradient_boosting":   newGradientBoostingFromParams,
	"random_forest":       newRandomForestFromParams,
	"decision_tree":       newDecisionTreeFromParams,
	"logistic_regression": newLogisticRegressionFromParams,
}

// Names lists registered classifiers in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New builds the named classifier. Known keys in params are applied, unknown
// keys are logged and ignored, and a wrongly typed key is a config error.
func New(name string, params map[string]any, logger *log.Logger) (Classifier, error) {
	if name == "" {
		name = DefaultName
	}
	factory, ok := registry[name]
	if !ok {
		return nil, errs.Configf("model.name", "unknown classifier %q (known: %v)", name, Names())
	}
	p := newParams(params)
	clf, err := factory(p)
	if err != nil {
		return nil, err
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	for _, k := range p.Unused() {
		logger.Printf("model %s: ignoring unknown parameter %q", name, k)
	}
	return clf, nil
}

// Trainer fits a registered classifier with fixed hyperparameters.
type Trainer struct {
	Name   string
	Params map[string]any
	Logger *log.Logger
}

// Train builds a fresh classifier and fits it on X and y.
func (t Trainer) Train(X mat.Matrix, y []int) (Classifier, error) {
	clf, err := New(t.Name, t.Params, t.Logger)
	if err != nil {
		return nil, err
	}
	if err := clf.Fit(X, y); err != nil {
		return nil, fmt.Errorf("train %s: %w", t.name(), err)
	}
	return clf, nil
}

func (t Trainer) name() string {
	if t.Name == "" {
		return DefaultName
	}
	return t.Name
}

// rowsOf copies X into row slices, the layout the tree builders work on.
func rowsOf(X mat.Matrix) [][]float64 {
	r, _ := X.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, X)
	}
	return out
}

func checkXY(prefix string, X mat.Matrix, y []int, binary bool) error {
	if X == nil {
		return errors.New(prefix + ": empty X")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.New(prefix + ": empty X")
	}
	if len(y) != r {
		return errors.New(prefix + ": X and y length mismatch")
	}
	if binary {
		for _, v := range y {
			if v != 0 && v != 1 {
				return fmt.Errorf("%s: label %d is not 0 or 1", prefix, v)
			}
		}
	}
	return nil
}

func thresholdProba(proba []float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}
