package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/loss"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/optim"
)

// LogisticRegression (binary) with sigmoid, trained by full-batch gradient
// descent on binary cross-entropy with optional L2 decay.
type LogisticRegression struct {
	W            []float64 // weights
	B            float64   // bias
	LearningRate float64
	Epochs       int
	L2           float64
	RandomState  int64
}

// NewLogisticRegression stores the hyperparameters; weights are sized on Fit.
func NewLogisticRegression(lr float64, epochs int) *LogisticRegression {
	return &LogisticRegression{LearningRate: lr, Epochs: epochs, RandomState: DefaultSeed}
}

func newLogisticRegressionFromParams(p *Params) (Classifier, error) {
	m := NewLogisticRegression(0.1, 500)
	p.Float("learning_rate", &m.LearningRate)
	p.Int("epochs", &m.Epochs)
	p.Float("l2", &m.L2)
	p.Int64("random_state", &m.RandomState)
	p.Check(m.LearningRate > 0, "learning_rate", "must be positive")
	p.Check(m.Epochs >= 1, "epochs", "must be at least 1")
	p.Check(m.L2 >= 0, "l2", "must not be negative")
	return m, nil
}

// Fit initialises weights with small seeded noise to break symmetry, then
// runs Epochs full-batch updates.
func (m *LogisticRegression) Fit(X mat.Matrix, y []int) error {
	if err := checkXY("logistic", X, y, true); err != nil {
		return err
	}
	rows := rowsOf(X)
	p := len(rows[0])

	rnd := rand.New(rand.NewSource(m.RandomState))
	m.W = make([]float64, p)
	for i := range m.W {
		m.W[i] = rnd.NormFloat64() * 0.01
	}
	m.B = 0

	yf := make([]float64, len(y))
	for i, v := range y {
		yf[i] = float64(v)
	}
	opt := optim.NewSGD(m.LearningRate, m.L2)
	for ep := 0; ep < m.Epochs; ep++ {
		// Forward pass, then the BCE gradient chained through the sigmoid.
		_, dy := loss.BCE(yf, m.probaRows(rows))

		gW := make([]float64, p)
		gb := 0.0
		for i, row := range rows {
			for j, xij := range row {
				gW[j] += dy[i] * xij
			}
			gb += dy[i]
		}
		opt.Step(m.W, gW)
		m.B = opt.StepScalar(m.B, gb)
	}
	return nil
}

// probaRows scores rows in parallel chunks, one per available CPU.
func (m *LogisticRegression) probaRows(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(X) == 0 {
		return out
	}
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < len(X); start += rowsPerWorker {
		end := min(start+rowsPerWorker, len(X))
		g.Go(func() error {
			for i := start; i < end; i++ {
				sum := m.B
				for j, v := range X[i] {
					sum += m.W[j] * v
				}
				out[i] = loss.Sigmoid(sum)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// PredictProba returns p(y=1) per row.
func (m *LogisticRegression) PredictProba(X mat.Matrix) []float64 {
	return m.probaRows(rowsOf(X))
}

// Predict returns the class labels (0 or 1) at a 0.5 probability threshold.
func (m *LogisticRegression) Predict(X mat.Matrix) []int {
	return thresholdProba(m.PredictProba(X))
}

type logisticState LogisticRegression

func (m *LogisticRegression) MarshalBinary() ([]byte, error) {
	if m.W == nil {
		return nil, errors.New("logistic: model not trained")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode((*logisticState)(m)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *LogisticRegression) UnmarshalBinary(data []byte) error {
	var s logisticState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	*m = LogisticRegression(s)
	return nil
}
