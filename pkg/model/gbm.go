package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/loss"
)

// GradientBoostingClassifier fits an additive log-odds model for binary
// labels. Each stage fits a regression tree to the log-loss residuals and
// sets leaf outputs with a single Newton step.
type GradientBoostingClassifier struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Subsample       float64 // fraction of rows drawn without replacement per stage
	MaxFeatures     int     // 0 => all features
	RandomState     int64

	// Trained state
	Init        float64 // prior log-odds
	Trees       [][]Node
	Importances []float64
	TrainLoss   []float64 // in-sample log loss after each stage
}

// NewGradientBoosting returns a booster with the usual defaults.
func NewGradientBoosting() *GradientBoostingClassifier {
	return &GradientBoostingClassifier{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Subsample:       1.0,
		RandomState:     DefaultSeed,
	}
}

func newGradientBoostingFromParams(p *Params) (Classifier, error) {
	g := NewGradientBoosting()
	p.Int("n_estimators", &g.NEstimators)
	p.Float("learning_rate", &g.LearningRate)
	p.Int("max_depth", &g.MaxDepth)
	p.Int("min_samples_split", &g.MinSamplesSplit)
	p.Int("min_samples_leaf", &g.MinSamplesLeaf)
	p.Float("subsample", &g.Subsample)
	p.Int("max_features", &g.MaxFeatures)
	p.Int64("random_state", &g.RandomState)
	p.Check(g.NEstimators >= 1, "n_estimators", "must be at least 1")
	p.Check(g.LearningRate > 0, "learning_rate", "must be positive")
	p.Check(g.Subsample > 0 && g.Subsample <= 1, "subsample", "must be in (0, 1]")
	p.Check(g.MinSamplesLeaf >= 1, "min_samples_leaf", "must be at least 1")
	p.Check(g.MaxDepth >= 0, "max_depth", "must not be negative")
	return g, nil
}

// Fit runs NEstimators boosting stages. Row sampling and feature sampling
// share one generator seeded by RandomState.
func (g *GradientBoostingClassifier) Fit(X mat.Matrix, y []int) error {
	if err := checkXY("gbm", X, y, true); err != nil {
		return err
	}
	if g.NEstimators < 1 || g.LearningRate <= 0 {
		return errors.New("gbm: invalid hyperparameters")
	}
	rows := rowsOf(X)
	n, p := len(rows), len(rows[0])

	pos := 0.0
	for _, v := range y {
		pos += float64(v)
	}
	g.Init = loss.Logit(pos / float64(n))
	g.Trees = make([][]Node, 0, g.NEstimators)
	g.TrainLoss = make([]float64, 0, g.NEstimators)
	importances := make([]float64, p)

	score := make([]float64, n)
	for i := range score {
		score[i] = g.Init
	}
	resid := make([]float64, n)
	hess := make([]float64, n)
	proba := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	rnd := rand.New(rand.NewSource(g.RandomState))

	for m := 0; m < g.NEstimators; m++ {
		for i := range score {
			pr := loss.Sigmoid(score[i])
			resid[i] = float64(y[i]) - pr
			hess[i] = pr * (1 - pr)
		}

		idx := all
		if g.Subsample < 1 {
			k := int(math.Max(1, math.Floor(g.Subsample*float64(n))))
			idx = rnd.Perm(n)[:k]
			sort.Ints(idx)
		}

		rt := &regressionTree{
			maxDepth:    g.MaxDepth,
			minSplit:    g.MinSamplesSplit,
			minLeaf:     g.MinSamplesLeaf,
			maxFeatures: g.MaxFeatures,
			rnd:         rnd,
			leafValue:   newtonStep(resid, hess),
		}
		nodes := rt.fit(rows, resid, idx)
		g.Trees = append(g.Trees, nodes)
		for j, v := range rt.importances {
			importances[j] += v
		}

		for i, x := range rows {
			score[i] += g.LearningRate * walk(nodes, x).Value
			proba[i] = loss.Sigmoid(score[i])
		}
		g.TrainLoss = append(g.TrainLoss, loss.LogLoss(y, proba))
	}
	g.Importances = normalize(importances)
	return nil
}

// newtonStep returns sum(residual) / sum(p(1-p)) over a leaf's rows.
func newtonStep(resid, hess []float64) func(idx []int) float64 {
	return func(idx []int) float64 {
		num, den := 0.0, 0.0
		for _, i := range idx {
			num += resid[i]
			den += hess[i]
		}
		if math.Abs(den) < 1e-150 {
			return 0
		}
		return num / den
	}
}

// DecisionFunction returns the raw log-odds per row.
func (g *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) []float64 {
	rows := rowsOf(X)
	out := make([]float64, len(rows))
	for i, x := range rows {
		s := g.Init
		for _, nodes := range g.Trees {
			s += g.LearningRate * walk(nodes, x).Value
		}
		out[i] = s
	}
	return out
}

func (g *GradientBoostingClassifier) PredictProba(X mat.Matrix) []float64 {
	out := g.DecisionFunction(X)
	for i, s := range out {
		out[i] = loss.Sigmoid(s)
	}
	return out
}

func (g *GradientBoostingClassifier) Predict(X mat.Matrix) []int {
	return thresholdProba(g.PredictProba(X))
}

// FeatureImportances is the normalised squared-error reduction per feature,
// summed over all stages.
func (g *GradientBoostingClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), g.Importances...)
}

type gbmState GradientBoostingClassifier

func (g *GradientBoostingClassifier) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode((*gbmState)(g)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *GradientBoostingClassifier) UnmarshalBinary(data []byte) error {
	var s gbmState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	*g = GradientBoostingClassifier(s)
	return nil
}
