package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64

	// Internal state
	Trees   []*DecisionTreeClassifier
	Classes []int
}

// Option functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestSeed(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MaxFeatures:     0,
		Bootstrap:       true,
		RandomState:     DefaultSeed,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

func newRandomForestFromParams(p *Params) (Classifier, error) {
	rf := NewRandomForest()
	p.Int("n_estimators", &rf.NEstimators)
	p.Int("max_depth", &rf.MaxDepth)
	p.Int("min_samples_split", &rf.MinSamplesSplit)
	p.Int("max_features", &rf.MaxFeatures)
	p.Bool("bootstrap", &rf.Bootstrap)
	p.Int64("random_state", &rf.RandomState)
	p.Check(rf.NEstimators >= 1, "n_estimators", "must be at least 1")
	p.Check(rf.MaxDepth >= 0, "max_depth", "must not be negative")
	return rf, nil
}

// Fit trains the trees concurrently. Tree idx draws its bootstrap sample and
// feature subsets from RandomState+idx, so the forest does not depend on
// scheduling order.
func (rf *RandomForest) Fit(X mat.Matrix, y []int) error {
	if err := checkXY("randomforest", X, y, false); err != nil {
		return err
	}
	if rf.NEstimators < 1 {
		return errors.New("randomforest: n_estimators must be at least 1")
	}
	rows := rowsOf(X)
	n := len(rows)
	rf.Classes = sortedClasses(y)
	rf.Trees = make([]*DecisionTreeClassifier, rf.NEstimators)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < rf.NEstimators; i++ {
		g.Go(func() error {
			seed := rf.RandomState + int64(i)
			treeRand := rand.New(rand.NewSource(seed))

			// Bootstrap sampling: an index slice, not a copy of the data.
			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = treeRand.Intn(n)
				} else {
					sample[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMaxFeatures(rf.MaxFeatures),
				WithRandomState(seed),
			)
			if err := tree.fitRows(rows, y, sample, rf.Classes); err != nil {
				return err
			}
			rf.Trees[i] = tree
			return nil
		})
	}
	return g.Wait()
}

// votes counts, per row, how many trees predict each class.
func (rf *RandomForest) votes(X mat.Matrix) [][]int {
	rows := rowsOf(X)
	out := make([][]int, len(rows))
	for i, x := range rows {
		out[i] = make([]int, len(rf.Classes))
		for _, t := range rf.Trees {
			out[i][argmaxFloat(t.probaRow(x))]++
		}
	}
	return out
}

// Predict returns the majority vote of all trees; ties go to the smaller label.
func (rf *RandomForest) Predict(X mat.Matrix) []int {
	v := rf.votes(X)
	out := make([]int, len(v))
	for i, counts := range v {
		best := 0
		for k := 1; k < len(counts); k++ {
			if counts[k] > counts[best] {
				best = k
			}
		}
		out[i] = rf.Classes[best]
	}
	return out
}

// PredictProba returns the share of trees voting for class 1.
func (rf *RandomForest) PredictProba(X mat.Matrix) []float64 {
	v := rf.votes(X)
	out := make([]float64, len(v))
	pos := -1
	for k, c := range rf.Classes {
		if c == 1 {
			pos = k
		}
	}
	if pos < 0 || len(rf.Trees) == 0 {
		return out
	}
	for i, counts := range v {
		out[i] = float64(counts[pos]) / float64(len(rf.Trees))
	}
	return out
}

// FeatureImportances averages the trees' normalised importances.
func (rf *RandomForest) FeatureImportances() []float64 {
	if len(rf.Trees) == 0 {
		return nil
	}
	out := make([]float64, len(rf.Trees[0].Importances))
	for _, t := range rf.Trees {
		for j, v := range t.Importances {
			out[j] += v
		}
	}
	return normalize(out)
}

type forestState RandomForest

func (rf *RandomForest) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode((*forestState)(rf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (rf *RandomForest) UnmarshalBinary(data []byte) error {
	var s forestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	*rf = RandomForest(s)
	return nil
}
