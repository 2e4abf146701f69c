package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample at each node
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for feature subsampling

	// Trained state
	Classes     []int // sorted class labels, order used by Node.Proba
	Nodes       []Node
	Importances []float64
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
		RandomState:     DefaultSeed,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func newDecisionTreeFromParams(p *Params) (Classifier, error) {
	t := NewDecisionTreeClassifier()
	p.Int("max_depth", &t.MaxDepth)
	p.Int("min_samples_split", &t.MinSamplesSplit)
	p.Int("min_samples_leaf", &t.MinSamplesLeaf)
	p.String("criterion", &t.Criterion)
	p.Int("max_features", &t.MaxFeatures)
	p.Float("min_impurity_decrease", &t.MinImpurityDecrease)
	p.Int64("random_state", &t.RandomState)
	p.Check(t.Criterion == "gini" || t.Criterion == "entropy", "criterion", `must be "gini" or "entropy"`)
	p.Check(t.MinSamplesLeaf >= 1, "min_samples_leaf", "must be at least 1")
	p.Check(t.MaxDepth >= 0, "max_depth", "must not be negative")
	return t, nil
}

// ---------------------------
// Public API
// ---------------------------

// Fit trains the tree. Categorical features are expected as integer codes;
// small integer-valued columns are also tried as equality splits.
func (t *DecisionTreeClassifier) Fit(X mat.Matrix, y []int) error {
	if err := checkXY("dtree", X, y, false); err != nil {
		return err
	}
	rows := rowsOf(X)
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	return t.fitRows(rows, y, idx, sortedClasses(y))
}

// fitRows grows the tree on the rows named by idx, which may repeat.
func (t *DecisionTreeClassifier) fitRows(X [][]float64, y []int, idx []int, classes []int) error {
	if len(idx) == 0 {
		return errors.New("dtree: no samples")
	}
	if len(classes) == 0 {
		return errors.New("dtree: no classes in y")
	}
	t.Classes = classes
	b := &cartBuilder{
		tree:        t,
		X:           X,
		y:           y,
		p:           len(X[0]),
		classIndex:  map[int]int{},
		rnd:         rand.New(rand.NewSource(t.RandomState)),
		importances: make([]float64, len(X[0])),
	}
	for i, c := range classes {
		b.classIndex[c] = i
	}
	b.build(idx, 0)
	t.Nodes = b.nodes
	t.Importances = normalize(b.importances)
	return nil
}

// Predict returns the most probable class for each row.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) []int {
	rows := rowsOf(X)
	out := make([]int, len(rows))
	for i, x := range rows {
		out[i] = t.Classes[argmaxFloat(t.probaRow(x))]
	}
	return out
}

// PredictProba returns p(y=1) per row, or 0 when class 1 never occurred.
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) []float64 {
	rows := rowsOf(X)
	out := make([]float64, len(rows))
	pos := sort.SearchInts(t.Classes, 1)
	if pos >= len(t.Classes) || t.Classes[pos] != 1 {
		return out
	}
	for i, x := range rows {
		out[i] = t.probaRow(x)[pos]
	}
	return out
}

// FeatureImportances is the normalised total impurity decrease per feature.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), t.Importances...)
}

func (t *DecisionTreeClassifier) probaRow(x []float64) []float64 {
	if len(t.Nodes) == 0 {
		p := make([]float64, len(t.Classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	return walk(t.Nodes, x).Proba
}

type dtreeState DecisionTreeClassifier

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (t *DecisionTreeClassifier) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode((*dtreeState)(t)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (t *DecisionTreeClassifier) UnmarshalBinary(data []byte) error {
	var s dtreeState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	*t = DecisionTreeClassifier(s)
	return nil
}

// ---------------------------
// Internal builder
// ---------------------------

type cartBuilder struct {
	tree        *DecisionTreeClassifier
	X           [][]float64
	y           []int
	p           int
	classIndex  map[int]int
	rnd         *rand.Rand
	nodes       []Node
	importances []float64
}

func (b *cartBuilder) impurity(counts []int) float64 {
	if b.tree.Criterion == "entropy" {
		return entropyFromCounts(counts)
	}
	return giniFromCounts(counts)
}

func (b *cartBuilder) counts(idx []int) []int {
	c := make([]int, len(b.tree.Classes))
	for _, i := range idx {
		c[b.classIndex[b.y[i]]]++
	}
	return c
}

func (b *cartBuilder) build(idx []int, depth int) int {
	t := b.tree
	counts := b.counts(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, N: len(idx), Proba: countsToProbas(counts)})

	if isPure(counts) || len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return id
	}

	parent := b.impurity(counts)
	features := featureSubset(b.p, t.MaxFeatures, b.rnd)
	best := bestSplit(features, func(f int) candidate {
		return b.searchFeature(idx, f, counts, parent)
	})
	if !best.ok || best.gain <= t.MinImpurityDecrease {
		return id
	}

	left, right := partition(b.X, idx, best)
	b.importances[best.feature] += float64(len(idx)) * best.gain
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	n := &b.nodes[id]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Equal = best.equal
	n.Left, n.Right = l, r
	n.Proba = nil
	return id
}

// searchFeature scans feature f for the split with the largest impurity
// decrease. Counts are swept incrementally over the sorted values.
func (b *cartBuilder) searchFeature(idx []int, f int, parentCounts []int, parentImp float64) candidate {
	best := candidate{feature: f}
	valid, nans := column(b.X, idx, f)
	if len(valid) == 0 {
		return best
	}
	sort.Slice(valid, func(a, c int) bool { return valid[a].v < valid[c].v })

	n := float64(len(idx))
	minLeaf := b.tree.MinSamplesLeaf
	nanCounts := b.counts(nans)
	right := make([]int, len(parentCounts))
	consider := func(left []int, nl int, thr float64, equal bool) {
		nr := len(idx) - nl
		if nl < minLeaf || nr < minLeaf || nl == 0 || nr == 0 {
			return
		}
		for k := range right {
			right[k] = parentCounts[k] - left[k]
		}
		gain := parentImp - float64(nl)/n*b.impurity(left) - float64(nr)/n*b.impurity(right)
		if gain > 1e-12 && (!best.ok || gain > best.gain) {
			best = candidate{ok: true, gain: gain, feature: f, threshold: thr, equal: equal}
		}
	}

	// equality splits on small integer-coded columns
	if runs := valueRuns(valid); len(runs) <= 30 && allInt(valid, runs) {
		for k, start := range runs {
			end := len(valid)
			if k+1 < len(runs) {
				end = runs[k+1]
			}
			left := append([]int(nil), nanCounts...)
			for _, pv := range valid[start:end] {
				left[b.classIndex[b.y[pv.i]]]++
			}
			consider(left, len(nans)+end-start, valid[start].v, true)
		}
	}

	// threshold splits between consecutive distinct values
	left := append([]int(nil), nanCounts...)
	for s := 1; s < len(valid); s++ {
		left[b.classIndex[b.y[valid[s-1].i]]]++
		if valid[s].v == valid[s-1].v {
			continue
		}
		consider(left, len(nans)+s, midpoint(valid[s-1].v, valid[s].v), false)
	}
	return best
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

// valueRuns returns the start offset of each run of equal values in sorted pairs.
func valueRuns(sorted []pair) []int {
	var runs []int
	for s := range sorted {
		if s == 0 || sorted[s].v != sorted[s-1].v {
			runs = append(runs, s)
		}
	}
	return runs
}

func allInt(sorted []pair, runs []int) bool {
	for _, s := range runs {
		if !almostInt(sorted[s].v) {
			return false
		}
	}
	return true
}

// midpoint is halfway between a < b, kept strictly below b.
func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b {
		return a
	}
	return m
}

func sortedClasses(y []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}
