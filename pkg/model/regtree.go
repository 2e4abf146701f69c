package model

import (
	"math/rand"
	"sort"
)

// regressionTree grows a least-squares tree on a real-valued target. Leaf
// outputs come from leafValue, so boosting can substitute Newton steps for
// the plain mean.
type regressionTree struct {
	maxDepth    int
	minSplit    int
	minLeaf     int
	maxFeatures int
	rnd         *rand.Rand
	leafValue   func(idx []int) float64

	X           [][]float64
	target      []float64
	nodes       []Node
	importances []float64
}

func (r *regressionTree) fit(X [][]float64, target []float64, idx []int) []Node {
	r.X = X
	r.target = target
	r.nodes = nil
	r.importances = make([]float64, len(X[0]))
	r.build(idx, 0)
	return r.nodes
}

func (r *regressionTree) build(idx []int, depth int) int {
	id := len(r.nodes)
	r.nodes = append(r.nodes, Node{Left: -1, Right: -1, N: len(idx), Value: r.leafValue(idx)})
	if len(idx) < r.minSplit || (r.maxDepth > 0 && depth >= r.maxDepth) {
		return id
	}

	sum := 0.0
	for _, i := range idx {
		sum += r.target[i]
	}
	features := featureSubset(len(r.X[0]), r.maxFeatures, r.rnd)
	best := bestSplit(features, func(f int) candidate {
		return r.searchFeature(idx, f, sum)
	})
	if !best.ok {
		return id
	}

	left, right := partition(r.X, idx, best)
	r.importances[best.feature] += best.gain
	l := r.build(left, depth+1)
	rt := r.build(right, depth+1)

	n := &r.nodes[id]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Left, n.Right = l, rt
	n.Value = 0
	return id
}

// searchFeature maximises the reduction in squared error, which for a
// split into L and R is sumL²/nL + sumR²/nR - sum²/n.
func (r *regressionTree) searchFeature(idx []int, f int, sum float64) candidate {
	best := candidate{feature: f}
	valid, nans := column(r.X, idx, f)
	if len(valid) == 0 {
		return best
	}
	sort.Slice(valid, func(a, b int) bool { return valid[a].v < valid[b].v })

	n := len(idx)
	base := sum * sum / float64(n)
	sumL := 0.0
	for _, i := range nans {
		sumL += r.target[i]
	}
	for s := 1; s < len(valid); s++ {
		sumL += r.target[valid[s-1].i]
		if valid[s].v == valid[s-1].v {
			continue
		}
		nl := len(nans) + s
		nr := n - nl
		if nl < r.minLeaf || nr < r.minLeaf {
			continue
		}
		sumR := sum - sumL
		gain := sumL*sumL/float64(nl) + sumR*sumR/float64(nr) - base
		if gain > 1e-12 && (!best.ok || gain > best.gain) {
			best = candidate{ok: true, gain: gain, feature: f, threshold: midpoint(valid[s-1].v, valid[s].v)}
		}
	}
	return best
}
