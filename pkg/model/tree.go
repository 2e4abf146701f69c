package model

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Node is one entry of a flattened tree. Children are indices into the
// owning slice; Left < 0 marks a leaf. NaN inputs always take the left
// branch, both while fitting and at prediction time.
type Node struct {
	Feature   int
	Threshold float64
	Equal     bool // x == Threshold goes left, otherwise x <= Threshold goes left
	Left      int
	Right     int
	N         int
	Value     float64   // regression leaf output
	Proba     []float64 // classification leaf distribution, aligned with the tree's classes
}

func (n *Node) leaf() bool { return n.Left < 0 }

func (n *Node) goesLeft(v float64) bool {
	switch {
	case math.IsNaN(v):
		return true
	case n.Equal:
		return v == n.Threshold
	default:
		return v <= n.Threshold
	}
}

// walk returns the leaf reached by x.
func walk(nodes []Node, x []float64) *Node {
	i := 0
	for !nodes[i].leaf() {
		if nodes[i].goesLeft(x[nodes[i].Feature]) {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return &nodes[i]
}

// candidate is the best split found on one feature.
type candidate struct {
	ok        bool
	gain      float64
	feature   int
	threshold float64
	equal     bool
}

// featureSubset draws k distinct feature indices (all p when k is 0 or >= p).
// The draw happens before any goroutine starts so fits stay reproducible.
func featureSubset(p, k int, rnd *rand.Rand) []int {
	idx := make([]int, p)
	for j := range idx {
		idx[j] = j
	}
	if k <= 0 || k >= p {
		return idx
	}
	for i := 0; i < k; i++ {
		j := i + rnd.Intn(p-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// bestSplit evaluates every feature concurrently and reduces the results in
// feature order, so ties go to the earliest feature and the outcome does
// not depend on goroutine scheduling.
func bestSplit(features []int, eval func(f int) candidate) candidate {
	results := make([]candidate, len(features))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k, f := range features {
		g.Go(func() error {
			results[k] = eval(f)
			return nil
		})
	}
	_ = g.Wait()

	best := candidate{feature: -1}
	for _, c := range results {
		if c.ok && (!best.ok || c.gain > best.gain) {
			best = c
		}
	}
	return best
}

// partition splits idx by the winning candidate.
func partition(X [][]float64, idx []int, c candidate) (left, right []int) {
	probe := Node{Feature: c.feature, Threshold: c.threshold, Equal: c.equal}
	left = make([]int, 0, len(idx))
	right = make([]int, 0, len(idx))
	for _, i := range idx {
		if probe.goesLeft(X[i][c.feature]) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// pair is a feature value and its original row.
type pair struct {
	v float64
	i int
}

// column gathers X[idx][f], returning non-NaN pairs and the NaN rows.
func column(X [][]float64, idx []int, f int) (valid []pair, nans []int) {
	valid = make([]pair, 0, len(idx))
	for _, i := range idx {
		v := X[i][f]
		if math.IsNaN(v) {
			nans = append(nans, i)
			continue
		}
		valid = append(valid, pair{v, i})
	}
	return valid, nans
}

func almostInt(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	_, frac := math.Modf(math.Abs(v))
	return frac < 1e-9 || frac > 1-1e-9
}

// normalize rescales v to sum to 1, leaving an all-zero vector alone.
func normalize(v []float64) []float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	if s == 0 {
		return v
	}
	for i := range v {
		v[i] /= s
	}
	return v
}
