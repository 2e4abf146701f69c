package loss

import "math"

// Eps bounds probabilities away from 0 and 1 before taking logs.
const Eps = 1e-15

// Clip keeps p inside [Eps, 1-Eps].
func Clip(p float64) float64 { return math.Min(math.Max(p, Eps), 1-Eps) }

// BCE is binary cross-entropy and its gradient with respect to the
// predicted probability, averaged over the batch.
// Gradient is (p - y) / n, i.e. already chained through the sigmoid.
func BCE(yTrue, yPred []float64) (float64, []float64) {
	n := len(yTrue)
	if n == 0 {
		return 0, nil
	}
	s := 0.0
	grad := make([]float64, n)

	for i := range n {
		p := Clip(yPred[i])
		y := yTrue[i]
		s += -(y*math.Log(p) + (1-y)*math.Log(1-p))
		grad[i] = (p - y) / float64(n)
	}
	return s / float64(n), grad
}

// LogLoss is BCE for integer 0/1 labels, without the gradient.
func LogLoss(labels []int, proba []float64) float64 {
	y := make([]float64, len(labels))
	for i, l := range labels {
		y[i] = float64(l)
	}
	l, _ := BCE(y, proba)
	return l
}
