package loss

import "math"

// Sigmoid maps a log-odds score to a probability without overflowing for
// large negative inputs.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func SigmoidPrime(x float64) float64 { s := Sigmoid(x); return s * (1 - s) }

// Logit is the inverse of Sigmoid. p is clipped to [Eps, 1-Eps].
func Logit(p float64) float64 {
	p = Clip(p)
	return math.Log(p / (1 - p))
}
