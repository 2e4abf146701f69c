package optim

// SGD is a plain gradient step with optional L2 weight decay.
type SGD struct {
	LearningRate float64
	L2           float64
}

func NewSGD(lr, l2 float64) *SGD { return &SGD{LearningRate: lr, L2: l2} }

// Step updates weights in place: w -= lr * (g + l2*w).
func (o *SGD) Step(weights, grads []float64) {
	for i := range weights {
		weights[i] -= o.LearningRate * (grads[i] + o.L2*weights[i])
	}
}

// StepScalar applies the same update to a single unregularised parameter,
// typically a bias.
func (o *SGD) StepScalar(w, grad float64) float64 {
	return w - o.LearningRate*grad
}
