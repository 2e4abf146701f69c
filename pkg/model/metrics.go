package model

import (
	"fmt"
	"strings"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/loss"
)

// Classification metrics (binary, labels 0/1)

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores one class treated as positive.
func PrecisionRecallF1(yTrue []int, yPred []int, positive int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == positive && yTrue[i] == positive {
			tp++
		}
		if yPred[i] == positive && yTrue[i] != positive {
			fp++
		}
		if yPred[i] != positive && yTrue[i] == positive {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ConfusionMatrix is indexed [true][predicted] over labels {0, 1}.
type ConfusionMatrix [2][2]int

func NewConfusionMatrix(yTrue, yPred []int) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range yTrue {
		if inBinary(yTrue[i]) && inBinary(yPred[i]) {
			cm[yTrue[i]][yPred[i]]++
		}
	}
	return cm
}

func inBinary(v int) bool { return v == 0 || v == 1 }

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Label     int
	Name      string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report collects everything the evaluate stage prints.
type Report struct {
	Accuracy  float64
	LogLoss   float64 // zero when no probabilities were given
	Classes   []ClassMetrics
	Macro     ClassMetrics
	Weighted  ClassMetrics
	Confusion ConfusionMatrix
	N         int
}

// Evaluate scores predictions against ground truth for both classes.
// names maps a label to its display name and may be nil.
func Evaluate(yTrue, yPred []int, proba []float64, names func(int) string) Report {
	r := Report{
		Accuracy:  Accuracy(yTrue, yPred),
		Confusion: NewConfusionMatrix(yTrue, yPred),
		N:         len(yTrue),
	}
	if len(proba) == len(yTrue) && len(proba) > 0 {
		r.LogLoss = loss.LogLoss(yTrue, proba)
	}
	r.Macro.Name = "macro avg"
	r.Weighted.Name = "weighted avg"
	for _, label := range []int{0, 1} {
		p, rc, f := PrecisionRecallF1(yTrue, yPred, label)
		cm := ClassMetrics{Label: label, Name: fmt.Sprint(label), Precision: p, Recall: rc, F1: f}
		for _, y := range yTrue {
			if y == label {
				cm.Support++
			}
		}
		if names != nil {
			cm.Name = names(label)
		}
		r.Classes = append(r.Classes, cm)

		r.Macro.Precision += p / 2
		r.Macro.Recall += rc / 2
		r.Macro.F1 += f / 2
		if r.N > 0 {
			w := float64(cm.Support) / float64(r.N)
			r.Weighted.Precision += w * p
			r.Weighted.Recall += w * rc
			r.Weighted.F1 += w * f
		}
	}
	r.Macro.Support = r.N
	r.Weighted.Support = r.N
	return r
}

// Metrics flattens the report into named scalars for tracking.
func (r Report) Metrics() map[string]float64 {
	m := map[string]float64{
		"accuracy":    r.Accuracy,
		"macro_f1":    r.Macro.F1,
		"weighted_f1": r.Weighted.F1,
		"precision_1": r.Classes[1].Precision,
		"recall_1":    r.Classes[1].Recall,
		"f1_1":        r.Classes[1].F1,
		"precision_0": r.Classes[0].Precision,
		"recall_0":    r.Classes[0].Recall,
		"f1_0":        r.Classes[0].F1,
		"n_evaluated": float64(r.N),
		"true_pos":    float64(r.Confusion[1][1]),
		"false_pos":   float64(r.Confusion[0][1]),
		"true_neg":    float64(r.Confusion[0][0]),
		"false_neg":   float64(r.Confusion[1][0]),
	}
	if r.LogLoss > 0 {
		m["log_loss"] = r.LogLoss
	}
	return m
}

// String renders a fixed-width text report.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	row := func(c ClassMetrics) {
		fmt.Fprintf(&b, "%-14s %9.4f %9.4f %9.4f %9d\n", c.Name, c.Precision, c.Recall, c.F1, c.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-14s %9s %9s %9.4f %9d\n", "accuracy", "", "", r.Accuracy, r.N)
	row(r.Macro)
	row(r.Weighted)
	if r.LogLoss > 0 {
		fmt.Fprintf(&b, "%-14s %9s %9s %9.4f\n", "log loss", "", "", r.LogLoss)
	}
	b.WriteString("\nconfusion matrix (rows = true, cols = predicted)\n")
	fmt.Fprintf(&b, "%-14s %9s %9s\n", "", r.Classes[0].Name, r.Classes[1].Name)
	for i, c := range r.Classes {
		fmt.Fprintf(&b, "%-14s %9d %9d\n", c.Name, r.Confusion[i][0], r.Confusion[i][1])
	}
	return b.String()
}
