package model

import (
	"math"
	"strings"
	"testing"
)

func TestEvaluateReport(t *testing.T) {
	yTrue := []int{1, 1, 1, 0, 0, 0, 0, 0}
	yPred := []int{1, 1, 0, 1, 0, 0, 0, 0}
	r := Evaluate(yTrue, yPred, nil, func(l int) string {
		if l == 1 {
			return "Churn"
		}
		return "No Churn"
	})

	if r.Accuracy != 0.75 {
		t.Fatalf("accuracy = %v", r.Accuracy)
	}
	want := ConfusionMatrix{{4, 1}, {1, 2}}
	if r.Confusion != want {
		t.Fatalf("confusion = %v, want %v", r.Confusion, want)
	}
	churn := r.Classes[1]
	if churn.Support != 3 || math.Abs(churn.Precision-2.0/3) > 1e-12 || math.Abs(churn.Recall-2.0/3) > 1e-12 {
		t.Fatalf("churn metrics = %+v", churn)
	}
	stay := r.Classes[0]
	if stay.Support != 5 || stay.Precision != 0.8 || stay.Recall != 0.8 {
		t.Fatalf("no-churn metrics = %+v", stay)
	}
	if math.Abs(r.Macro.F1-(0.8+2.0/3)/2) > 1e-12 {
		t.Fatalf("macro f1 = %v", r.Macro.F1)
	}
	if math.Abs(r.Weighted.F1-(5*0.8+3*2.0/3)/8) > 1e-12 {
		t.Fatalf("weighted f1 = %v", r.Weighted.F1)
	}

	text := r.String()
	for _, s := range []string{"Churn", "No Churn", "macro avg", "confusion matrix"} {
		if !strings.Contains(text, s) {
			t.Fatalf("report missing %q:\n%s", s, text)
		}
	}
	if r.Metrics()["accuracy"] != 0.75 {
		t.Fatal("metrics map lost accuracy")
	}
}

func TestPrecisionRecallF1NoPositives(t *testing.T) {
	p, r, f := PrecisionRecallF1([]int{0, 0}, []int{0, 0}, 1)
	if p != 0 || r != 0 || f != 0 {
		t.Fatalf("got %v %v %v", p, r, f)
	}
	if Accuracy(nil, nil) != 0 {
		t.Fatal("empty accuracy should be 0")
	}
}
