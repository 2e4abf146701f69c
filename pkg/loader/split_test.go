package loader

import (
	"errors"
	"math"
	"testing"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

func churnLabels(n, positives int) []int {
	y := make([]int, n)
	// spread positives through the table so ordering matters
	for i := 0; i < positives; i++ {
		y[(i*7)%n] = 1
	}
	return y
}

func TestStratifiedSplitIsReproducible(t *testing.T) {
	y := churnLabels(200, 53)
	trainA, testA, err := StratifiedSplit(y, 0.3, 40)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	trainB, testB, err := StratifiedSplit(y, 0.3, 40)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !equalInts(trainA, trainB) || !equalInts(testA, testB) {
		t.Fatal("same seed and fraction produced different partitions")
	}

	_, testC, err := StratifiedSplit(y, 0.3, 41)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if equalInts(testA, testC) {
		t.Fatal("different seeds should usually produce different partitions")
	}
}

func TestStratifiedSplitPreservesProportions(t *testing.T) {
	y := churnLabels(1000, 260)
	train, test, err := StratifiedSplit(y, 0.3, 7)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(train)+len(test) != len(y) {
		t.Fatalf("partition does not cover all rows: %d + %d", len(train), len(test))
	}
	seen := make(map[int]bool, len(y))
	for _, r := range append(append([]int{}, train...), test...) {
		if seen[r] {
			t.Fatalf("row %d appears twice", r)
		}
		seen[r] = true
	}

	full := 260.0 / 1000.0
	for name, rows := range map[string][]int{"train": train, "test": test} {
		c := ClassCounts(y, rows)
		share := float64(c[1]) / float64(len(rows))
		if math.Abs(share-full) > 0.01 {
			t.Fatalf("%s churn share %.3f drifted from %.3f", name, share, full)
		}
	}
	if len(test) != 300 {
		t.Fatalf("test size = %d, want 300", len(test))
	}
}

func TestStratifiedSplitErrors(t *testing.T) {
	y := churnLabels(20, 5)
	for _, frac := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
		if _, _, err := StratifiedSplit(y, frac, 1); !errors.Is(err, errs.ErrSplit) {
			t.Fatalf("fraction %v: expected split error, got %v", frac, err)
		}
	}
	lonely := []int{0, 0, 0, 1}
	if _, _, err := StratifiedSplit(lonely, 0.5, 1); !errors.Is(err, errs.ErrSplit) {
		t.Fatalf("single-member class: expected split error, got %v", err)
	}
	if _, _, err := StratifiedSplit(nil, 0.5, 1); !errors.Is(err, errs.ErrSplit) {
		t.Fatalf("empty labels: expected split error, got %v", err)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
