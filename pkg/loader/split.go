package loader

import (
	"math"
	"math/rand"
	"sort"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// StratifiedSplit partitions row indices into train and test sets so that
// each label keeps its share in both. Members of each class (ascending label
// order) are shuffled with one generator seeded by seed, and the first
// round(testRatio*n) of them go to test. Both index lists come back sorted.
func StratifiedSplit(labels []int, testRatio float64, seed int64) (train, test []int, err error) {
	if math.IsNaN(testRatio) || testRatio <= 0 || testRatio >= 1 {
		return nil, nil, errs.Splitf("test fraction %v is outside (0, 1)", testRatio)
	}
	if len(labels) == 0 {
		return nil, nil, errs.Splitf("no rows to split")
	}

	byClass := map[int][]int{}
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	for _, c := range classes {
		if n := len(byClass[c]); n < 2 {
			return nil, nil, errs.Splitf("class %d has %d member(s), need at least 2 to stratify", c, n)
		}
	}

	rnd := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		members := byClass[c]
		rnd.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

		nTest := int(math.Round(testRatio * float64(len(members))))
		if nTest < 1 {
			nTest = 1
		}
		if nTest > len(members)-1 {
			nTest = len(members) - 1
		}
		test = append(test, members[:nTest]...)
		train = append(train, members[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// ClassCounts tallies labels, optionally restricted to the given rows.
func ClassCounts(labels []int, rows []int) map[int]int {
	out := map[int]int{}
	if rows == nil {
		for _, y := range labels {
			out[y]++
		}
		return out
	}
	for _, r := range rows {
		out[labels[r]]++
	}
	return out
}

// Gather returns labels[rows].
func Gather(labels []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = labels[r]
	}
	return out
}
