package dataprep

import (
	"strings"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// Binary label values.
const (
	NoChurn = 0
	Churn   = 1
)

// LabelName renders a label the way reports print it.
func LabelName(label int) string {
	if label == Churn {
		return "Churn"
	}
	return "No Churn"
}

// EncodeLabel reads the binary target column with a fixed mapping:
// No/0/false -> 0 and Yes/1/true -> 1. The target is never first-seen coded.
func EncodeLabel(f *data.Frame, name string) ([]int, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, errs.Schemaf(name, "label column is missing")
	}
	out := make([]int, f.Len())
	for i := range out {
		switch strings.ToLower(strings.TrimSpace(col.Cell(i))) {
		case "no", "0", "false":
			out[i] = NoChurn
		case "yes", "1", "true":
			out[i] = Churn
		default:
			return nil, errs.Schemaf(name, "row %d has label %q, want Yes/No or 1/0", i, col.Cell(i))
		}
	}
	return out, nil
}
