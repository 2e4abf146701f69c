package pipeline

import (
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// Schema describes the structure of the cleaned feature frame seen at
// training time, before categorical encoding.
type Schema struct {
	FeatureNames []string
	Types        []string // "numeric" or "categorical"
}

// SchemaOf records the column names and kinds of f.
func SchemaOf(f *data.Frame) Schema {
	s := Schema{}
	for _, c := range f.Columns() {
		s.FeatureNames = append(s.FeatureNames, c.Name)
		s.Types = append(s.Types, c.Kind.String())
	}
	return s
}

// Check verifies that f carries every recorded column with the same kind.
// Extra columns and a different column order are accepted.
func (s Schema) Check(f *data.Frame) error {
	for i, name := range s.FeatureNames {
		col, ok := f.Column(name)
		if !ok {
			return errs.Schemaf(name, "required column is missing")
		}
		if got := col.Kind.String(); got != s.Types[i] {
			return errs.Schemaf(name, "want %s column, got %s", s.Types[i], got)
		}
	}
	return nil
}

// Categorical lists the columns recorded as categorical.
func (s Schema) Categorical() []string {
	var out []string
	for i, t := range s.Types {
		if t == data.Categorical.String() {
			out = append(out, s.FeatureNames[i])
		}
	}
	return out
}

// Conform retypes columns that the recorded schema calls categorical but a
// CSV reader inferred as numeric, because every cell in that batch looked
// like a number. Their cells become text again so encoding can look them up.
// Other columns are left for Check to judge.
func (s Schema) Conform(f *data.Frame) (*data.Frame, error) {
	for _, name := range s.Categorical() {
		col, ok := f.Column(name)
		if !ok || col.Kind != data.Numeric {
			continue
		}
		cells := make([]string, col.Len())
		for i := range cells {
			cells[i] = col.Cell(i)
		}
		next, err := f.With(data.CategoricalColumn(name, cells))
		if err != nil {
			return nil, err
		}
		f = next
	}
	return f, nil
}
