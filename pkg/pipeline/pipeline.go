package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/dataprep"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/loader"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/model"
)

// Composite chains encoding, column transform and classifier. After Fit it
// only ever applies frozen state.
type Composite struct {
	Schema    Schema
	Encoding  dataprep.Encoding
	Transform TransformState
	Model     model.Classifier
}

// Fit runs every fit step once: the encoding over all of cleaned, the
// transform over the train rows only, then the classifier on the
// transformed train rows. cleaned must not contain the label column.
func Fit(cleaned *data.Frame, y []int, train []int, numeric []string, trainer model.Trainer) (*Composite, error) {
	if len(y) != cleaned.Len() {
		return nil, fmt.Errorf("pipeline: %d labels for %d rows", len(y), cleaned.Len())
	}
	c := &Composite{
		Schema:   SchemaOf(cleaned),
		Encoding: dataprep.FitEncoding(cleaned),
	}
	encoded, err := c.Encoding.Apply(cleaned)
	if err != nil {
		return nil, err
	}
	trainFrame := encoded.Frame.Take(train)
	if c.Transform, err = (ColumnTransformer{Numeric: numeric}).Fit(trainFrame); err != nil {
		return nil, err
	}
	X, err := c.Transform.Apply(trainFrame)
	if err != nil {
		return nil, err
	}
	if c.Model, err = trainer.Train(X, loader.Gather(y, train)); err != nil {
		return nil, err
	}
	return c, nil
}

// Prepared is a feature matrix plus the unseen-category counts met while
// encoding it.
type Prepared struct {
	X       *mat.Dense
	Unknown map[string]int
}

// Prepare checks, encodes and transforms a cleaned frame without fitting.
func (c *Composite) Prepare(f *data.Frame) (*Prepared, error) {
	f, err := c.Schema.Conform(f)
	if err != nil {
		return nil, err
	}
	if err := c.Schema.Check(f); err != nil {
		return nil, err
	}
	// drop anything the model never saw so stray text columns cannot fail encoding
	known, err := f.Select(c.Schema.FeatureNames...)
	if err != nil {
		return nil, err
	}
	encoded, err := c.Encoding.Apply(known)
	if err != nil {
		return nil, err
	}
	X, err := c.Transform.Apply(encoded.Frame)
	if err != nil {
		return nil, err
	}
	return &Prepared{X: X, Unknown: encoded.Unknown}, nil
}

// Predict returns labels and churn probabilities for a cleaned frame.
func (c *Composite) Predict(f *data.Frame) (labels []int, proba []float64, p *Prepared, err error) {
	p, err = c.Prepare(f)
	if err != nil {
		return nil, nil, nil, err
	}
	return c.Model.Predict(p.X), c.Model.PredictProba(p.X), p, nil
}

// Importances pairs the transform's output columns with the classifier's
// feature importances, or returns nil when the classifier has none.
func (c *Composite) Importances() (names []string, values []float64) {
	imp, ok := c.Model.(model.Importancer)
	if !ok {
		return nil, nil
	}
	return c.Transform.Columns(), imp.FeatureImportances()
}
