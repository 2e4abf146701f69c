// Package artifact persists the fitted pipeline as one versioned file.
package artifact

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/dataprep"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/model"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/pipeline"
)

// Schema versions. Version 1 was the two-part layout with the scaler and
// the model in separate files; it cannot be loaded.
const (
	LegacyVersion  = 1
	CurrentVersion = 2
)

// ModelState is a classifier reduced to bytes: the registry name, the
// hyperparameters as given (JSON) and the trained state.
type ModelState struct {
	Name   string
	Params []byte
	State  []byte
}

// Metadata describes how and when the artifact was produced.
type Metadata struct {
	ID        string
	CreatedAt time.Time
	Target    string
	TestSize  float64
	Seed      int64
	TrainRows int
	TestRows  int
	Metrics   map[string]float64
}

// Artifact is every piece of fitted state needed to reproduce predictions.
type Artifact struct {
	SchemaVersion int
	Meta          Metadata
	Clean         dataprep.CleanState
	Schema        pipeline.Schema
	Encoding      dataprep.Encoding
	Transform     pipeline.TransformState
	Model         ModelState
}

// New captures a fitted composite. params must be the map the classifier
// was built from.
func New(c *pipeline.Composite, name string, params map[string]any, clean dataprep.CleanState, meta Metadata) (*Artifact, error) {
	if name == "" {
		name = model.DefaultName
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("artifact: encode params: %w", err)
	}
	state, err := c.Model.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("artifact: encode %s: %w", name, err)
	}
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	return &Artifact{
		SchemaVersion: CurrentVersion,
		Meta:          meta,
		Clean:         clean,
		Schema:        c.Schema,
		Encoding:      c.Encoding,
		Transform:     c.Transform,
		Model:         ModelState{Name: name, Params: rawParams, State: state},
	}, nil
}

// Params decodes the stored hyperparameters.
func (a *Artifact) Params() (map[string]any, error) {
	var p map[string]any
	if len(a.Model.Params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(a.Model.Params, &p); err != nil {
		return nil, fmt.Errorf("artifact: decode params: %w", err)
	}
	return p, nil
}

// Composite rebuilds the transform-then-classify unit. No fit step runs.
func (a *Artifact) Composite(logger *log.Logger) (*pipeline.Composite, error) {
	params, err := a.Params()
	if err != nil {
		return nil, err
	}
	clf, err := model.New(a.Model.Name, params, logger)
	if err != nil {
		return nil, err
	}
	if err := clf.UnmarshalBinary(a.Model.State); err != nil {
		return nil, fmt.Errorf("artifact: decode %s state: %w", a.Model.Name, err)
	}
	return &pipeline.Composite{
		Schema:    a.Schema,
		Encoding:  a.Encoding,
		Transform: a.Transform,
		Model:     clf,
	}, nil
}
