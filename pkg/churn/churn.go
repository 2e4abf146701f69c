// Package churn runs the pipeline stages: preprocess, train, evaluate,
// predict and inspect. Each stage reads its inputs from disk, so stages can
// run in separate processes.
package churn

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/artifact"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/config"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/dataprep"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/loader"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/model"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/pipeline"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/report"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/tracking"
)

// Runner carries what every stage shares.
type Runner struct {
	Config config.Config
	Store  artifact.Store
	Sink   tracking.Sink
	Logger *log.Logger
}

// NewRunner returns a runner with the current artifact store and no tracking.
func NewRunner(cfg config.Config, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{Config: cfg, Store: artifact.NewStore(), Sink: tracking.Nop{}, Logger: logger}
}

func (r *Runner) cleaner() *dataprep.Cleaner {
	return dataprep.NewCleaner(r.Logger)
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// PreprocessResult summarizes one preprocess run.
type PreprocessResult struct {
	Output   string
	Rows     int
	Dropped  int
	Encoding dataprep.Encoding
}

// Preprocess cleans the raw table, integer-codes every categorical column
// and the label, and writes the processed table. The file is for
// inspection; training always starts from raw data. The encoding
// fingerprint is logged so the file can be matched to an artifact, whose
// inspect output prints the same value.
func (r *Runner) Preprocess(ctx context.Context, input, output string) (*PreprocessResult, error) {
	input = or(input, r.Config.Paths.RawData)
	output = or(output, r.Config.Paths.ProcessedData)
	target := r.Config.Features.Target

	raw, err := data.ReadCSV(input, dataprep.DefaultSpec().TextColumns()...)
	if err != nil {
		return nil, err
	}
	cleaned, err := r.cleaner().Clean(raw)
	if err != nil {
		return nil, errs.WithPath(err, input)
	}
	y, err := dataprep.EncodeLabel(cleaned.Frame, target)
	if err != nil {
		return nil, errs.WithPath(err, input)
	}
	enc := dataprep.FitEncoding(cleaned.Frame, target)
	applied, err := enc.Apply(cleaned.Frame, target)
	if err != nil {
		return nil, errs.WithPath(err, input)
	}
	labels := make([]float64, len(y))
	for i, v := range y {
		labels[i] = float64(v)
	}
	out, err := applied.Frame.With(data.NumericColumn(target, labels))
	if err != nil {
		return nil, err
	}
	if err := data.WriteCSV(output, out); err != nil {
		return nil, err
	}
	r.Logger.Printf("preprocess: wrote %d rows x %d columns to %s (encoding %.12s)", out.Len(), out.Width(), output, enc.Fingerprint())
	return &PreprocessResult{
		Output:   output,
		Rows:     out.Len(),
		Dropped:  cleaned.DroppedZeroTenure,
		Encoding: enc,
	}, nil
}

// TrainOptions overrides configured paths for one training run.
type TrainOptions struct {
	Input  string
	Output string
	// ImportancePlot, when set, receives a feature-importance chart.
	ImportancePlot string
}

// TrainResult is the saved artifact and its held-out evaluation.
type TrainResult struct {
	Path     string
	Artifact *artifact.Artifact
	Report   model.Report
}

// Train runs the whole fit side from raw data: clean, split, fit the
// encoding, transform and classifier, score the held-out rows and save one
// artifact.
func (r *Runner) Train(ctx context.Context, opts TrainOptions) (*TrainResult, error) {
	cfg := r.Config
	input := or(opts.Input, cfg.Paths.RawData)
	output := or(opts.Output, cfg.Paths.Model)
	target := cfg.Features.Target
	start := time.Now()

	raw, err := data.ReadCSV(input, dataprep.DefaultSpec().TextColumns()...)
	if err != nil {
		return nil, err
	}
	cleaned, err := r.cleaner().Clean(raw)
	if err != nil {
		return nil, errs.WithPath(err, input)
	}
	y, err := dataprep.EncodeLabel(cleaned.Frame, target)
	if err != nil {
		return nil, errs.WithPath(err, input)
	}
	features := cleaned.Frame.Drop(target)

	train, test, err := loader.StratifiedSplit(y, cfg.Training.TestSize, cfg.Training.RandomState)
	if err != nil {
		return nil, err
	}
	counts := loader.ClassCounts(y, train)
	r.Logger.Printf("train: %d train rows (%d churn), %d test rows", len(train), counts[dataprep.Churn], len(test))

	params := cfg.ModelParams()
	trainer := model.Trainer{Name: cfg.Model.Name, Params: params, Logger: r.Logger}
	comp, err := pipeline.Fit(features, y, train, cfg.Features.Numerical, trainer)
	if err != nil {
		return nil, err
	}

	labels, proba, _, err := comp.Predict(features.Take(test))
	if err != nil {
		return nil, err
	}
	rep := model.Evaluate(loader.Gather(y, test), labels, proba, dataprep.LabelName)
	r.Logger.Printf("train: %s fitted in %s, test accuracy %.4f", cfg.Model.Name, time.Since(start).Round(time.Millisecond), rep.Accuracy)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a, err := artifact.New(comp, cfg.Model.Name, params, cleaned.State, artifact.Metadata{
		Target:    target,
		TestSize:  cfg.Training.TestSize,
		Seed:      cfg.Training.RandomState,
		TrainRows: len(train),
		TestRows:  len(test),
		Metrics:   rep.Metrics(),
	})
	if err != nil {
		return nil, err
	}
	if err := r.Store.Save(a, output); err != nil {
		return nil, err
	}
	r.Logger.Printf("train: saved artifact %s to %s", a.Meta.ID, output)

	if opts.ImportancePlot != "" {
		names, values := comp.Importances()
		if names == nil {
			r.Logger.Printf("train: %s has no feature importances, skipping chart", cfg.Model.Name)
		} else if err := report.ImportanceChart(names, values, 15, opts.ImportancePlot); err != nil {
			return nil, err
		}
	}

	r.track(cfg.Model.Name, params, rep.Metrics(), output)
	return &TrainResult{Path: output, Artifact: a, Report: rep}, nil
}

// track records one training run. Sink failures are logged by the
// best-effort wrapper and never fail the stage.
func (r *Runner) track(name string, params map[string]any, metrics map[string]float64, path string) {
	sink := tracking.BestEffort(r.Sink, r.Logger)
	sink.RecordParam("model.name", name)
	sink.RecordParam("training.test_size", r.Config.Training.TestSize)
	sink.RecordParam("training.random_state", r.Config.Training.RandomState)
	for _, k := range sortedKeys(params) {
		sink.RecordParam("model.params."+k, params[k])
	}
	for _, k := range sortedKeys(metrics) {
		sink.RecordMetric(k, metrics[k])
	}
	sink.RecordArtifact(path)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// loaded is an artifact plus its rebuilt composite.
type loaded struct {
	path      string
	artifact  *artifact.Artifact
	composite *pipeline.Composite
}

// textColumns names the raw columns read as text at inference: the
// identifier and every column the artifact recorded as categorical.
func (m *loaded) textColumns() []string {
	return append(dataprep.DefaultSpec().TextColumns(), m.artifact.Schema.Categorical()...)
}

func (r *Runner) load(path string) (*loaded, error) {
	path = or(path, r.Config.Paths.Model)
	a, err := r.Store.Load(path)
	if err != nil {
		return nil, err
	}
	c, err := a.Composite(r.Logger)
	if err != nil {
		return nil, errs.WithPath(err, path)
	}
	return &loaded{path: path, artifact: a, composite: c}, nil
}

// EvaluateOptions selects the data and model for one evaluation.
type EvaluateOptions struct {
	Input string
	Model string
	// All scores every cleaned row instead of the reproduced test split.
	All bool
	// Plot, when set, receives a bar chart of the headline scores.
	Plot string
}

// EvaluateResult is the report plus how many values were unseen at fit time.
type EvaluateResult struct {
	Report  model.Report
	Unknown map[string]int
}

// Evaluate scores a saved artifact against labelled raw data. By default it
// reproduces the training split from the artifact's test size and seed and
// scores the test rows.
func (r *Runner) Evaluate(ctx context.Context, opts EvaluateOptions) (*EvaluateResult, error) {
	input := or(opts.Input, r.Config.Paths.RawData)
	m, err := r.load(opts.Model)
	if err != nil {
		return nil, err
	}
	meta := m.artifact.Meta

	raw, err := data.ReadCSV(input, m.textColumns()...)
	if err != nil {
		return nil, err
	}
	if !raw.Has(meta.Target) {
		return nil, errs.WithPath(errs.Schemaf(meta.Target, "evaluation needs the label column"), input)
	}
	cleaned, err := r.cleaner().CleanWith(raw, m.artifact.Clean)
	if err != nil {
		return nil, errs.WithPath(err, input)
	}
	y, err := dataprep.EncodeLabel(cleaned.Frame, meta.Target)
	if err != nil {
		return nil, errs.WithPath(err, input)
	}
	features := cleaned.Frame.Drop(meta.Target)

	rows := make([]int, len(y))
	for i := range rows {
		rows[i] = i
	}
	if !opts.All {
		if _, rows, err = loader.StratifiedSplit(y, meta.TestSize, meta.Seed); err != nil {
			return nil, err
		}
	}

	labels, proba, prep, err := m.composite.Predict(features.Take(rows))
	if err != nil {
		return nil, errs.WithPath(err, input)
	}
	logUnknown(r.Logger, "evaluate", prep.Unknown)
	rep := model.Evaluate(loader.Gather(y, rows), labels, proba, dataprep.LabelName)
	r.Logger.Printf("evaluate: %d rows, accuracy %.4f", rep.N, rep.Accuracy)

	if opts.Plot != "" {
		if err := report.MetricsChart(rep, opts.Plot); err != nil {
			return nil, err
		}
	}
	return &EvaluateResult{Report: rep, Unknown: prep.Unknown}, nil
}

func logUnknown(logger *log.Logger, stage string, unknown map[string]int) {
	for _, col := range sortedKeys(unknown) {
		logger.Printf("%s: %d unseen values in %s encoded as %d", stage, unknown[col], col, dataprep.UnknownCode)
	}
}

// Prediction is the outcome for one cleaned input row.
type Prediction struct {
	Row         int // zero-based data row in the input file
	ID          string
	Label       int
	Probability float64 // probability of churn
}

// PredictResult holds one prediction per cleaned row. Rows the cleaner
// removed (zero tenure) are counted in Skipped.
type PredictResult struct {
	Predictions []Prediction
	Churn       int
	NoChurn     int
	Skipped     int
	Unknown     map[string]int
}

// PredictOptions selects the data and model for one prediction run.
type PredictOptions struct {
	Input string
	Model string
	// Output, when set, receives the predictions as CSV.
	Output string
}

// Predict labels new raw records with a saved artifact. A label column in
// the input is ignored.
func (r *Runner) Predict(ctx context.Context, opts PredictOptions) (*PredictResult, error) {
	input := or(opts.Input, r.Config.Paths.RawData)
	m, err := r.load(opts.Model)
	if err != nil {
		return nil, err
	}
	raw, err := data.ReadCSV(input, m.textColumns()...)
	if err != nil {
		return nil, err
	}
	raw = raw.Drop(m.artifact.Meta.Target)
	cleaned, err := r.cleaner().CleanWith(raw, m.artifact.Clean)
	if err != nil {
		return nil, errs.WithPath(err, input)
	}

	res := &PredictResult{Skipped: cleaned.DroppedZeroTenure, Unknown: map[string]int{}}
	if cleaned.Frame.Len() > 0 {
		labels, proba, prep, err := m.composite.Predict(cleaned.Frame)
		if err != nil {
			return nil, errs.WithPath(err, input)
		}
		logUnknown(r.Logger, "predict", prep.Unknown)
		res.Unknown = prep.Unknown
		res.Predictions = make([]Prediction, len(labels))
		for i, label := range labels {
			res.Predictions[i] = Prediction{Row: cleaned.Rows[i], ID: cleaned.IDs[i], Label: label, Probability: proba[i]}
			if label == dataprep.Churn {
				res.Churn++
			} else {
				res.NoChurn++
			}
		}
	}
	if res.Skipped > 0 {
		r.Logger.Printf("predict: skipped %d zero-tenure rows", res.Skipped)
	}

	if opts.Output != "" {
		if err := writePredictions(opts.Output, res.Predictions); err != nil {
			return nil, err
		}
		r.Logger.Printf("predict: wrote %d predictions to %s", len(res.Predictions), opts.Output)
	}
	return res, nil
}

func writePredictions(path string, preds []Prediction) error {
	rows := make([]float64, len(preds))
	ids := make([]string, len(preds))
	labels := make([]string, len(preds))
	proba := make([]float64, len(preds))
	for i, p := range preds {
		rows[i] = float64(p.Row)
		ids[i] = p.ID
		labels[i] = dataprep.LabelName(p.Label)
		proba[i] = p.Probability
	}
	f, err := data.NewFrame(
		data.NumericColumn("row", rows),
		data.CategoricalColumn("customerID", ids),
		data.CategoricalColumn("prediction", labels),
		data.NumericColumn("churn_probability", proba),
	)
	if err != nil {
		return err
	}
	return data.WriteCSV(path, f)
}

// WriteTo prints one line per prediction followed by the totals.
func (p *PredictResult) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, pr := range p.Predictions {
		c, err := fmt.Fprintf(w, "Row %d (%s): %s (p=%.3f)\n", pr.Row, pr.ID, dataprep.LabelName(pr.Label), pr.Probability)
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	c, err := fmt.Fprintf(w, "%d predictions (%d churn, %d no churn), %d rows skipped\n",
		len(p.Predictions), p.Churn, p.NoChurn, p.Skipped)
	return n + int64(c), err
}

// Inspect loads an artifact's metadata without rebuilding the classifier.
func (r *Runner) Inspect(path string) (*artifact.Artifact, error) {
	return r.Store.Load(or(path, r.Config.Paths.Model))
}

// Describe renders an artifact summary.
func Describe(w io.Writer, a *artifact.Artifact) error {
	params, err := a.Params()
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "artifact   %s (schema v%d)\n", a.Meta.ID, a.SchemaVersion)
	fmt.Fprintf(&b, "created    %s\n", a.Meta.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "model      %s\n", a.Model.Name)
	for _, k := range sortedKeys(params) {
		fmt.Fprintf(&b, "  %-18s %v\n", k, params[k])
	}
	fmt.Fprintf(&b, "target     %s\n", a.Meta.Target)
	fmt.Fprintf(&b, "split      test_size=%.2f seed=%d (%d train, %d test rows)\n",
		a.Meta.TestSize, a.Meta.Seed, a.Meta.TrainRows, a.Meta.TestRows)
	fmt.Fprintf(&b, "features   %d in, %d out\n", len(a.Schema.FeatureNames), len(a.Transform.Columns()))
	fmt.Fprintf(&b, "encoding   %d columns, fingerprint %.12s\n", len(a.Encoding.Columns), a.Encoding.Fingerprint())
	fmt.Fprintf(&b, "fill       %s missing -> %.4f\n", dataprep.DefaultSpec().MonetaryColumn, a.Clean.MonetaryFill)
	b.WriteString("metrics\n")
	for _, k := range sortedKeys(a.Meta.Metrics) {
		fmt.Fprintf(&b, "  %-18s %.4f\n", k, a.Meta.Metrics[k])
	}
	_, err = io.WriteString(w, b.String())
	return err
}
