// Package report renders evaluation and training charts with gonum/plot.
package report

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/model"
)

var barColor = color.RGBA{R: 50, G: 90, B: 200, A: 255}

// MetricsChart draws the headline evaluation scores as a bar chart.
func MetricsChart(r model.Report, path string) error {
	names := []string{"accuracy", "precision", "recall", "f1", "macro f1"}
	churn := r.Classes[1]
	vals := plotter.Values{r.Accuracy, churn.Precision, churn.Recall, churn.F1, r.Macro.F1}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Evaluation on %d rows (positive class: %s)", r.N, churn.Name)
	p.Y.Label.Text = "score"
	p.Y.Min, p.Y.Max = 0, 1

	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return err
	}
	bars.Color = barColor
	p.Add(bars)
	p.NominalX(names...)
	return save(p, 5*vg.Inch, 4*vg.Inch, path)
}

// ImportanceChart draws the top features by importance, largest first.
// top <= 0 keeps every feature.
func ImportanceChart(names []string, values []float64, top int, path string) error {
	if len(names) != len(values) || len(names) == 0 {
		return fmt.Errorf("report: %d names for %d importances", len(names), len(values))
	}
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })
	if top > 0 && top < len(order) {
		order = order[:top]
	}

	// horizontal bars are drawn bottom-up, so reverse to put the largest on top
	vals := make(plotter.Values, len(order))
	labels := make([]string, len(order))
	for k, i := range order {
		vals[len(order)-1-k] = values[i]
		labels[len(order)-1-k] = names[i]
	}

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.X.Label.Text = "share of total split gain"

	bars, err := plotter.NewBarChart(vals, vg.Points(12))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = barColor
	p.Add(bars)
	p.NominalY(labels...)
	height := vg.Length(0.3*float64(len(order)))*vg.Inch + vg.Inch
	return save(p, 6*vg.Inch, height, path)
}

// save renders in the format named by the file extension and writes it
// atomically.
func save(p *plot.Plot, w, h vg.Length, path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "png", "svg", "pdf", "jpg", "jpeg":
	default:
		return fmt.Errorf("report: unsupported chart format %q", filepath.Ext(path))
	}
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return err
	}
	return data.WriteFileAtomic(path, func(out io.Writer) error {
		_, err := wt.WriteTo(out)
		return err
	})
}
