package artifact

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/dataprep"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/loader"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/model"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/pipeline"
)

var discard = log.New(io.Discard, "", 0)

func fitted(t *testing.T, name string, params map[string]any) (*Artifact, *pipeline.Composite, *data.Frame) {
	t.Helper()
	rnd := rand.New(rand.NewSource(11))
	n := 80
	tenure := make([]float64, n)
	monthly := make([]float64, n)
	contract := make([]string, n)
	y := make([]int, n)
	for i := range tenure {
		tenure[i] = float64(1 + rnd.Intn(72))
		monthly[i] = 20 + 100*rnd.Float64()
		contract[i] = []string{"Month-to-month", "One year", "Two year"}[rnd.Intn(3)]
		if contract[i] == "Month-to-month" && monthly[i] > 60 {
			y[i] = 1
		}
	}
	f, err := data.NewFrame(
		data.NumericColumn("tenure", tenure),
		data.CategoricalColumn("Contract", contract),
		data.NumericColumn("MonthlyCharges", monthly),
	)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	train, test, err := loader.StratifiedSplit(y, 0.25, 42)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	c, err := pipeline.Fit(f, y, train, []string{"tenure", "MonthlyCharges"},
		model.Trainer{Name: name, Params: params, Logger: discard})
	if err != nil {
		t.Fatalf("pipeline.Fit: %v", err)
	}
	a, err := New(c, name, params, dataprep.CleanState{MonetaryFill: 1397.5}, Metadata{
		Target: "Churn", TestSize: 0.25, Seed: 42, TrainRows: len(train), TestRows: len(test),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, c, f
}

func TestRoundTripReproducesPredictions(t *testing.T) {
	for _, name := range model.Names() {
		params := map[string]any{"n_estimators": 10}
		a, c, f := fitted(t, name, params)
		path := filepath.Join(t.TempDir(), "models", "model.gob")

		if err := NewStore().Save(a, path); err != nil {
			t.Fatalf("%s: Save: %v", name, err)
		}
		loaded, err := NewStore().Load(path)
		if err != nil {
			t.Fatalf("%s: Load: %v", name, err)
		}
		if loaded.Encoding.Fingerprint() != c.Encoding.Fingerprint() {
			t.Fatalf("%s: encoding changed across save/load", name)
		}
		if loaded.Clean.MonetaryFill != 1397.5 || loaded.Meta.ID == "" || loaded.Meta.ID != a.Meta.ID {
			t.Fatalf("%s: metadata lost: %+v %+v", name, loaded.Clean, loaded.Meta)
		}
		restored, err := loaded.Composite(discard)
		if err != nil {
			t.Fatalf("%s: Composite: %v", name, err)
		}

		want, wantP, _, err := c.Predict(f)
		if err != nil {
			t.Fatalf("%s: Predict: %v", name, err)
		}
		got, gotP, _, err := restored.Predict(f)
		if err != nil {
			t.Fatalf("%s: Predict restored: %v", name, err)
		}
		for i := range want {
			if want[i] != got[i] || wantP[i] != gotP[i] {
				t.Fatalf("%s: row %d: (%d, %v) after reload, want (%d, %v)", name, i, got[i], gotP[i], want[i], wantP[i])
			}
		}
	}
}

func TestLoadRejectsOtherVersions(t *testing.T) {
	a, _, _ := fitted(t, model.DefaultName, nil)
	dir := t.TempDir()

	path := filepath.Join(dir, "v2.gob")
	if err := (Store{Version: 2}).Save(a, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := (Store{Version: 3}).Load(path)
	if !errors.Is(err, errs.ErrArtifactVersion) {
		t.Fatalf("expected version error, got %v", err)
	}
	if got != nil {
		t.Fatal("partial artifact returned")
	}

	legacy := filepath.Join(dir, "v1.gob")
	if err := (Store{Version: LegacyVersion}).Save(a, legacy); err != nil {
		t.Fatalf("Save legacy: %v", err)
	}
	if _, err := NewStore().Load(legacy); !errors.Is(err, errs.ErrArtifactVersion) {
		t.Fatalf("legacy artifact: expected version error, got %v", err)
	}
}

func TestLoadDetectsDamage(t *testing.T) {
	a, _, _ := fitted(t, "decision_tree", nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")
	if err := NewStore().Save(a, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore().Load(path); !errors.Is(err, errs.ErrIO) {
		t.Fatalf("corrupt payload: expected io error, got %v", err)
	}

	junk := filepath.Join(dir, "junk.gob")
	if err := os.WriteFile(junk, []byte("customerID,tenure\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore().Load(junk); !errors.Is(err, errs.ErrIO) {
		t.Fatalf("junk file: expected io error, got %v", err)
	}

	_, err = NewStore().Load(filepath.Join(dir, "absent.gob"))
	if !errors.Is(err, errs.ErrIO) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file: %v", err)
	}
}

func TestParamsSurviveAsGiven(t *testing.T) {
	a, _, _ := fitted(t, "random_forest", map[string]any{"n_estimators": 5, "max_depth": 4})
	p, err := a.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if p["n_estimators"] != float64(5) || p["max_depth"] != float64(4) {
		t.Fatalf("params = %v", p)
	}
	if a.Model.Name != "random_forest" {
		t.Fatalf("model name = %q", a.Model.Name)
	}
}
