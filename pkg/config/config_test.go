package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Training.TestSize != 0.30 || cfg.Training.RandomState != 40 {
		t.Fatalf("training defaults = %+v", cfg.Training)
	}
	if cfg.Model.Name != "gradient_boosting" || cfg.Features.Target != "Churn" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
paths:
  raw_data: data/raw/test.csv
training:
  random_state: 7
model:
  name: random_forest
  params:
    n_estimators: 50
    bootstrap: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.RawData != "data/raw/test.csv" {
		t.Fatalf("raw_data = %q", cfg.Paths.RawData)
	}
	if cfg.Paths.Model != "models/model.gob" || cfg.Training.TestSize != 0.30 {
		t.Fatal("unset keys lost their defaults")
	}
	if cfg.Model.Params["n_estimators"] != 50 || cfg.Model.Params["bootstrap"] != false {
		t.Fatalf("params = %v", cfg.Model.Params)
	}
	p := cfg.ModelParams()
	if p["random_state"] != int64(7) {
		t.Fatalf("random_state not threaded into params: %v", p)
	}
	if _, ok := cfg.Model.Params["random_state"]; ok {
		t.Fatal("ModelParams modified the configured map")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHURN_MODEL_PATH", "/tmp/other.gob")
	t.Setenv("CHURN_TEST_SIZE", "0.2")
	t.Setenv("CHURN_RANDOM_STATE", "123")
	t.Setenv("CHURN_TRACKING_ENDPOINT", "log")
	cfg, err := Load(writeConfig(t, "training:\n  test_size: 0.4\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Model != "/tmp/other.gob" || cfg.Training.TestSize != 0.2 ||
		cfg.Training.RandomState != 123 || cfg.Tracking.Endpoint != "log" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("CHURN_TEST_SIZE", "a third")
	if _, err := Load(""); !errors.Is(err, errs.ErrConfig) {
		t.Fatalf("bad env number: expected config error, got %v", err)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "paths:\n  raw_dta: x.csv\n",
		"bad fraction":     "training:\n  test_size: 1.5\n",
		"empty model path": "paths:\n  model: \"\"\n",
		"no numeric cols":  "features:\n  numerical: []\n",
		"duplicate col":    "features:\n  numerical: [tenure, tenure]\n",
		"unknown model":    "model:\n  name: svm\n",
		"bad yaml":         "training: [\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); !errors.Is(err, errs.ErrConfig) {
			t.Fatalf("%s: expected config error, got %v", name, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, errs.ErrIO) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestShippedDefaultConfig(t *testing.T) {
	path := filepath.Join("..", "..", DefaultPath)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s): %v", path, err)
	}
	if cfg.Paths.RawData == "" || len(cfg.Features.Numerical) != 3 || cfg.Model.Name == "" || cfg.Tracking.RunName == "" {
		t.Fatalf("shipped config is missing a section: %+v", cfg)
	}
}
