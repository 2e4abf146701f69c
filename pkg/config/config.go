// Package config loads the typed pipeline configuration from YAML with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/model"
)

// DefaultPath is where the shipped configuration lives.
const DefaultPath = "config/default.yaml"

type Config struct {
	Paths    Paths    `yaml:"paths"`
	Training Training `yaml:"training"`
	Features Features `yaml:"features"`
	Model    Model    `yaml:"model"`
	Tracking Tracking `yaml:"experiment_tracking"`
}

type Paths struct {
	RawData       string `yaml:"raw_data"`
	ProcessedData string `yaml:"processed_data"`
	Model         string `yaml:"model"`
}

type Training struct {
	TestSize    float64 `yaml:"test_size"`
	RandomState int64   `yaml:"random_state"`
}

type Features struct {
	Numerical []string `yaml:"numerical"`
	Target    string   `yaml:"target"`
}

type Model struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

type Tracking struct {
	Endpoint string `yaml:"endpoint"`
	RunName  string `yaml:"run_name"`
}

// Default returns the configuration used when no file sets a field.
func Default() Config {
	return Config{
		Paths: Paths{
			RawData:       "data/raw/WA_Fn-UseC_-Telco-Customer-Churn.csv",
			ProcessedData: "data/processed/churn_processed.csv",
			Model:         "models/model.gob",
		},
		Training: Training{TestSize: 0.30, RandomState: 40},
		Features: Features{
			Numerical: []string{"tenure", "MonthlyCharges", "TotalCharges"},
			Target:    "Churn",
		},
		Model: Model{Name: model.DefaultName},
	}
}

// Load reads path over the defaults, applies CHURN_* environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errs.IO(path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return Config{}, errs.WithPath(err, path)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errs.WithPath(err, path)
	}
	return cfg, nil
}

// decode rejects keys the Config does not declare.
func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return &errs.Error{Kind: errs.ErrConfig, Msg: "parse yaml", Err: err}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.Paths.RawData, "CHURN_RAW_DATA")
	envOverride(&cfg.Paths.ProcessedData, "CHURN_PROCESSED_DATA")
	envOverride(&cfg.Paths.Model, "CHURN_MODEL_PATH")
	envOverride(&cfg.Model.Name, "CHURN_MODEL_NAME")
	envOverride(&cfg.Tracking.Endpoint, "CHURN_TRACKING_ENDPOINT")
	envOverride(&cfg.Tracking.RunName, "CHURN_RUN_NAME")
	if err := envOverrideFloat(&cfg.Training.TestSize, "CHURN_TEST_SIZE"); err != nil {
		return err
	}
	return envOverrideInt64(&cfg.Training.RandomState, "CHURN_RANDOM_STATE")
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return errs.Configf(envKey, "invalid number %q", val)
		}
		*field = parsed
	}
	return nil
}

func envOverrideInt64(field *int64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return errs.Configf(envKey, "invalid integer %q", val)
		}
		*field = parsed
	}
	return nil
}

// Validate reports the first missing or invalid field.
func (c Config) Validate() error {
	required := []struct{ key, val string }{
		{"paths.raw_data", c.Paths.RawData},
		{"paths.processed_data", c.Paths.ProcessedData},
		{"paths.model", c.Paths.Model},
		{"features.target", c.Features.Target},
		{"model.name", c.Model.Name},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return errs.Configf(r.key, "is required")
		}
	}
	if !(c.Training.TestSize > 0 && c.Training.TestSize < 1) {
		return errs.Configf("training.test_size", "must be in (0, 1), got %v", c.Training.TestSize)
	}
	if len(c.Features.Numerical) == 0 {
		return errs.Configf("features.numerical", "needs at least one column")
	}
	seen := map[string]bool{}
	for _, n := range c.Features.Numerical {
		if n == "" || seen[n] {
			return errs.Configf("features.numerical", "empty or duplicate column %q", n)
		}
		if n == c.Features.Target {
			return errs.Configf("features.numerical", "target %q cannot be a feature", n)
		}
		seen[n] = true
	}
	if !slices.Contains(model.Names(), c.Model.Name) {
		return errs.Configf("model.name", "unknown classifier %q (known: %s)", c.Model.Name, strings.Join(model.Names(), ", "))
	}
	return nil
}

// ModelParams returns the configured hyperparameters with random_state
// filled from training.random_state when absent. The configured map is
// not modified.
func (c Config) ModelParams() map[string]any {
	out := make(map[string]any, len(c.Model.Params)+1)
	for k, v := range c.Model.Params {
		out[k] = v
	}
	if _, ok := out["random_state"]; !ok {
		out["random_state"] = c.Training.RandomState
	}
	return out
}
