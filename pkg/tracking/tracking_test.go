package tracking

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cases := []struct {
		endpoint string
		want     string
	}{
		{"", "tracking.Nop"},
		{"none", "tracking.Nop"},
		{"log", "*tracking.LogSink"},
		{"sqlite://" + filepath.Join(dir, "a", "runs.db"), "*tracking.SQLiteSink"},
		{filepath.Join(dir, "b.db"), "*tracking.SQLiteSink"},
	}
	for _, c := range cases {
		s, err := Open(ctx, c.endpoint, "test", nil)
		if err != nil {
			t.Fatalf("Open(%q): %v", c.endpoint, err)
		}
		if got := typeName(s); got != c.want {
			t.Fatalf("Open(%q) = %s, want %s", c.endpoint, got, c.want)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close(%q): %v", c.endpoint, err)
		}
	}

	for _, bad := range []string{"http://mlflow:5000", "sqlite://"} {
		if _, err := Open(ctx, bad, "test", nil); !errors.Is(err, errs.ErrConfig) {
			t.Fatalf("Open(%q): expected config error, got %v", bad, err)
		}
	}
}

func typeName(s Sink) string {
	switch s.(type) {
	case Nop:
		return "tracking.Nop"
	case *LogSink:
		return "*tracking.LogSink"
	case *SQLiteSink:
		return "*tracking.SQLiteSink"
	}
	return "unknown"
}

func TestSQLiteSinkPersistsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.db")
	s, err := OpenSQLite(context.Background(), path, "baseline")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	run := s.RunID()
	for _, step := range []error{
		s.RecordParam("model.name", "gradient_boosting"),
		s.RecordParam("n_estimators", 100),
		s.RecordParam("n_estimators", 200),
		s.RecordMetric("accuracy", 0.81),
		s.RecordMetric("f1_1", 0.58),
		s.RecordArtifact("models/model.gob"),
	} {
		if step != nil {
			t.Fatalf("record: %v", step)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := InitDB(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var value string
	if err := db.QueryRow(`SELECT value FROM params WHERE run_id = ? AND name = 'n_estimators'`, run).Scan(&value); err != nil {
		t.Fatalf("query param: %v", err)
	}
	if value != "200" {
		t.Fatalf("n_estimators = %q, want last value", value)
	}
	var acc float64
	if err := db.QueryRow(`SELECT value FROM metrics WHERE run_id = ? AND name = 'accuracy'`, run).Scan(&acc); err != nil {
		t.Fatalf("query metric: %v", err)
	}
	if acc != 0.81 {
		t.Fatalf("accuracy = %v", acc)
	}
	var artifact string
	if err := db.QueryRow(`SELECT path FROM artifacts WHERE run_id = ?`, run).Scan(&artifact); err != nil {
		t.Fatalf("query artifact: %v", err)
	}
	if !strings.HasSuffix(artifact, filepath.Join("models", "model.gob")) {
		t.Fatalf("artifact path = %q", artifact)
	}
	var finished int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs WHERE id = ? AND finished_at IS NOT NULL`, run).Scan(&finished); err != nil {
		t.Fatalf("query run: %v", err)
	}
	if finished != 1 {
		t.Fatal("run not marked finished")
	}
}

type failing struct{ Nop }

func (failing) RecordMetric(string, float64) error { return errors.New("backend down") }

func TestBestEffortLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	s := BestEffort(failing{}, log.New(&buf, "", 0))
	if err := s.RecordMetric("accuracy", 1); err != nil {
		t.Fatalf("BestEffort returned %v", err)
	}
	if !strings.Contains(buf.String(), "backend down") {
		t.Fatalf("failure not logged: %q", buf.String())
	}

	buf.Reset()
	ls := &LogSink{Logger: log.New(&buf, "", 0), Run: "r1"}
	_ = ls.RecordParam("seed", 42)
	if !strings.Contains(buf.String(), "tracking[r1] param seed=42") {
		t.Fatalf("log sink output = %q", buf.String())
	}
}
