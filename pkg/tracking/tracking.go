// Package tracking records run parameters, metrics and artifacts to an
// experiment-tracking backend. The pipeline only sees the Sink interface.
package tracking

import (
	"context"
	"io"
	"log"
	"strings"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// Sink is the narrow surface the pipeline records through.
type Sink interface {
	RecordParam(name string, value any) error
	RecordMetric(name string, value float64) error
	RecordArtifact(path string) error
	Close() error
}

// Open picks a backend from the configured endpoint:
//
//	"" or "none"        no tracking
//	"log"               log lines through logger
//	"sqlite://<path>"   SQLite database at path
//	"<path>.db"         same as sqlite://<path>.db
func Open(ctx context.Context, endpoint, runName string, logger *log.Logger) (Sink, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case endpoint == "" || strings.EqualFold(endpoint, "none"):
		return Nop{}, nil
	case strings.EqualFold(endpoint, "log"):
		return &LogSink{Logger: logger, Run: runName}, nil
	case strings.HasPrefix(endpoint, "sqlite://"):
		path := strings.TrimPrefix(endpoint, "sqlite://")
		if path == "" {
			return nil, errs.Configf("experiment_tracking.endpoint", "sqlite endpoint has no path")
		}
		return OpenSQLite(ctx, path, runName)
	case strings.HasSuffix(endpoint, ".db"):
		return OpenSQLite(ctx, endpoint, runName)
	}
	return nil, errs.Configf("experiment_tracking.endpoint", "unsupported endpoint %q (use none, log, sqlite://<path> or a .db file)", endpoint)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordParam(string, any) error      { return nil }
func (Nop) RecordMetric(string, float64) error { return nil }
func (Nop) RecordArtifact(string) error        { return nil }
func (Nop) Close() error                       { return nil }

// LogSink writes one log line per record.
type LogSink struct {
	Logger *log.Logger
	Run    string
}

func (s *LogSink) RecordParam(name string, value any) error {
	s.Logger.Printf("tracking[%s] param %s=%v", s.Run, name, value)
	return nil
}

func (s *LogSink) RecordMetric(name string, value float64) error {
	s.Logger.Printf("tracking[%s] metric %s=%.6g", s.Run, name, value)
	return nil
}

func (s *LogSink) RecordArtifact(path string) error {
	s.Logger.Printf("tracking[%s] artifact %s", s.Run, path)
	return nil
}

func (s *LogSink) Close() error { return nil }

// BestEffort wraps a sink so record failures are logged instead of
// returned. Tracking is never on the critical path of a stage.
func BestEffort(s Sink, logger *log.Logger) Sink {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return bestEffort{s: s, logger: logger}
}

type bestEffort struct {
	s      Sink
	logger *log.Logger
}

func (b bestEffort) RecordParam(name string, value any) error {
	if err := b.s.RecordParam(name, value); err != nil {
		b.logger.Printf("tracking: param %s not recorded: %v", name, err)
	}
	return nil
}

func (b bestEffort) RecordMetric(name string, value float64) error {
	if err := b.s.RecordMetric(name, value); err != nil {
		b.logger.Printf("tracking: metric %s not recorded: %v", name, err)
	}
	return nil
}

func (b bestEffort) RecordArtifact(path string) error {
	if err := b.s.RecordArtifact(path); err != nil {
		b.logger.Printf("tracking: artifact %s not recorded: %v", path, err)
	}
	return nil
}

func (b bestEffort) Close() error {
	if err := b.s.Close(); err != nil {
		b.logger.Printf("tracking: close: %v", err)
	}
	return nil
}
