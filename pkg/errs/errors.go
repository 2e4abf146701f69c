// Package errs defines the failure kinds shared by every pipeline stage.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfig          = errors.New("config error")
	ErrSchema          = errors.New("schema error")
	ErrSplit           = errors.New("split error")
	ErrArtifactVersion = errors.New("artifact version error")
	ErrIO              = errors.New("io error")
)

// Exit codes used by the command surface.
const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitConfig          = 2
	ExitSchema          = 3
	ExitSplit           = 4
	ExitArtifactVersion = 5
	ExitIO              = 6
)

// Error carries a failure kind plus the offending path and column or key.
type Error struct {
	Kind  error
	Path  string // file involved, if any
	Field string // column name or config key, if any
	Msg   string
	Err   error // underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{e.Kind.Error()}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("%q", e.Field))
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Schemaf reports a missing or mistyped column.
func Schemaf(column, format string, args ...any) error {
	return &Error{Kind: ErrSchema, Field: column, Msg: fmt.Sprintf(format, args...)}
}

// Configf reports a missing or invalid configuration key.
func Configf(key, format string, args ...any) error {
	return &Error{Kind: ErrConfig, Field: key, Msg: fmt.Sprintf(format, args...)}
}

// Splitf reports an invalid split request.
func Splitf(format string, args ...any) error {
	return &Error{Kind: ErrSplit, Msg: fmt.Sprintf(format, args...)}
}

// IO wraps a file system or decoding failure for path.
func IO(path string, err error) error {
	return &Error{Kind: ErrIO, Path: path, Err: err}
}

// IOf reports an unreadable file without an underlying cause.
func IOf(path, format string, args ...any) error {
	return &Error{Kind: ErrIO, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Version reports an artifact written with an unsupported schema version.
func Version(path string, got, want int) error {
	return &Error{
		Kind: ErrArtifactVersion,
		Path: path,
		Msg:  fmt.Sprintf("schema version %d is not supported (want %d)", got, want),
	}
}

// WithPath attaches path to err when err is an *Error without one.
func WithPath(err error, path string) error {
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		cp := *e
		cp.Path = path
		return &cp
	}
	return err
}

// ExitCode maps err to the process exit code for its kind.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrConfig):
		return ExitConfig
	case errors.Is(err, ErrSchema):
		return ExitSchema
	case errors.Is(err, ErrSplit):
		return ExitSplit
	case errors.Is(err, ErrArtifactVersion):
		return ExitArtifactVersion
	case errors.Is(err, ErrIO):
		return ExitIO
	}
	return ExitFailure
}
