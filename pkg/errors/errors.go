// Package errors provides the structured error and warning types used
// throughout the omicsfuse pipeline. Error constructors attach stack traces
// via cockroachdb/errors; typed errors implement zerolog's
// LogObjectMarshaler so they can be emitted as structured log fields.
package errors

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		fmt.Printf("omicsfuse-warning: %v\n", w)
	}
	// zerolog sink, registered lazily to avoid an import cycle with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the process-wide warning handler. Warnings are
// non-fatal degenerate-data conditions (e.g. an all-missing annotation
// variable skipped during batch-effect filtering).
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc registers a zerolog-backed warning sink. When set it
// takes precedence over the plain handler.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning through the registered sink.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// DegenerateDataWarning reports a variable or matrix slice that carried no
// usable information and was skipped rather than processed.
type DegenerateDataWarning struct {
	Op       string
	Variable string
	Reason   string
}

func (w *DegenerateDataWarning) Error() string {
	return fmt.Sprintf("omicsfuse: %s: variable %q skipped: %s", w.Op, w.Variable, w.Reason)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *DegenerateDataWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Op).
		Str("variable", w.Variable).
		Str("reason", w.Reason).
		Str("type", "DegenerateDataWarning")
}

// NewDegenerateDataWarning creates a new DegenerateDataWarning.
func NewDegenerateDataWarning(op, variable, reason string) *DegenerateDataWarning {
	return &DegenerateDataWarning{Op: op, Variable: variable, Reason: reason}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError indicates Transform or Apply was called on a transform that
// has not been fitted yet.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("omicsfuse: %s: not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError indicates an input matrix whose shape disagrees with the
// fitted or expected shape.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows/samples, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "samples"
	}
	return fmt.Sprintf("omicsfuse: %s: dimension mismatch on axis %d (%s): expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError indicates an argument value that is invalid for the operation,
// e.g. an out-of-range sample index.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("omicsfuse: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ConfigError indicates an invalid pipeline configuration: required files
// missing from a cohort folder, or an unrecognized option value. Missing
// holds the exact set of absent files when applicable.
type ConfigError struct {
	Op      string
	Missing []string
	Message string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("omicsfuse: %s: missing files: %s", e.Op, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("omicsfuse: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ConfigError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Strs("missing", e.Missing).
		Str("message", e.Message).
		Str("type", "ConfigError")
}

// NewConfigError creates a ConfigError with a stack trace.
func NewConfigError(op, message string) error {
	err := &ConfigError{Op: op, Message: message}
	return errors.WithStack(err)
}

// NewMissingFilesError creates a ConfigError enumerating missing files.
func NewMissingFilesError(op string, missing []string) error {
	err := &ConfigError{Op: op, Missing: missing}
	return errors.WithStack(err)
}

// DataConsistencyError indicates data that violates a pipeline invariant:
// zero common samples after alignment, an empty harmonized feature
// intersection, or a label distribution that cannot produce valid triplets.
type DataConsistencyError struct {
	Op     string
	Reason string
}

func (e *DataConsistencyError) Error() string {
	return fmt.Sprintf("omicsfuse: %s: %s", e.Op, e.Reason)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DataConsistencyError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "DataConsistencyError")
}

// NewDataConsistencyError creates a DataConsistencyError with a stack trace.
func NewDataConsistencyError(op, reason string) error {
	err := &DataConsistencyError{Op: op, Reason: reason}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As reports whether err can be assigned to target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Common sentinel errors.
var (
	// ErrEmptyData is returned when an operation receives an empty matrix.
	ErrEmptyData = New("empty data")
)
