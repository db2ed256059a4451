package sweep

import (
	"errors"
	"fmt"
)

// Error is a sweep failure with a category code.
//
// Configuration and collision errors are raised before anything is
// submitted. Chain artifact errors are raised while resolving over-LoRA
// points. Submission failures end a running sweep.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Point is the sweep point involved, if any.
	Point *Point

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes sweep errors.
type ErrorCode string

const (
	// ErrCodeConfiguration covers unknown shots, malformed base configs,
	// unknown backend selectors and inconsistent sweep axes.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeOutputCollision means two sweep points resolve to the same
	// output directory.
	ErrCodeOutputCollision ErrorCode = "OUTPUT_COLLISION"

	// ErrCodeChainArtifact means a trainer state file exists but cannot be
	// used to chain a LoRA run.
	ErrCodeChainArtifact ErrorCode = "CHAIN_ARTIFACT"

	// ErrCodeSubmissionFailed means the execution backend rejected a run.
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
)

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Point != nil {
		msg = fmt.Sprintf("%s (point %d: %s)", msg, e.Point.Index, e.Point.OutputDir())
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates an Error with ErrCodeConfiguration.
func NewConfigurationError(message string, err error) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: message, Err: err}
}

// NewChainArtifactError creates an Error with ErrCodeChainArtifact.
func NewChainArtifactError(p Point, message string, err error) *Error {
	return &Error{Code: ErrCodeChainArtifact, Message: message, Point: &p, Err: err}
}

// NewSubmissionError creates an Error with ErrCodeSubmissionFailed. The
// message names the command line that failed.
func NewSubmissionError(p Point, commandLine string, err error) *Error {
	return &Error{
		Code:    ErrCodeSubmissionFailed,
		Message: "error running command: " + commandLine,
		Point:   &p,
		Err:     err,
	}
}

// NewCollisionError creates an Error for two points sharing an output dir.
func NewCollisionError(first, second Point) *Error {
	return &Error{
		Code:    ErrCodeOutputCollision,
		Message: fmt.Sprintf("points %d and %d share output_dir %s", first.Index, second.Index, second.OutputDir()),
		Point:   &second,
	}
}

func hasCode(err error, codes ...ErrorCode) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.Code == c {
			return true
		}
	}
	return false
}

// IsConfigurationError reports whether err is a configuration or output
// collision error. Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration, ErrCodeOutputCollision)
}

// IsChainArtifactError reports whether err is a chain artifact error.
func IsChainArtifactError(err error) bool {
	return hasCode(err, ErrCodeChainArtifact)
}

// IsSubmissionFailure reports whether err is a submission failure.
func IsSubmissionFailure(err error) bool {
	return hasCode(err, ErrCodeSubmissionFailed)
}
