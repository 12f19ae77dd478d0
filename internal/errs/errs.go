// Package errs defines the error kinds of the report pipeline. Fatal
// kinds (ConfigurationError, FatalIOError) end the run with a non-zero
// exit code, the others are collected as warnings next to a report
// which is still generated.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError is returned before any pipeline work starts when a
// required path is missing or a setting (e.g. an exclusion pattern) is
// malformed.
type ConfigurationError struct {
	Setting string
	err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration of %s: %v", e.Setting, e.err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.err
}

// NewConfigurationError creates a ConfigurationError for the given
// setting with a formatted message.
func NewConfigurationError(setting string, format string, a ...any) error {
	return &ConfigurationError{Setting: setting, err: errors.Errorf(format, a...)}
}

// WrapConfigurationError wraps err as a ConfigurationError.
func WrapConfigurationError(setting string, err error) error {
	return &ConfigurationError{Setting: setting, err: errors.WithStack(err)}
}

// FatalIOError is returned when an execution data file can't be read
// or a report output can't be written. Stage is "merge" or
// "render:<format>".
type FatalIOError struct {
	Stage string
	Path  string
	err   error
}

func (e *FatalIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Path, e.err)
}

func (e *FatalIOError) Unwrap() error {
	return e.err
}

func WrapFatalIOError(stage, path string, err error) error {
	if err == nil {
		return nil
	}
	var fatalErr *FatalIOError
	if errors.As(err, &fatalErr) && fatalErr.Stage == stage {
		return err
	}
	return &FatalIOError{Stage: stage, Path: path, err: err}
}

// DiscoveryError reports a subtree of the classes directory that could
// not be listed. The subtree is skipped and discovery continues.
type DiscoveryError struct {
	Dir string
	err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to list %s: %v", e.Dir, e.err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.err
}

func WrapDiscoveryError(dir string, err error) error {
	return &DiscoveryError{Dir: dir, err: errors.WithStack(err)}
}

// AnalysisError reports a single artifact which failed analysis. The
// artifact is left out of the bundle and the run continues.
type AnalysisError struct {
	Artifact string
	err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("failed to analyze %s: %v", e.Artifact, e.err)
}

func (e *AnalysisError) Unwrap() error {
	return e.err
}

func WrapAnalysisError(artifact string, err error) error {
	return &AnalysisError{Artifact: artifact, err: err}
}

// IsFatal returns true for the error kinds which must end the run.
// Errors of unknown kind are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var discoveryErr *DiscoveryError
	var analysisErr *AnalysisError
	return !errors.As(err, &discoveryErr) && !errors.As(err, &analysisErr)
}
