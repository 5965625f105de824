package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrToolMissing reports that the required converter executable is not
	// present in the tools directory. It aborts a batch before any job runs.
	ErrToolMissing = errors.New("pipeline: converter executable not found")

	// ErrTimeout reports that a converter exceeded its time bound and was
	// killed. It fails only the current artifact.
	ErrTimeout = errors.New("pipeline: converter timed out")

	// ErrNoOutput reports that a converter exited cleanly but left nothing
	// classifiable in the staging directory. Logged as a warning, not fatal.
	ErrNoOutput = errors.New("pipeline: converter produced no classifiable output")
)

// StagingError reports a copy or decompression failure while preparing a
// job's working directory. The partially staged directory stays eligible for
// the standard cleanup path.
type StagingError struct {
	Path string
	Err  error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("pipeline: staging %s: %v", e.Path, e.Err)
}

func (e *StagingError) Unwrap() error { return e.Err }

// LaunchError reports that the converter process could not be started at all
// (missing binary, not executable, tmux window refused).
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("pipeline: launching %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
