package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

var (
	ErrExecutorMustBeSet      = errors.New("executor must be set")
	ErrEmptyMatrix            = errors.New("matrix must contain at least one value")
	ErrDuplicateParam         = errors.New("matrix values must be unique")
	ErrInstanceNotTerminal    = errors.New("instance has not reached a terminal status")
	ErrResultAlreadyPublished = errors.New("stage result already published")
	ErrResultNotPublished     = errors.New("stage result was never published")
	ErrArtifactStoreMustBeSet = errors.New("artifact store must be set")

	// errFailFast cancels the siblings of a failed instance when fail-fast is enabled.
	errFailFast = errors.New("instance failed with fail-fast enabled")
)

// StepError is returned by a run instance whose step failed.
type StepError struct {
	Kind  model.FailureKind
	Step  model.StepKind
	Param string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failure in step %s for %s: %v", e.Kind, e.Step, e.Param, e.Err)
}

// Cause lets errors.Cause reach the executor error.
func (e *StepError) Cause() error { return e.Err }

func (e *StepError) Unwrap() error { return e.Err }

// ArchiveError is returned when a diagnostic bundle could not be captured.
// It never changes the status of the run instance.
type ArchiveError struct {
	Name string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("unable to archive %s: %v", e.Name, e.Err)
}

// Kind is always model.FailureArchive.
func (e *ArchiveError) Kind() model.FailureKind { return model.FailureArchive }

func (e *ArchiveError) Cause() error { return e.Err }

func (e *ArchiveError) Unwrap() error { return e.Err }
