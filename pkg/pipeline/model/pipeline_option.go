package model

import "time"

// PipelineOption defines the interface for pipeline options.
// Instance level hooks can be called concurrently by sibling run instances.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineStageOption
	pipelineInstanceOption

	// Finish runs after the pipeline is finished.
	Finish() error
}

// pipelineStageOption defines the interface for stage options at the pipeline level.
type pipelineStageOption interface {
	// PrepareStage runs before the instances of the stage are started.
	PrepareStage(stage *StageInfo) error
	// OnStageResult runs once the stage result has been published.
	OnStageResult(stage *StageInfo, result StageResult) error
}

// pipelineInstanceOption defines the interface for run instance options at the pipeline level.
type pipelineInstanceOption interface {
	// PrepareInstance runs when the instance is expanded from the matrix.
	PrepareInstance(stage *StageInfo, instance *InstanceInfo) error
	// OnStepDone runs after every step of the instance, successful or not.
	OnStepDone(instance *InstanceInfo, step StepKind, elapsed time.Duration, stepErr error) error
	// OnInstanceDone runs once the instance reached a terminal status.
	OnInstanceDone(instance *InstanceInfo, elapsed time.Duration) error
}
