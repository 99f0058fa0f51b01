package model

import "time"

// StepRecord is one entry of the step log of a run instance.
type StepRecord struct {
	Step    StepKind
	Started time.Time
	Elapsed time.Duration
	Err     string
}

// RunInstance is one matrix entry of a stage.
// It is only mutated by the runner that owns it and must only be read by others once
// the stage has been joined.
type RunInstance struct {
	Stage     StageName
	Param     string
	Status    Status
	Failure   FailureKind
	Workspace string
	Log       []StepRecord
}

// Info returns the read-only descriptor handed to pipeline options.
func (ri *RunInstance) Info() *InstanceInfo {
	return &InstanceInfo{
		Stage:   ri.Stage,
		Param:   ri.Param,
		Status:  ri.Status,
		Failure: ri.Failure,
	}
}

// StageResult is the aggregated status of a stage. It is read-only once published.
type StageResult struct {
	Stage     StageName
	Status    Status
	Instances int
}

// Artifact is the diagnostic bundle captured for a failed run instance.
type Artifact struct {
	Stage    StageName
	Param    string
	Name     string
	Location string
	Size     int64
}
