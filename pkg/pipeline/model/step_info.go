package model

// StageInfo describes a stage to the pipeline options.
type StageInfo struct {
	Name      StageName
	Matrix    []string
	FailFast  bool
	Reduced   bool
	Artifact  string
	Instances int
}

// InstanceInfo describes a run instance to the pipeline options.
type InstanceInfo struct {
	Stage   StageName
	Param   string
	Status  Status
	Failure FailureKind
}

// Vertex returns the name used to identify the instance in graphs and metrics.
func (ii *InstanceInfo) Vertex() string {
	return string(ii.Stage) + "/" + ii.Param
}

// Well known vertices of the run graph.
const (
	TriggerVertex = "trigger"
	GateVertex    = "gate"
	EndVertex     = "end"
)
