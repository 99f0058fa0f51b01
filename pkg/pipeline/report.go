package pipeline

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Report is the outcome of one pipeline invocation.
type Report struct {
	ID      uuid.UUID
	Trigger model.TriggerEvent
	// Started is false when the trigger was not recognized; nothing else is set then.
	Started bool

	Primary  model.StageResult
	Fallback model.StageResult

	Instances []*model.RunInstance
	Artifacts []model.Artifact

	Status model.Status
}

// FallbackRan reports whether the fallback stage created any run instance.
func (r *Report) FallbackRan() bool {
	return r.Fallback.Instances > 0
}

// FailureIsolated reports whether the primary failure disappeared once the optional
// capabilities were excluded by the fallback stage.
func (r *Report) FailureIsolated() bool {
	return r.Primary.Status == model.StatusFailure && r.Fallback.Status == model.StatusSuccess
}

// InstancesOf returns the run instances of a stage.
func (r *Report) InstancesOf(stage model.StageName) []*model.RunInstance {
	var res []*model.RunInstance
	for _, inst := range r.Instances {
		if inst.Stage == stage {
			res = append(res, inst)
		}
	}

	return res
}

// ArtifactOf returns the artifact captured for the instance, if any.
func (r *Report) ArtifactOf(stage model.StageName, param string) (model.Artifact, bool) {
	for _, art := range r.Artifacts {
		if art.Stage == stage && art.Param == param {
			return art, true
		}
	}

	return model.Artifact{}, false
}

// ReportHeader is the header of Rows.
var ReportHeader = []string{"STAGE", "PARAM", "STATUS", "FAILURE", "STEPS", "ARTIFACT"}

// Rows returns one row per run instance, in execution order.
func (r *Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.Instances))
	for _, inst := range r.Instances {
		artifact := "-"
		if art, ok := r.ArtifactOf(inst.Stage, inst.Param); ok {
			artifact = art.Name
		}
		failure := "-"
		if inst.Failure != "" {
			failure = string(inst.Failure)
		}
		rows = append(rows, []string{
			string(inst.Stage),
			inst.Param,
			string(inst.Status),
			failure,
			strconv.Itoa(len(inst.Log)),
			artifact,
		})
	}

	return rows
}

// outcome is success only when every active stage succeeded.
func outcome(primary, fallback model.StageResult) model.Status {
	if primary.Status != model.StatusSuccess {
		return model.StatusFailure
	}
	if fallback.Instances > 0 && fallback.Status != model.StatusSuccess {
		return model.StatusFailure
	}

	return model.StatusSuccess
}
