package measure

import (
	"time"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	return nil
}

func (pm *pipelineMeasure) PrepareStage(stage *model.StageInfo) error {
	return nil
}

func (pm *pipelineMeasure) PrepareInstance(stage *model.StageInfo, instance *model.InstanceInfo) error {
	pm.AddMetric(instance.Vertex())

	return nil
}

func (pm *pipelineMeasure) OnStepDone(instance *model.InstanceInfo, step model.StepKind, elapsed time.Duration, stepErr error) error {
	if mt := pm.GetMetric(instance.Vertex()); mt != nil {
		mt.AddStepDuration(step, elapsed)
	}

	return nil
}

func (pm *pipelineMeasure) OnInstanceDone(instance *model.InstanceInfo, elapsed time.Duration) error {
	if mt := pm.GetMetric(instance.Vertex()); mt != nil {
		mt.SetTotalDuration(elapsed)
	}

	return nil
}

func (pm *pipelineMeasure) OnStageResult(stage *model.StageInfo, result model.StageResult) error {
	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

// PipelineMeasure records the step durations of every run instance into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{measure}
}
