package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-gatepipe/pkg/pipeline/measure"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m measure.Measure
}

func (pd *pipelineDrawer) New() error {
	for _, name := range []string{model.TriggerVertex, model.GateVertex, model.EndVertex} {
		err := pd.AddStep(name)
		if err != nil {
			return errors.Wrapf(err, "unable to add %s step to drawer", name)
		}
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStage(stage *model.StageInfo) error {
	return nil
}

// PrepareInstance places primary instances between the trigger and the gate, and fallback
// instances between the gate and the end.
func (pd *pipelineDrawer) PrepareInstance(stage *model.StageInfo, instance *model.InstanceInfo) error {
	name := instance.Vertex()
	err := pd.AddStep(name)
	if err != nil {
		return err
	}

	parent, child := model.TriggerVertex, model.GateVertex
	if stage.Name == model.StageFallback {
		parent, child = model.GateVertex, model.EndVertex
	}

	err = pd.AddLink(parent, name, "")
	if err != nil {
		return err
	}

	return pd.AddLink(name, child, "")
}

func (pd *pipelineDrawer) OnStepDone(instance *model.InstanceInfo, step model.StepKind, elapsed time.Duration, stepErr error) error {
	return nil
}

func (pd *pipelineDrawer) OnInstanceDone(instance *model.InstanceInfo, elapsed time.Duration) error {
	err := pd.SetStatus(instance.Vertex(), instance.Status)
	if err != nil {
		return err
	}
	if instance.Failure != "" {
		return pd.SetLabel(instance.Vertex(), string(instance.Failure)+" failure")
	}

	return nil
}

// OnStageResult colours the gate with the primary result and the end with the fallback one.
func (pd *pipelineDrawer) OnStageResult(stage *model.StageInfo, result model.StageResult) error {
	if stage.Name == model.StagePrimary {
		return pd.SetStatus(model.GateVertex, result.Status)
	}

	if result.Instances == 0 {
		err := pd.AddLink(model.GateVertex, model.EndVertex, "fallback "+string(result.Status))
		if err != nil {
			return err
		}
	}

	return pd.SetStatus(model.EndVertex, result.Status)
}

func (pd *pipelineDrawer) Finish() error {
	if pd.m != nil {
		err := pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the run graph once the pipeline is finished.
// The measure is optional.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{drawer, measure}
}
