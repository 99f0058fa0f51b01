package drawer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-gatepipe/pkg/pipeline/drawer"
	"github.com/askiada/go-gatepipe/pkg/pipeline/measure"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

func TestDOTDrawerUnknownVertex(t *testing.T) {
	t.Parallel()

	drw := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "run.dot"))
	require.NoError(t, drw.AddStep("a"))
	require.NoError(t, drw.AddStep("a"))

	require.Error(t, drw.AddLink("a", "b", ""))
	require.Error(t, drw.SetStatus("b", model.StatusSuccess))
	require.Error(t, drw.SetLabel("b", "label"))

	require.NoError(t, drw.AddStep("b"))
	require.NoError(t, drw.AddLink("a", "b", "first"))
	require.NoError(t, drw.AddLink("a", "b", "second"))
}

type runHooks struct {
	opt model.PipelineOption
}

func (h runHooks) stage(t *testing.T, name model.StageName, params []string, failed map[string]model.FailureKind) {
	t.Helper()

	info := &model.StageInfo{Name: name, Matrix: params, Instances: len(params)}
	require.NoError(t, h.opt.PrepareStage(info))

	status := model.StatusSuccess
	for _, param := range params {
		require.NoError(t, h.opt.PrepareInstance(info, &model.InstanceInfo{Stage: name, Param: param}))
	}
	for i, param := range params {
		inst := &model.InstanceInfo{Stage: name, Param: param, Status: model.StatusSuccess}
		if kind, ok := failed[param]; ok {
			inst.Status = model.StatusFailure
			inst.Failure = kind
			status = model.StatusFailure
		}
		require.NoError(t, h.opt.OnStepDone(inst, model.StepCheckout, time.Second, nil))
		require.NoError(t, h.opt.OnInstanceDone(inst, time.Duration(i+1)*time.Second))
	}

	require.NoError(t, h.opt.OnStageResult(info, model.StageResult{Stage: name, Status: status, Instances: len(params)}))
}

func TestPipelineDrawerFallbackRan(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "run.dot")
	drw := drawer.NewDOTDrawer(fileName)
	msr := measure.NewDefaultMeasure()
	hooks := runHooks{opt: drawer.PipelineDrawer(drw, msr)}
	measureHooks := runHooks{opt: measure.PipelineMeasure(msr)}

	require.NoError(t, hooks.opt.New())
	for _, h := range []runHooks{measureHooks, hooks} {
		h.stage(t, model.StagePrimary, []string{"3.11", "3.12"}, map[string]model.FailureKind{"3.12": model.FailureVerification})
		h.stage(t, model.StageFallback, []string{"3.11", "3.12"}, nil)
	}
	require.NoError(t, hooks.opt.Finish())

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)
	dot := string(content)

	assert.Contains(t, dot, "strict digraph")
	assert.Contains(t, dot, `rankdir="LR"`)
	assert.Contains(t, dot, `"trigger" -> "primary/3.12"`)
	assert.Contains(t, dot, `"primary/3.12" -> "gate"`)
	assert.Contains(t, dot, `"gate" -> "fallback/3.11"`)
	assert.Contains(t, dot, `"fallback/3.11" -> "end"`)
	assert.Contains(t, dot, "verification failure")
	assert.Contains(t, dot, `style="filled"`)
	assert.NotContains(t, dot, `"gate" -> "end"`)

	var rendered bytes.Buffer
	require.NoError(t, drw.Render(&rendered))
	assert.Equal(t, dot, rendered.String())
}

func TestPipelineDrawerFallbackSkipped(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "run.dot")
	drw := drawer.NewDOTDrawer(fileName)
	hooks := runHooks{opt: drawer.PipelineDrawer(drw, nil)}

	require.NoError(t, hooks.opt.New())
	hooks.stage(t, model.StagePrimary, []string{"3.12"}, nil)
	require.NoError(t, hooks.opt.OnStageResult(
		&model.StageInfo{Name: model.StageFallback},
		model.StageResult{Stage: model.StageFallback, Status: model.StatusSkipped},
	))
	require.NoError(t, hooks.opt.Finish())

	var rendered bytes.Buffer
	require.NoError(t, drw.Render(&rendered))
	dot := rendered.String()

	assert.Contains(t, dot, `"gate" -> "end"`)
	assert.Contains(t, dot, "fallback skipped")
	assert.NotContains(t, dot, "fallback/")
	assert.FileExists(t, fileName)
}
