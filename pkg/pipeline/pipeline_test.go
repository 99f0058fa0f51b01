package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/go-gatepipe/pkg/pipeline"
	"github.com/askiada/go-gatepipe/pkg/pipeline/drawer"
	"github.com/askiada/go-gatepipe/pkg/pipeline/measure"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

func TestNewNilExecutor(t *testing.T) {
	t.Parallel()

	_, err := pipeline.New(pipeline.DefaultConfig(), nil)
	require.ErrorIs(t, err, pipeline.ErrExecutorMustBeSet)
}

func TestNewInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "v1")
	cfg.Fallback.ArtifactName = cfg.Primary.ArtifactName

	_, err := pipeline.New(cfg, newFakeExecutor())
	require.Error(t, err)
}

func TestRunUnrecognizedTrigger(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	pipe, artifacts := newTestPipeline(t, testConfig(t, "v1"), exec)

	report, err := pipe.Run(t.Context(), pipeline.EventDescriptor{Kind: "push"})
	require.NoError(t, err)
	assert.False(t, report.Started)
	assert.Empty(t, report.Instances)
	assert.Zero(t, exec.callCount())
	assert.Empty(t, artifacts.List())
}

func TestRunPrimarySucceeds(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	pipe, artifacts := newTestPipeline(t, testConfig(t, "v1"), exec)

	report, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
	require.NoError(t, err)

	assert.True(t, report.Started)
	assert.Equal(t, model.TriggerManual, report.Trigger.Kind)
	assert.Equal(t, model.StatusSuccess, report.Primary.Status)
	assert.Equal(t, model.StatusSkipped, report.Fallback.Status)
	assert.Zero(t, report.Fallback.Instances)
	assert.False(t, report.FallbackRan())
	assert.Empty(t, report.InstancesOf(model.StageFallback))
	assert.Empty(t, exec.requests(model.StageFallback, model.StepCheckout))
	assert.Empty(t, report.Artifacts)
	assert.Empty(t, artifacts.List())
	assert.Equal(t, model.StatusSuccess, report.Status)

	require.Len(t, report.Instances, 1)
	inst := report.Instances[0]
	require.Len(t, inst.Log, len(model.Steps))
	for i, step := range model.Steps {
		assert.Equal(t, step, inst.Log[i].Step)
		assert.Empty(t, inst.Log[i].Err)
	}
}

func TestRunFallbackIsolatesFailure(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor().failAt(model.StagePrimary, "v1", model.StepVerify)
	pipe, artifacts := newTestPipeline(t, testConfig(t, "v1"), exec)

	report, err := pipe.Run(t.Context(), pipeline.ScheduledEvent("@weekly", time.Time{}))
	require.NoError(t, err)

	assert.Equal(t, model.TriggerScheduled, report.Trigger.Kind)
	assert.Equal(t, model.StatusFailure, report.Primary.Status)
	assert.Equal(t, model.StatusSuccess, report.Fallback.Status)
	assert.Equal(t, 1, report.Fallback.Instances)
	assert.True(t, report.FailureIsolated())
	assert.Equal(t, model.StatusFailure, report.Status)

	primary := report.InstancesOf(model.StagePrimary)
	require.Len(t, primary, 1)
	assert.Equal(t, model.FailureVerification, primary[0].Failure)

	verify := exec.requests(model.StageFallback, model.StepVerify)
	require.Len(t, verify, 1)
	assert.Equal(t, []string{"a", "b", "c"}, verify[0].ExcludedCapabilities)
	install := exec.requests(model.StageFallback, model.StepInstallTarget)
	require.Len(t, install, 1)
	assert.True(t, install[0].SkipAuxiliary)

	primaryVerify := exec.requests(model.StagePrimary, model.StepVerify)
	require.Len(t, primaryVerify, 1)
	assert.Empty(t, primaryVerify[0].ExcludedCapabilities)

	require.Len(t, report.Artifacts, 1)
	assert.Equal(t, "job-results-plugins-v1.tar.gz", report.Artifacts[0].Name)
	assert.Len(t, artifacts.List(), 1)
}

func TestRunBothStagesFail(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor().
		failAt(model.StagePrimary, "v1", model.StepSmoke).
		failAt(model.StageFallback, "v1", model.StepVerify)
	pipe, artifacts := newTestPipeline(t, testConfig(t, "v1"), exec)

	report, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailure, report.Primary.Status)
	assert.Equal(t, model.StatusFailure, report.Fallback.Status)
	assert.False(t, report.FailureIsolated())
	assert.Equal(t, model.StatusFailure, report.Status)

	require.Len(t, report.Artifacts, 2)
	names := []string{report.Artifacts[0].Name, report.Artifacts[1].Name}
	assert.ElementsMatch(t, []string{
		"job-results-plugins-v1.tar.gz",
		"job-results-without-plugins-v1.tar.gz",
	}, names)
	assert.Len(t, artifacts.List(), 2)
}

func TestRunFailureKinds(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		step     model.StepKind
		expected model.FailureKind
		steps    int
	}{
		"checkout":             {step: model.StepCheckout, expected: model.FailureSetup, steps: 1},
		"setup environment":    {step: model.StepSetupEnvironment, expected: model.FailureSetup, steps: 2},
		"install dependencies": {step: model.StepInstallDependencies, expected: model.FailureSetup, steps: 3},
		"install target":       {step: model.StepInstallTarget, expected: model.FailureInstall, steps: 4},
		"smoke":                {step: model.StepSmoke, expected: model.FailureVerification, steps: 5},
		"verify":               {step: model.StepVerify, expected: model.FailureVerification, steps: 6},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			exec := newFakeExecutor().failAt(model.StagePrimary, "v1", tc.step)
			pipe, _ := newTestPipeline(t, testConfig(t, "v1"), exec)

			report, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
			require.NoError(t, err)

			primary := report.InstancesOf(model.StagePrimary)
			require.Len(t, primary, 1)
			assert.Equal(t, model.StatusFailure, primary[0].Status)
			assert.Equal(t, tc.expected, primary[0].Failure)
			// remaining steps are abandoned
			assert.Len(t, primary[0].Log, tc.steps)
			assert.NotEmpty(t, primary[0].Log[tc.steps-1].Err)
		})
	}
}

func TestRunArtifactIffFailure(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor().
		failAt(model.StagePrimary, "v2", model.StepInstallTarget).
		failAt(model.StageFallback, "v3", model.StepSmoke)
	pipe, _ := newTestPipeline(t, testConfig(t, "v1", "v2", "v3"), exec)

	report, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
	require.NoError(t, err)
	require.Len(t, report.Instances, 6)

	for _, inst := range report.Instances {
		_, ok := report.ArtifactOf(inst.Stage, inst.Param)
		assert.Equal(t, inst.Status == model.StatusFailure, ok, "%s/%s is %s", inst.Stage, inst.Param, inst.Status)
	}
}

func TestRunSiblingsIndependent(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor().failAt(model.StagePrimary, "v1", model.StepCheckout)
	cfg := testConfig(t, "v1", "v2", "v3")
	cfg.Primary.MaxParallel = 1
	pipe, _ := newTestPipeline(t, cfg, exec)

	report, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
	require.NoError(t, err)

	primary := report.InstancesOf(model.StagePrimary)
	require.Len(t, primary, 3)
	assert.Equal(t, model.StatusFailure, primary[0].Status)
	assert.Equal(t, model.StatusSuccess, primary[1].Status)
	assert.Equal(t, model.StatusSuccess, primary[2].Status)
	assert.Len(t, primary[1].Log, len(model.Steps))
	assert.Equal(t, model.StatusFailure, report.Primary.Status)
	assert.Equal(t, 3, report.Fallback.Instances)
}

func TestRunFailFastCancelsSiblings(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor().
		blockAt(model.StagePrimary, "v1", model.StepSmoke).
		failAt(model.StagePrimary, "v2", model.StepVerify)
	cfg := testConfig(t, "v1", "v2")
	cfg.Primary.FailFast = true
	pipe, _ := newTestPipeline(t, cfg, exec)

	report, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
	require.NoError(t, err)

	primary := report.InstancesOf(model.StagePrimary)
	require.Len(t, primary, 2)
	assert.Equal(t, model.StatusCancelled, primary[0].Status)
	assert.Equal(t, model.StatusFailure, primary[1].Status)
	assert.Equal(t, model.StatusFailure, report.Primary.Status)
	assert.True(t, report.FallbackRan())
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor().
		blockAt(model.StagePrimary, "v1", model.StepVerify).
		blockAt(model.StagePrimary, "v2", model.StepVerify)
	pipe, _ := newTestPipeline(t, testConfig(t, "v1", "v2"), exec)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go func() {
		<-exec.started
		<-exec.started
		cancel()
	}()

	report, err := pipe.Run(ctx, pipeline.ManualEvent("test"))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)

	for _, inst := range report.InstancesOf(model.StagePrimary) {
		assert.Equal(t, model.StatusCancelled, inst.Status)
	}
	assert.Equal(t, model.StatusSkipped, report.Primary.Status)
	assert.False(t, report.FallbackRan())
	assert.Empty(t, report.Artifacts)
	assert.Equal(t, model.StatusFailure, report.Status)
}

func TestRunArchiveFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	exec := newFakeExecutor().failAt(model.StagePrimary, "v1", model.StepVerify)
	exec.skipDiagnostics = true
	pipe, artifacts := newTestPipeline(t, testConfig(t, "v1"), exec, pipeline.WithLogger(zap.New(core)))

	report, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
	require.NoError(t, err)

	primary := report.InstancesOf(model.StagePrimary)
	require.Len(t, primary, 1)
	assert.Equal(t, model.StatusFailure, primary[0].Status)
	assert.Equal(t, model.StatusSuccess, report.Fallback.Status)
	assert.Empty(t, report.Artifacts)
	assert.Empty(t, artifacts.List())
	assert.Equal(t, 1, logs.FilterMessage("unable to capture diagnostic bundle").Len())
}

func TestRunWithDrawerAndMeasure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	msr := measure.NewDefaultMeasure()
	drw := drawer.NewDOTDrawer(dir + "/run.dot")

	exec := newFakeExecutor().failAt(model.StagePrimary, "v1", model.StepVerify)
	pipe, _ := newTestPipeline(t, testConfig(t, "v1"), exec, pipeline.WithOptions(
		measure.PipelineMeasure(msr),
		drawer.PipelineDrawer(drw, msr),
	))

	_, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
	require.NoError(t, err)

	assert.Len(t, msr.AllMetrics(), 2)
	assert.Equal(t, len(model.Steps), msr.GetMetric("primary/v1").Steps())
	assert.FileExists(t, dir+"/run.dot")
}

func TestRunClearsWorkspaceBetweenRuns(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "v1")

	first := newFakeExecutor().failAt(model.StagePrimary, "v1", model.StepVerify)
	pipe, _ := newTestPipeline(t, cfg, pipeline.ExecutorFunc(func(ctx context.Context, req pipeline.StepRequest) error {
		if req.Step == model.StepCheckout {
			err := os.MkdirAll(filepath.Join(req.Workspace, "src"), 0o755)
			if err != nil {
				return err
			}
		}

		return first.Exec(ctx, req)
	}))
	report, err := pipe.Run(t.Context(), pipeline.ManualEvent("first"))
	require.NoError(t, err)
	require.True(t, report.FallbackRan())

	var (
		mu        sync.Mutex
		leftovers = map[model.StageName][]string{}
	)
	second := newFakeExecutor().failAt(model.StagePrimary, "v1", model.StepCheckout)
	pipe, artifacts := newTestPipeline(t, cfg, pipeline.ExecutorFunc(func(ctx context.Context, req pipeline.StepRequest) error {
		if req.Step == model.StepCheckout {
			entries, err := os.ReadDir(req.Workspace)
			if err != nil {
				return err
			}

			mu.Lock()
			for _, entry := range entries {
				leftovers[req.Stage] = append(leftovers[req.Stage], entry.Name())
			}
			mu.Unlock()
		}

		return second.Exec(ctx, req)
	}))
	report, err = pipe.Run(t.Context(), pipeline.ManualEvent("second"))
	require.NoError(t, err)

	require.Len(t, second.requests(model.StagePrimary, model.StepCheckout), 1)
	require.Len(t, second.requests(model.StageFallback, model.StepCheckout), 1)
	assert.Empty(t, leftovers)

	artifact, ok := report.ArtifactOf(model.StagePrimary, "v1")
	require.True(t, ok)
	body, _, err := artifacts.Get(artifact.Name)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"checkout.log": "primary/v1"}, readBundle(t, body))
}

func TestNewRejectsValuesSharingAWorkspace(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "py/3", "py_3")

	_, err := pipeline.New(cfg, newFakeExecutor())
	require.ErrorIs(t, err, pipeline.ErrDuplicateParam)
}

func TestRunLongValuesGetDistinctArtifacts(t *testing.T) {
	t.Parallel()

	prefix := strings.Repeat("x", 240)
	exec := newFakeExecutor().
		failAt(model.StagePrimary, prefix+"a", model.StepSmoke).
		failAt(model.StagePrimary, prefix+"b", model.StepSmoke)
	pipe, artifacts := newTestPipeline(t, testConfig(t, prefix+"a", prefix+"b"), exec)

	report, err := pipe.Run(t.Context(), pipeline.ManualEvent("test"))
	require.NoError(t, err)

	require.Len(t, report.Artifacts, 2)
	assert.NotEqual(t, report.Artifacts[0].Name, report.Artifacts[1].Name)
	assert.Len(t, artifacts.List(), 2)

	workspaces := map[string]struct{}{}
	for _, inst := range report.InstancesOf(model.StagePrimary) {
		workspaces[inst.Workspace] = struct{}{}
	}
	assert.Len(t, workspaces, 2)
}
