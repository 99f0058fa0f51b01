package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Executor runs a single step of a run instance in its own sandbox.
// A nil error means the step succeeded.
type Executor interface {
	Exec(ctx context.Context, req StepRequest) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req StepRequest) error

// Exec calls f(ctx, req).
func (f ExecutorFunc) Exec(ctx context.Context, req StepRequest) error {
	return f(ctx, req)
}

// StepRequest carries everything the executor needs to run one step.
type StepRequest struct {
	Stage         model.StageName
	Param         string
	Step          model.StepKind
	Workspace     string
	DiagnosticDir string

	InstallExclusions []string
	SkipAuxiliary     bool

	VerificationLevel    int
	ExcludedCapabilities []string
}

func newStepRequest(inst *model.RunInstance, cfg StageConfig, step model.StepKind) StepRequest {
	req := StepRequest{
		Stage:         inst.Stage,
		Param:         inst.Param,
		Step:          step,
		Workspace:     inst.Workspace,
		DiagnosticDir: filepath.Join(inst.Workspace, cfg.DiagnosticDir),
	}

	switch step {
	case model.StepInstallTarget:
		req.InstallExclusions = cfg.InstallExclusions
		req.SkipAuxiliary = cfg.SkipAuxiliary
	case model.StepVerify:
		req.VerificationLevel = cfg.VerificationLevel
		req.ExcludedCapabilities = cfg.ExcludedCapabilities
	}

	return req
}

// resetWorkspace gives an instance an empty directory. Leftovers of an earlier run
// on the same workspace root would break checkout and leak into the bundle.
func resetWorkspace(dir string) error {
	err := os.RemoveAll(dir)
	if err != nil {
		return errors.Wrap(err, "unable to clear workspace")
	}

	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrap(err, "unable to create workspace")
	}

	return nil
}

// runInstance executes the ordered steps of one instance until the first failure.
// The returned error only reports pipeline option failures; step failures are
// recorded on the instance.
func (p *Pipeline) runInstance(ctx context.Context, inst *model.RunInstance, cfg StageConfig) error {
	start := p.now()
	defer func() {
		if !inst.Status.Terminal() {
			inst.Status = model.StatusCancelled
		}
	}()

	if ctx.Err() != nil {
		inst.Status = model.StatusCancelled

		return p.instanceDone(inst, p.now().Sub(start))
	}

	inst.Status = model.StatusRunning

	workspace, err := filepath.Abs(filepath.Join(p.cfg.WorkspaceRoot, string(inst.Stage), safeName(inst.Param)))
	if err == nil {
		inst.Workspace = workspace
		err = resetWorkspace(workspace)
	}
	if err != nil {
		inst.Status = model.StatusFailure
		inst.Failure = model.FailureSetup
		inst.Log = append(inst.Log, model.StepRecord{Step: model.StepCheckout, Started: start, Err: err.Error()})
		p.logger.Warn("unable to create workspace", zap.String("stage", string(inst.Stage)),
			zap.String("param", inst.Param), zap.Error(err))

		return p.instanceDone(inst, p.now().Sub(start))
	}

	for _, step := range model.Steps {
		if ctx.Err() != nil {
			inst.Status = model.StatusCancelled

			break
		}

		started := p.now()
		stepErr := p.exec.Exec(ctx, newStepRequest(inst, cfg, step))
		elapsed := p.now().Sub(started)

		record := model.StepRecord{Step: step, Started: started, Elapsed: elapsed}
		if stepErr != nil {
			record.Err = stepErr.Error()
		}
		inst.Log = append(inst.Log, record)

		err = p.stepDone(inst, step, elapsed, stepErr)
		if err != nil {
			return err
		}

		if stepErr == nil {
			continue
		}

		if ctx.Err() != nil {
			inst.Status = model.StatusCancelled

			break
		}

		inst.Status = model.StatusFailure
		inst.Failure = step.FailureKind()
		p.logger.Info("step failed",
			zap.String("stage", string(inst.Stage)),
			zap.String("param", inst.Param),
			zap.String("step", string(step)),
			zap.Error(&StepError{Kind: inst.Failure, Step: step, Param: inst.Param, Err: stepErr}),
		)

		break
	}

	if inst.Status == model.StatusRunning {
		inst.Status = model.StatusSuccess
	}

	return p.instanceDone(inst, p.now().Sub(start))
}

func (p *Pipeline) stepDone(inst *model.RunInstance, step model.StepKind, elapsed time.Duration, stepErr error) error {
	info := inst.Info()
	for _, opt := range p.opts {
		err := opt.OnStepDone(info, step, elapsed, stepErr)
		if err != nil {
			return errors.Wrap(err, "unable to run on step done function")
		}
	}

	return nil
}

func (p *Pipeline) instanceDone(inst *model.RunInstance, elapsed time.Duration) error {
	info := inst.Info()
	for _, opt := range p.opts {
		err := opt.OnInstanceDone(info, elapsed)
		if err != nil {
			return errors.Wrap(err, "unable to run on instance done function")
		}
	}

	return nil
}
