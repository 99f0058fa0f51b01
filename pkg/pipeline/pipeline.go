package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/internal/store"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Pipeline runs the primary stage and, when it fails, the fallback stage.
type Pipeline struct {
	cfg      Config
	exec     Executor
	store    ArtifactStore
	archiver *Archiver
	logger   *zap.Logger
	now      func() time.Time
	opts     []model.PipelineOption
}

// New creates a new pipeline.
// Artifacts are written below the workspace root unless WithArtifactStore is used.
func New(cfg Config, exec Executor, opts ...Option) (*Pipeline, error) {
	if exec == nil {
		return nil, ErrExecutorMustBeSet
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = DefaultWorkspaceRoot
	}
	cfg.Primary.applyDefaults(DefaultPrimaryArtifact)
	cfg.Fallback.applyDefaults(DefaultFallbackArtifact)

	err := cfg.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid pipeline configuration")
	}

	pipe := &Pipeline{
		cfg:    cfg,
		exec:   exec,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(pipe)
	}

	if pipe.store == nil {
		pipe.store, err = store.NewFileStore(filepath.Join(cfg.WorkspaceRoot, "artifacts"))
		if err != nil {
			return nil, errors.Wrap(err, "unable to create default artifact store")
		}
	}
	pipe.archiver, err = NewArchiver(pipe.store)
	if err != nil {
		return nil, err
	}

	for _, opt := range pipe.opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// Config returns the configuration the pipeline runs with, defaults applied.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run evaluates the trigger and runs the stages it starts.
// Pipeline options are initialised once by New, so a pipeline is meant to be run once.
//
// A failed pipeline is reported through Report.Status, not through the error. The error is
// only set when a pipeline option fails or ctx is cancelled; the report is returned in the
// latter case too.
func (p *Pipeline) Run(ctx context.Context, desc EventDescriptor) (*Report, error) {
	event, ok := evaluateTrigger(desc, p.now)
	if !ok {
		p.logger.Debug("event not recognized, pipeline not started", zap.String("kind", desc.Kind))

		return &Report{}, nil
	}

	logger := p.logger.With(zap.Stringer("run_id", event.ID))
	logger.Info("pipeline started",
		zap.String("trigger", string(event.Kind)),
		zap.String("source", event.Source),
	)

	bus := newResultBus()
	defer bus.Close()

	// the gate is scheduled before the primary stage and evaluates whatever its outcome
	gateDone := make(chan gateOutcome, 1)
	go func() {
		gateDone <- p.gate(ctx, bus)
	}()

	primary, err := p.runStage(ctx, model.StagePrimary, p.cfg.Primary)
	if err == nil {
		err = p.publish(bus, primary)
	}
	if err != nil {
		bus.Close()
		<-gateDone

		return nil, errors.Wrap(err, "primary stage")
	}

	gated := <-gateDone
	if gated.err != nil {
		return nil, errors.Wrap(gated.err, "fallback stage")
	}

	report := &Report{
		ID:       event.ID,
		Trigger:  event,
		Started:  true,
		Primary:  primary.result,
		Fallback: gated.fallback.result,
	}
	for _, run := range []*stageRun{primary, gated.fallback} {
		report.Instances = append(report.Instances, run.instances...)
		for _, art := range run.artifacts {
			if art != nil {
				report.Artifacts = append(report.Artifacts, *art)
			}
		}
	}
	report.Status = outcome(report.Primary, report.Fallback)

	logger.Info("pipeline finished",
		zap.String("status", string(report.Status)),
		zap.String("primary", string(report.Primary.Status)),
		zap.String("fallback", string(report.Fallback.Status)),
		zap.Bool("failure_isolated", report.FailureIsolated()),
		zap.Int("artifacts", len(report.Artifacts)),
	)

	err = p.finishRun()
	if err != nil {
		return report, err
	}

	if ctx.Err() != nil {
		return report, errors.Wrap(ctx.Err(), "pipeline cancelled")
	}

	return report, nil
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
