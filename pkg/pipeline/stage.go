package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// stageRun is everything a stage produced once all of its instances are terminal.
type stageRun struct {
	info      *model.StageInfo
	instances []*model.RunInstance
	artifacts []*model.Artifact
	result    model.StageResult
}

func newStageInfo(name model.StageName, cfg StageConfig, instances int) *model.StageInfo {
	return &model.StageInfo{
		Name:      name,
		Matrix:    cfg.Matrix,
		FailFast:  cfg.FailFast,
		Reduced:   name == model.StageFallback,
		Artifact:  cfg.ArtifactName,
		Instances: instances,
	}
}

func (p *Pipeline) prepareStage(info *model.StageInfo, instances []*model.RunInstance) error {
	for _, opt := range p.opts {
		err := opt.PrepareStage(info)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare stage function")
		}
	}
	for _, inst := range instances {
		instInfo := inst.Info()
		for _, opt := range p.opts {
			err := opt.PrepareInstance(info, instInfo)
			if err != nil {
				return errors.Wrap(err, "unable to run prepare instance function")
			}
		}
	}

	return nil
}

// runStage fans the matrix out as independent tasks and joins all of them before
// aggregating. Only option failures are returned as errors.
func (p *Pipeline) runStage(ctx context.Context, name model.StageName, cfg StageConfig) (*stageRun, error) {
	instances, err := Expand(name, cfg.Matrix)
	if err != nil {
		return nil, err
	}

	run := &stageRun{
		info:      newStageInfo(name, cfg, len(instances)),
		instances: instances,
		artifacts: make([]*model.Artifact, len(instances)),
	}

	err = p.prepareStage(run.info, instances)
	if err != nil {
		return nil, err
	}

	p.logger.Info("stage started",
		zap.String("stage", string(name)),
		zap.Strings("matrix", cfg.Matrix),
		zap.Bool("fail_fast", cfg.FailFast),
	)

	grp := &errgroup.Group{}
	grpCtx := ctx
	if cfg.FailFast {
		grp, grpCtx = errgroup.WithContext(ctx)
	}
	if cfg.MaxParallel > 0 {
		grp.SetLimit(cfg.MaxParallel)
	}

	for idx, inst := range instances {
		grp.Go(func() error {
			err := p.runInstance(grpCtx, inst, cfg)
			if err != nil {
				return err
			}

			// archiving outlives a cancelled pipeline
			run.artifacts[idx] = p.archive(context.WithoutCancel(grpCtx), inst, cfg)

			if cfg.FailFast && inst.Status == model.StatusFailure {
				return errFailFast
			}

			return nil
		})
	}

	// join barrier: nothing reads the instances before every one of them is terminal
	err = grp.Wait()
	if err != nil && !errors.Is(err, errFailFast) {
		return nil, errors.Wrapf(err, "stage %s", name)
	}

	run.result, err = Aggregate(name, instances)
	if err != nil {
		return nil, err
	}

	p.logger.Info("stage finished",
		zap.String("stage", string(name)),
		zap.String("status", string(run.result.Status)),
		zap.Int("instances", run.result.Instances),
	)

	return run, nil
}

func (p *Pipeline) stageResult(info *model.StageInfo, result model.StageResult) error {
	for _, opt := range p.opts {
		err := opt.OnStageResult(info, result)
		if err != nil {
			return errors.Wrap(err, "unable to run on stage result function")
		}
	}

	return nil
}
