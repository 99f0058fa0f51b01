package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// ShouldRunFallback reports whether the fallback stage must be instantiated.
// Only a failed primary stage triggers it.
func ShouldRunFallback(primary model.StageResult) bool {
	return primary.Status == model.StatusFailure
}

type gateOutcome struct {
	primary  model.StageResult
	fallback *stageRun
	err      error
}

// gate waits for the primary result whatever the primary outcome was, decides, and
// either runs the fallback stage or publishes it as skipped without creating anything.
func (p *Pipeline) gate(ctx context.Context, bus *resultBus) gateOutcome {
	primary, ok := <-bus.Subscribe(model.StagePrimary)
	if !ok {
		return gateOutcome{err: ErrResultNotPublished}
	}

	out := gateOutcome{primary: primary}
	if !ShouldRunFallback(primary) {
		p.logger.Info("fallback stage skipped", zap.String("primary_status", string(primary.Status)))

		skipped := &stageRun{
			info:   newStageInfo(model.StageFallback, p.cfg.Fallback, 0),
			result: model.StageResult{Stage: model.StageFallback, Status: model.StatusSkipped},
		}
		out.fallback = skipped
		out.err = p.publish(bus, skipped)

		return out
	}

	p.logger.Info("primary stage failed, running fallback stage",
		zap.Strings("excluded_capabilities", p.cfg.Fallback.ExcludedCapabilities))

	fallback, err := p.runStage(ctx, model.StageFallback, p.cfg.Fallback)
	if err != nil {
		out.err = err

		return out
	}
	out.fallback = fallback
	out.err = p.publish(bus, fallback)

	return out
}

func (p *Pipeline) publish(bus *resultBus, run *stageRun) error {
	err := bus.Publish(run.result)
	if err != nil {
		return err
	}

	return p.stageResult(run.info, run.result)
}
