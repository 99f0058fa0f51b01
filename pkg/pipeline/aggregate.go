package pipeline

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Aggregate reduces the terminal statuses of a stage to a single result.
//
// The stage fails if any instance failed and succeeds if every instance succeeded.
// Any other combination, including an empty stage or instances that were all skipped
// or cancelled, yields the neutral skipped status. The reduction does not depend on
// the order of the instances.
func Aggregate(stage model.StageName, instances []*model.RunInstance) (model.StageResult, error) {
	result := model.StageResult{
		Stage:     stage,
		Status:    model.StatusSkipped,
		Instances: len(instances),
	}

	succeeded := 0
	failed := false
	for _, inst := range instances {
		if !inst.Status.Terminal() {
			return model.StageResult{}, errors.Wrapf(ErrInstanceNotTerminal, "%s/%s is %s", stage, inst.Param, inst.Status)
		}

		switch inst.Status {
		case model.StatusFailure:
			failed = true
		case model.StatusSuccess:
			succeeded++
		}
	}

	switch {
	case failed:
		result.Status = model.StatusFailure
	case succeeded > 0 && succeeded == len(instances):
		result.Status = model.StatusSuccess
	}

	return result, nil
}
