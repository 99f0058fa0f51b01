package pipeline

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Expand creates one pending run instance per matrix value, in order.
// Instances share nothing: each one is mutated only by its own runner.
func Expand(stage model.StageName, params []string) ([]*model.RunInstance, error) {
	if len(params) == 0 {
		return nil, errors.Wrapf(ErrEmptyMatrix, "stage %s", stage)
	}

	err := checkMatrix(params)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", stage)
	}

	instances := make([]*model.RunInstance, 0, len(params))
	for _, param := range params {
		instances = append(instances, &model.RunInstance{
			Stage:  stage,
			Param:  param,
			Status: model.StatusPending,
		})
	}

	return instances, nil
}

// checkMatrix rejects values that would share a workspace or a bundle name once
// turned into file names, including plain duplicates.
func checkMatrix(params []string) error {
	seen := make(map[string]string, len(params))
	for _, param := range params {
		name := safeName(param)
		other, ok := seen[name]
		if ok && other == param {
			return errors.Wrapf(ErrDuplicateParam, "%q", param)
		}
		if ok {
			return errors.Wrapf(ErrDuplicateParam, "%q and %q both map to %q", other, param, name)
		}
		seen[name] = param
	}

	return nil
}
