package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	tcs := map[model.Status]bool{
		model.StatusPending:   false,
		model.StatusRunning:   false,
		model.StatusSuccess:   true,
		model.StatusFailure:   true,
		model.StatusSkipped:   true,
		model.StatusCancelled: true,
		"unknown":             false,
	}

	for status, expected := range tcs {
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, expected, status.Terminal())
		})
	}
}

func TestStepFailureKind(t *testing.T) {
	t.Parallel()

	expected := []model.FailureKind{
		model.FailureSetup,
		model.FailureSetup,
		model.FailureSetup,
		model.FailureInstall,
		model.FailureVerification,
		model.FailureVerification,
	}

	assert.Len(t, model.Steps, len(expected))
	for i, step := range model.Steps {
		assert.Equal(t, expected[i], step.FailureKind(), step)
	}
}

func TestInstanceInfo(t *testing.T) {
	t.Parallel()

	inst := &model.RunInstance{
		Stage:   model.StageFallback,
		Param:   "3.12",
		Status:  model.StatusFailure,
		Failure: model.FailureInstall,
	}

	info := inst.Info()
	assert.Equal(t, "fallback/3.12", info.Vertex())
	assert.Equal(t, model.StatusFailure, info.Status)
	assert.Equal(t, model.FailureInstall, info.Failure)

	// the info is a snapshot
	inst.Status = model.StatusSuccess
	assert.Equal(t, model.StatusFailure, info.Status)
}
