package measure

import (
	"time"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Measure collects one metric per run instance.
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric holds the step durations of a run instance.
type Metric interface {
	AddStepDuration(step model.StepKind, elapsed time.Duration)
	StepDuration(step model.StepKind) time.Duration
	AVGDuration() time.Duration
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
	Steps() int
}
