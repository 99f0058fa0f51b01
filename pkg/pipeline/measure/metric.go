package measure

import (
	"sync"
	"time"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

type durationInfo struct {
	elapsed time.Duration
	total   int64
}

type DefaultMetric struct {
	steps       map[string]durationInfo
	mu          *sync.Mutex
	EndDuration time.Duration
	stepElapsed time.Duration
	total       int64
}

func (mt *DefaultMetric) AddStepDuration(step model.StepKind, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.stepElapsed += elapsed
	info := mt.steps[string(step)]
	info.elapsed += elapsed
	info.total++
	mt.steps[string(step)] = info
}

func (mt *DefaultMetric) StepDuration(step model.StepKind) time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.steps[string(step)].elapsed
}

func (mt *DefaultMetric) SetTotalDuration(total time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.EndDuration = total
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

func (mt *DefaultMetric) Steps() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return int(mt.total)
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.total == 0 {
		return time.Duration(0)
	}

	return Round(time.Duration(float64(mt.stepElapsed) / float64(mt.total)))
}

// Round drops the precision that does not matter at the scale of d.
func Round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Minute:
		d = d.Round(time.Second)
	case d > time.Second:
		d = d.Round(time.Millisecond)
	case d > time.Millisecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
