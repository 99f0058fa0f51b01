package pipeline

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// resultBus carries the stage results between the stages of one invocation.
// Every stage publishes exactly once; the published value is delivered once.
type resultBus struct {
	mu     sync.Mutex
	topics map[model.StageName]*topic
	closed bool
}

type topic struct {
	c         chan model.StageResult
	published bool
}

func newResultBus() *resultBus {
	return &resultBus{
		topics: make(map[model.StageName]*topic),
	}
}

// topic must be called with mu held.
func (b *resultBus) topic(stage model.StageName) *topic {
	tp, ok := b.topics[stage]
	if !ok {
		tp = &topic{c: make(chan model.StageResult, 1)}
		if b.closed {
			tp.published = true
			close(tp.c)
		}
		b.topics[stage] = tp
	}

	return tp
}

// Publish makes the result of the stage available to its subscriber.
func (b *resultBus) Publish(result model.StageResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tp := b.topic(result.Stage)
	if tp.published {
		return errors.Wrapf(ErrResultAlreadyPublished, "stage %s", result.Stage)
	}
	tp.published = true
	tp.c <- result
	close(tp.c)

	return nil
}

// Subscribe returns the channel the result of the stage is delivered on.
// The channel is closed without a value if the bus is closed before the stage publishes.
func (b *resultBus) Subscribe(stage model.StageName) <-chan model.StageResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.topic(stage).c
}

// Close releases subscribers of stages that never published, including later ones.
func (b *resultBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for _, tp := range b.topics {
		if !tp.published {
			tp.published = true
			close(tp.c)
		}
	}
}
