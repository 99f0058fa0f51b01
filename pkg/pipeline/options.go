package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithLogger sets the structured logger. The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithArtifactStore sets where diagnostic bundles are persisted.
func WithArtifactStore(store ArtifactStore) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

// WithClock overrides the time source used for trigger timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithOptions registers pipeline options such as the drawer or the measure.
func WithOptions(opts ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		p.opts = append(p.opts, opts...)
	}
}
