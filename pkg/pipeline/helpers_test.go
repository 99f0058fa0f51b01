package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/internal/store"
	"github.com/askiada/go-gatepipe/pkg/pipeline"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// fakeExecutor fails the configured steps and records every request.
type fakeExecutor struct {
	mu    sync.Mutex
	calls []pipeline.StepRequest
	// failures maps stage/param to the step failing for that instance.
	failures map[string]model.StepKind
	// skipDiagnostics leaves the diagnostic directory uncreated.
	skipDiagnostics bool
	// block makes the step wait for ctx to be done, signalling started first.
	block   map[string]model.StepKind
	started chan string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		failures: map[string]model.StepKind{},
		block:    map[string]model.StepKind{},
		started:  make(chan string, 16),
	}
}

func instanceKey(stage model.StageName, param string) string {
	return string(stage) + "/" + param
}

func (f *fakeExecutor) failAt(stage model.StageName, param string, step model.StepKind) *fakeExecutor {
	f.failures[instanceKey(stage, param)] = step

	return f
}

func (f *fakeExecutor) blockAt(stage model.StageName, param string, step model.StepKind) *fakeExecutor {
	f.block[instanceKey(stage, param)] = step

	return f
}

func (f *fakeExecutor) Exec(ctx context.Context, req pipeline.StepRequest) error {
	key := instanceKey(req.Stage, req.Param)

	f.mu.Lock()
	f.calls = append(f.calls, req)
	failing, fails := f.failures[key]
	blocking, blocks := f.block[key]
	f.mu.Unlock()

	if !f.skipDiagnostics {
		err := os.MkdirAll(req.DiagnosticDir, 0o755)
		if err != nil {
			return err
		}
		err = os.WriteFile(filepath.Join(req.DiagnosticDir, string(req.Step)+".log"), []byte(key), 0o600)
		if err != nil {
			return err
		}
	}

	if blocks && blocking == req.Step {
		f.started <- key
		<-ctx.Done()

		return ctx.Err()
	}

	if fails && failing == req.Step {
		return assert.AnError
	}

	return nil
}

func (f *fakeExecutor) requests(stage model.StageName, step model.StepKind) []pipeline.StepRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res []pipeline.StepRequest
	for _, req := range f.calls {
		if req.Stage == stage && req.Step == step {
			res = append(res, req)
		}
	}

	return res
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func testConfig(t *testing.T, matrix ...string) pipeline.Config {
	t.Helper()

	cfg := pipeline.DefaultConfig()
	cfg.WorkspaceRoot = t.TempDir()
	cfg.Primary.Matrix = matrix
	cfg.Fallback.Matrix = matrix
	cfg.Fallback.ExcludedCapabilities = []string{"a", "b", "c"}

	return cfg
}

func newTestPipeline(t *testing.T, cfg pipeline.Config, exec pipeline.Executor, opts ...pipeline.Option) (*pipeline.Pipeline, *store.MemoryStore) {
	t.Helper()

	artifacts := store.NewMemoryStore()
	opts = append([]pipeline.Option{
		pipeline.WithArtifactStore(artifacts),
		pipeline.WithLogger(zap.NewNop()),
	}, opts...)

	pipe, err := pipeline.New(cfg, exec, opts...)
	require.NoError(t, err)

	return pipe, artifacts
}
