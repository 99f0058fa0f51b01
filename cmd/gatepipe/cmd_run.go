package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/internal/config"
	"github.com/askiada/go-gatepipe/internal/executor"
	"github.com/askiada/go-gatepipe/pkg/pipeline"
	"github.com/askiada/go-gatepipe/pkg/pipeline/drawer"
	"github.com/askiada/go-gatepipe/pkg/pipeline/measure"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long: `Runs the pipeline for a single trigger event.

Example:
  gatepipe run --config gatepipe.yaml --trigger manual --dot run.dot`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

// newPipeline wires the shell executor and the configured artifact store. The returned
// measure is nil unless a DOT file is requested.
func newPipeline(ctx context.Context, cfg *config.File) (*pipeline.Pipeline, measure.Measure, error) {
	exec, err := executor.NewShell(cfg.Steps, executor.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	store, err := cfg.ArtifactStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithArtifactStore(store),
	}

	var msr measure.Measure
	if dotFile != "" {
		msr = measure.NewDefaultMeasure()
		opts = append(opts, pipeline.WithOptions(
			measure.PipelineMeasure(msr),
			drawer.PipelineDrawer(drawer.NewDOTDrawer(dotFile), msr),
		))
	}

	pipe, err := pipeline.New(cfg.Pipeline(), exec, opts...)
	if err != nil {
		return nil, nil, err
	}

	return pipe, msr, nil
}

func logSlowestPath(msr measure.Measure) {
	if msr == nil {
		return
	}

	flows, err := measure.SlowestPath(msr)
	if err != nil {
		logger.Warn("unable to compute slowest path", zap.Error(err))

		return
	}
	for _, flow := range flows {
		logger.Info("slowest path",
			zap.String("instance", flow.Instance),
			zap.Duration("total", measure.Round(flow.Total)),
			zap.Duration("over_average", measure.Round(flow.OverAverage)),
		)
	}
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	pipe, msr, err := newPipeline(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	report, err := pipe.Run(cmd.Context(), pipeline.EventDescriptor{Kind: triggerKind, Source: source})
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
		logSlowestPath(msr)
	}
	if err != nil {
		return err
	}
	if report.Started && report.Status != model.StatusSuccess {
		return errPipelineFailed
	}

	return nil
}
