package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/internal/config"
	"github.com/askiada/go-gatepipe/pkg/pipeline"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline every time the configured schedule fires",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Schedule == "" {
		return errors.New("no schedule configured")
	}
	sched, err := pipeline.ParseSchedule(cfg.Schedule)
	if err != nil {
		return err
	}

	logger.Info("waiting for schedule", zap.Stringer("schedule", sched),
		zap.Time("next", sched.Next(time.Now())))
	sched.Run(cmd.Context(), logger, func(desc pipeline.EventDescriptor) {
		// pipeline options are single use, every fire gets its own pipeline
		pipe, msr, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			logger.Error("unable to create pipeline", zap.Error(err))

			return
		}
		report, err := pipe.Run(cmd.Context(), desc)
		if err != nil {
			logger.Error("pipeline run aborted", zap.Error(err))
		}
		if report != nil {
			printReport(cmd.OutOrStdout(), report)
			logSlowestPath(msr)
		}
		logger.Info("waiting for schedule", zap.Time("next", sched.Next(time.Now())))
	})

	return nil
}
