package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askiada/go-gatepipe/internal/config"
	"github.com/askiada/go-gatepipe/pkg/pipeline"
	"github.com/askiada/go-gatepipe/pkg/pipeline/drawer"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw the pipeline of the configuration without running it",
	Long: `Writes the DOT graph of every run instance the configuration can create,
fallback instances included.

Example:
  gatepipe draw --config gatepipe.yaml --out pipeline.dot && dot -Tsvg pipeline.dot`,
	Args: cobra.NoArgs,
	RunE: runDraw,
}

func runDraw(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	opt := drawer.PipelineDrawer(drawer.NewDOTDrawer(drawFile), nil)
	err = drawPlan(opt, cfg.Pipeline())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pipeline drawn to %s\n", drawFile)

	return nil
}

// drawPlan feeds opt the stages and pending instances of a run, without executing anything.
func drawPlan(opt model.PipelineOption, cfg pipeline.Config) error {
	err := opt.New()
	if err != nil {
		return err
	}

	stages := []struct {
		name model.StageName
		cfg  pipeline.StageConfig
	}{
		{model.StagePrimary, cfg.Primary},
		{model.StageFallback, cfg.Fallback},
	}
	for _, stage := range stages {
		instances, err := pipeline.Expand(stage.name, stage.cfg.Matrix)
		if err != nil {
			return err
		}
		info := &model.StageInfo{
			Name:      stage.name,
			Matrix:    stage.cfg.Matrix,
			FailFast:  stage.cfg.FailFast,
			Reduced:   stage.name == model.StageFallback,
			Artifact:  stage.cfg.ArtifactName,
			Instances: len(instances),
		}

		err = opt.PrepareStage(info)
		if err != nil {
			return err
		}
		for _, inst := range instances {
			err = opt.PrepareInstance(info, inst.Info())
			if err != nil {
				return err
			}
		}
	}

	return opt.Finish()
}
