// Command gatepipe runs the gated verification pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// run flags
	triggerKind string
	source      string
	dotFile     string

	// draw flags
	drawFile string

	logger = zap.NewNop()
)

// errPipelineFailed makes the process exit with a non-zero status without printing usage.
var errPipelineFailed = errors.New("pipeline failed")

var rootCmd = &cobra.Command{
	Use:   "gatepipe",
	Short: "Gated test orchestration pipeline",
	Long: `gatepipe runs a primary verification stage across an environment matrix and,
only when it fails, a fallback stage with optional capabilities excluded.
Diagnostic bundles are captured for every failed instance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gatepipe.yaml", "Configuration file")

	runCmd.Flags().StringVar(&triggerKind, "trigger", string(model.TriggerManual), "Trigger kind (manual or scheduled)")
	runCmd.Flags().StringVar(&source, "source", "cli", "Reference recorded on the trigger event")
	runCmd.Flags().StringVar(&dotFile, "dot", "", "Write the run graph to this DOT file")
	scheduleCmd.Flags().StringVar(&dotFile, "dot", "", "Write the run graph of the last run to this DOT file")
	drawCmd.Flags().StringVarP(&drawFile, "out", "o", "gatepipe.dot", "DOT file to write")

	rootCmd.AddCommand(runCmd, scheduleCmd, validateCmd, drawCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errPipelineFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
