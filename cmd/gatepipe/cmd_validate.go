package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askiada/go-gatepipe/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		pipe := cfg.Pipeline()
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: primary matrix %v, fallback excludes %v\n",
			configPath, pipe.Primary.Matrix, pipe.Fallback.ExcludedCapabilities)

		return nil
	},
}
