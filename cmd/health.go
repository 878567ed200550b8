package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formdeck/formdeck/pkg/config"
	"github.com/formdeck/formdeck/pkg/providers"
)

// healthCmd verifies that the configured AI backend is reachable.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the configured AI provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		provider, err := providers.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		hc, ok := provider.(providers.HealthChecker)
		if !ok {
			fmt.Printf("%s: no health check available\n", cfg.Provider)
			return nil
		}
		if err := hc.CheckHealth(cmd.Context()); err != nil {
			return fmt.Errorf("%s: %w", cfg.Provider, err)
		}
		fmt.Printf("%s: ok\n", cfg.Provider)
		return nil
	},
}
