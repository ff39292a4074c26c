package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API server is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	health, err := e.App.API.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	uptime := time.Duration(health.Uptime * float64(time.Second)).Round(time.Second)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (up %s)\n", health.Status, uptime)
	return nil
}
