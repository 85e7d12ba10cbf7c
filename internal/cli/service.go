package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPrefetchCmd creates the 'prefetch' command
func NewPrefetchCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch <job-id>",
		Short: "Ask the service to warm assets for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			if err := a.newClient().Prefetch(cmd.Context(), args[0]); err != nil {
				return err
			}

			if a.outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"jobId": args[0], "prefetch": "requested"})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prefetch requested for job %s\n", args[0])
			return nil
		},
	}
}

// NewHealthCmd creates the 'health' command
func NewHealthCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the job service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			info, err := a.newClient().Health(cmd.Context())
			if err != nil {
				return err
			}

			if a.outputJSON(cmd) {
				if err := writeJSON(cmd.OutOrStdout(), info); err != nil {
					return err
				}
			} else {
				name := info.Service
				if name == "" {
					name = a.cfg.API.URL
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, info.Status)
			}

			if !info.Healthy {
				return fmt.Errorf("service unhealthy: %s", info.Status)
			}
			return nil
		},
	}
}
