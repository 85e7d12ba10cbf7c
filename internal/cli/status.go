package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the 'status' command for showing one job
func NewStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's status and logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			j, err := a.newClient().GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if a.outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), j)
			}
			displayJob(cmd.OutOrStdout(), j)
			return nil
		},
	}
}

// NewCancelCmd creates the 'cancel' command
func NewCancelCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			id := args[0]
			if err := a.newClient().Cancel(cmd.Context(), id); err != nil {
				return err
			}

			if a.outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"jobId": id, "cancelled": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled job %s\n", id)
			return nil
		},
	}
}
