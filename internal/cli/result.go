package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RevCBH/reeldeck/internal/client"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// NewResultCmd creates the 'result' command
func NewResultCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "result <job-id>",
		Short: "Show the finished video for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			r, err := a.newClient().FetchResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if a.outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			displayResult(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

// NewStoryboardCmd creates the 'storyboard' command
func NewStoryboardCmd(a *App) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "storyboard <job-id>",
		Short: "Show a job's planned scenes",
		Long: `Show the storyboard generated for a job.

The storyboard exists once planning has finished. Use --wait to keep
asking until it is ready or the wait elapses.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			sb, err := fetchStoryboard(cmd, a.newClient(), args[0], wait)
			if err != nil {
				return err
			}

			if a.outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), sb)
			}
			displayStoryboard(cmd.OutOrStdout(), sb)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for the storyboard (e.g. 2m)")
	return cmd
}

func fetchStoryboard(cmd *cobra.Command, c *client.Client, id string, wait time.Duration) (*jobs.Storyboard, error) {
	ctx := cmd.Context()
	deadline := time.Now().Add(wait)

	for {
		sb, err := c.FetchStoryboard(ctx, id)
		if !errors.Is(err, client.ErrStoryboardPending) {
			return sb, err
		}
		if wait <= 0 || time.Now().After(deadline) {
			return nil, fmt.Errorf("job %s: %w", id, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
