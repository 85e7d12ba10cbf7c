package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RevCBH/reeldeck/internal/client"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// GenerateOptions holds flags for the generate command
type GenerateOptions struct {
	Priority string
	Style    string
	Duration float64
	VoiceID  string
	Watch    bool
}

// NewGenerateCmd creates the 'generate' command for submitting a prompt
func NewGenerateCmd(a *App) *cobra.Command {
	var opts GenerateOptions

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Submit a video generation job",
		Long: `Submit a prompt to the job service and print the new job id.

With --watch, follow the job's progress live until it finishes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			req, err := opts.request(strings.Join(args, " "))
			if err != nil {
				return err
			}

			if !opts.Watch {
				id, err := a.newClient().Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printSubmitted(a, cmd, id)
			}

			rt, err := a.wireRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := rt.Coordinator.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := printSubmitted(a, cmd, id); err != nil {
				return err
			}
			return a.followJob(cmd, rt, id)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Priority, "priority", "p", string(jobs.PriorityMedium), "Priority: low, medium, high, critical")
	f.StringVar(&opts.Style, "style", "", "Visual style hint")
	f.Float64Var(&opts.Duration, "duration", 0, "Target length in seconds")
	f.StringVar(&opts.VoiceID, "voice", "", "Narration voice id")
	f.BoolVarP(&opts.Watch, "watch", "w", false, "Follow the job until it finishes")

	return cmd
}

func (o GenerateOptions) request(prompt string) (client.SubmitRequest, error) {
	p, err := jobs.ParsePriority(o.Priority)
	if err != nil {
		return client.SubmitRequest{}, err
	}
	return client.SubmitRequest{
		Prompt:   strings.TrimSpace(prompt),
		Priority: p,
		Style:    o.Style,
		Duration: o.Duration,
		VoiceID:  o.VoiceID,
	}, nil
}

func printSubmitted(a *App, cmd *cobra.Command, id string) error {
	if a.outputJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"jobId": id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", id)
	return nil
}
