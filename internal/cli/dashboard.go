package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RevCBH/reeldeck/internal/cli/tui"
	"github.com/RevCBH/reeldeck/internal/coordinator"
)

// DashboardOptions holds flags for the dashboard command
type DashboardOptions struct {
	LogFile string
}

// NewDashboardCmd creates the interactive 'dashboard' command
func NewDashboardCmd(a *App) *cobra.Command {
	var opts DashboardOptions

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Browse and follow jobs interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) {
				return fmt.Errorf("dashboard needs a terminal; use 'reeldeck serve' or 'reeldeck jobs' instead")
			}

			sender := &deferredSender{}
			var logs *tui.LogWriter
			if opts.LogFile != "" {
				f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				a.logWriter = f
			} else {
				logs = tui.NewLogWriter(sender)
				defer logs.Close()
				a.logWriter = logs
			}

			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			rt, err := a.wireRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			alerts, stopAlerts, err := a.newAlerts(a.logWriter, "")
			if err != nil {
				return err
			}
			defer stopAlerts()
			defer rt.Coordinator.OnNotification(alerts)()

			return runDashboard(cmd.Context(), rt.Coordinator, sender)
		},
	}

	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "Write logs to this file instead of the log pane")
	return cmd
}

func runDashboard(parent context.Context, coord *coordinator.Coordinator, sender *deferredSender) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	model := tui.NewModel(dashboardController{coord})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	sender.attach(program)

	bridge := tui.NewBridge(program)
	stopState := coord.Store().OnChange(bridge.StateListener())
	defer stopState()
	stopNotes := coord.OnNotification(bridge.Handler())
	defer stopNotes()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coord.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	model.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// dashboardController adapts the coordinator to the dashboard's needs
type dashboardController struct {
	*coordinator.Coordinator
}

func (d dashboardController) Follow(id string) func() {
	return d.Watch(id).Close
}

// deferredSender lets the logger exist before the program does. Messages
// sent before attach are dropped.
type deferredSender struct {
	mu      sync.Mutex
	program *tea.Program
}

func (d *deferredSender) attach(p *tea.Program) {
	d.mu.Lock()
	d.program = p
	d.mu.Unlock()
}

func (d *deferredSender) Send(msg tea.Msg) {
	d.mu.Lock()
	p := d.program
	d.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}
