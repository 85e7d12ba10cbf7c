package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RevCBH/reeldeck/internal/web"
)

// ServeOptions holds flags for the serve command
type ServeOptions struct {
	Addr string
}

// NewServeCmd creates the 'serve' command, which keeps a live job window
// synchronized and mirrors it over HTTP.
func NewServeCmd(a *App) *cobra.Command {
	var opts ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live job window over HTTP",
		Long: `Keep the job window synchronized and expose it locally.

Endpoints:
  GET  /api/state      current window, summary and connection mode
  GET  /api/jobs/{id}  one job
  GET  /api/events     server-sent events of state changes and notifications
  POST /api/refresh    force a window fetch
  GET  /healthz        liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			addr := opts.Addr
			if addr == "" {
				addr = a.cfg.Dashboard.Listen
			}

			rt, err := a.wireRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			alerts, stopAlerts, err := a.newAlerts(cmd.ErrOrStderr(), "")
			if err != nil {
				return err
			}
			defer stopAlerts()
			defer rt.Coordinator.OnNotification(alerts)()

			srv, err := web.New(web.Config{Addr: addr}, rt.Coordinator, rt.Client, a.log)
			if err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving job window on http://%s\n", srv.Addr())

			ctx, release := withSignals(cmd.Context(), a.log)
			defer release()

			runErr := rt.Coordinator.Run(ctx)

			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				a.log.Warn("mirror shutdown", "error", err)
			}

			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default from dashboard.listen)")
	return cmd
}
