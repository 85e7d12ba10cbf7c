package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/RevCBH/reeldeck/internal/coordinator"
	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// NewWatchCmd creates the 'watch' command for following one job live
func NewWatchCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a job's progress until it finishes",
		Long: `Follow a single job. Push notifications are printed as they arrive;
when the push channel is down the job is polled instead.

Exits non-zero if the job fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}

			rt, err := a.wireRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			return a.followJob(cmd, rt, args[0])
		},
	}
}

// followJob streams notifications for id until the job reaches a terminal
// state or the command is interrupted.
func (a *App) followJob(cmd *cobra.Command, rt *Runtime, id string) error {
	ctx, release := withSignals(cmd.Context(), a.log)
	defer release()

	out := cmd.OutOrStdout()
	jsonOut := a.outputJSON(cmd)

	job, err := rt.Client.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return a.finishWatch(out, jsonOut, job)
	}
	if !jsonOut {
		fmt.Fprintf(out, "Watching job %s (%s, %.0f%%)\n", id, job.Status, job.Progress.Percent)
	}

	alerts, stopAlerts, err := a.newAlerts(cmd.ErrOrStderr(), id)
	if err != nil {
		return err
	}
	defer stopAlerts()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	show := printer(out, jsonOut, id)
	tracker := newJobTracker(id, *job, func(n events.Notification) {
		show(n)
		alerts(n)
	})
	unsubscribe := rt.Coordinator.OnNotification(tracker.observe)
	defer unsubscribe()

	w := rt.Coordinator.Watch(id)
	defer w.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- rt.Coordinator.Run(runCtx) }()

	ticker := time.NewTicker(a.cfg.PollInterval())
	defer ticker.Stop()

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case err := <-runErr:
			if err != nil {
				return err
			}
			runErr = nil
		case <-tracker.done:
			break loop
		case <-ticker.C:
			if rt.Coordinator.Mode() == coordinator.ModePush {
				continue
			}
			j, err := rt.Client.GetJob(runCtx, id)
			if err != nil {
				a.log.Debug("poll job failed", "job", id, "error", err)
				continue
			}
			tracker.poll(*j)
		}
	}

	stop()
	if runErr != nil {
		if err := <-runErr; err != nil {
			a.log.Debug("coordinator stopped", "error", err)
		}
	}

	if ctx.Err() != nil {
		if !jsonOut {
			fmt.Fprintln(out, "Stopped watching.")
		}
		return nil
	}

	fctx, cancel := context.WithTimeout(context.Background(), a.cfg.APITimeout())
	defer cancel()
	final, err := rt.Client.GetJob(fctx, id)
	if err != nil {
		return err
	}
	return a.finishWatch(out, jsonOut, final)
}

func (a *App) finishWatch(out io.Writer, jsonOut bool, j *jobs.Job) error {
	if jsonOut {
		if err := writeJSON(out, j); err != nil {
			return err
		}
	} else {
		displayJob(out, j)
	}

	if j.Status == jobs.StatusFailed {
		msg := j.ErrorMessage
		if msg == "" {
			msg = "no error message"
		}
		return fmt.Errorf("job %s failed: %s", j.ID, msg)
	}
	return nil
}

func printer(out io.Writer, jsonOut bool, id string) events.Handler {
	if !jsonOut {
		return events.LogHandler(events.LogConfig{
			Writer:      out,
			IncludeTime: true,
			JobID:       id,
		})
	}
	enc := json.NewEncoder(out)
	return func(n events.Notification) {
		if n.JobID != id {
			return
		}
		_ = enc.Encode(n)
	}
}

// jobTracker prints progress for one job and signals done once the job is
// terminal. Push notifications and polls both feed it.
type jobTracker struct {
	id   string
	emit events.Handler
	done chan struct{}

	mu       sync.Mutex
	last     jobs.Job
	finished bool
}

func newJobTracker(id string, initial jobs.Job, emit events.Handler) *jobTracker {
	return &jobTracker{
		id:   id,
		emit: emit,
		done: make(chan struct{}),
		last: initial,
	}
}

func (t *jobTracker) observe(n events.Notification) {
	if n.JobID != t.id {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished || t.stale(n) {
		return
	}
	t.emit(n)
	switch n.Type {
	case events.JobStatusUpdate:
		t.last.Status = n.Status
		t.last.Progress.Percent = n.Progress
		if n.Status.IsTerminal() {
			t.finishLocked()
		}
	case events.JobCompleted, events.JobFailed:
		t.finishLocked()
	}
}

// stale reports a non-terminal status update that moves the job backwards.
func (t *jobTracker) stale(n events.Notification) bool {
	if n.Type != events.JobStatusUpdate || n.Status.IsTerminal() {
		return false
	}
	return n.Status.Rank() < t.last.Status.Rank() || n.Progress < t.last.Progress.Percent
}

// poll reports a fetched copy of the job, emitting a status line when it
// differs from what was last seen.
func (t *jobTracker) poll(j jobs.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}

	if j.Status != t.last.Status || j.Progress.Percent != t.last.Progress.Percent {
		t.emit(events.StatusUpdate(j.ID, j.Status, j.Progress.Percent).At(time.Now()))
	}
	t.last = j
	if j.Status.IsTerminal() {
		t.finishLocked()
	}
}

func (t *jobTracker) finishLocked() {
	if !t.finished {
		t.finished = true
		close(t.done)
	}
}
