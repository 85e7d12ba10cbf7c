package store

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func job(id string, status jobs.Status, percent float64) jobs.Job {
	return jobs.Job{
		ID:       id,
		Prompt:   "prompt " + id,
		Priority: jobs.PriorityMedium,
		Status:   status,
		Progress: jobs.Progress{CurrentStage: status, Percent: percent},
	}
}

func windowOf(page int, list ...jobs.Job) jobs.WindowResponse {
	return jobs.WindowResponse{
		Window: jobs.Window{
			Jobs:        list,
			Total:       len(list),
			Pages:       1,
			CurrentPage: page,
			PageSize:    10,
		},
		Summary: jobs.Summary{Total: len(list)},
	}
}

func newTestStore(t *testing.T, list ...jobs.Job) *Store {
	t.Helper()
	s := New(nil)
	s.now = func() time.Time { return t0 }
	if len(list) > 0 {
		require.True(t, s.ApplySnapshot(s.BeginFetch(), windowOf(1, list...)))
	}
	return s
}

func TestApplySnapshot_ReplacesWindow(t *testing.T) {
	s := newTestStore(t)

	seq := s.BeginFetch()
	assert.True(t, s.State().Loading)

	resp := windowOf(1, job("A", jobs.StatusRendering, 40), job("B", jobs.StatusQueued, 0))
	resp.Summary = jobs.Summary{Total: 25, Queued: 4, Processing: 6, Completed: 12, Failed: 3}
	require.True(t, s.ApplySnapshot(seq, resp))

	st := s.State()
	assert.False(t, st.Loading)
	assert.True(t, st.Loaded)
	assert.Len(t, st.Window.Jobs, 2)
	assert.Equal(t, resp.Summary, st.Summary)
	assert.Equal(t, seq, st.Seq)
}

func TestApplySnapshot_HighestSequenceWins(t *testing.T) {
	s := newTestStore(t)

	seq1 := s.BeginFetch()
	seq2 := s.BeginFetch()
	require.Greater(t, seq2, seq1)

	// seq 2 resolves first
	require.True(t, s.ApplySnapshot(seq2, windowOf(2, job("P2", jobs.StatusQueued, 0))))
	assert.False(t, s.State().Loading)

	// the late seq 1 response is discarded
	assert.False(t, s.ApplySnapshot(seq1, windowOf(1, job("P1", jobs.StatusQueued, 0))))

	st := s.State()
	require.Len(t, st.Window.Jobs, 1)
	assert.Equal(t, "P2", st.Window.Jobs[0].ID)
	assert.Equal(t, 2, st.Window.CurrentPage)
}

func TestApplySnapshot_InOrderStaysLoadingUntilNewest(t *testing.T) {
	s := newTestStore(t)

	seq1 := s.BeginFetch()
	seq2 := s.BeginFetch()

	require.True(t, s.ApplySnapshot(seq1, windowOf(1, job("P1", jobs.StatusQueued, 0))))
	assert.True(t, s.State().Loading, "newest fetch has not settled")

	require.True(t, s.ApplySnapshot(seq2, windowOf(2, job("P2", jobs.StatusQueued, 0))))
	assert.False(t, s.State().Loading)
}

func TestApplySnapshot_TruncatesOverlongPage(t *testing.T) {
	s := newTestStore(t)

	resp := windowOf(1, job("A", jobs.StatusQueued, 0), job("B", jobs.StatusQueued, 0), job("C", jobs.StatusQueued, 0))
	resp.Window.PageSize = 2
	require.True(t, s.ApplySnapshot(s.BeginFetch(), resp))

	assert.Len(t, s.State().Window.Jobs, 2)
}

func TestFailFetch_KeepsStaleWindow(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusRendering, 40))

	seq := s.BeginFetch()
	boom := errors.New("connection refused")
	require.True(t, s.FailFetch(seq, boom))

	st := s.State()
	assert.False(t, st.Loading)
	assert.ErrorIs(t, st.Err, boom)
	assert.Equal(t, "connection refused", st.ErrorMessage())
	require.Len(t, st.Window.Jobs, 1)
	assert.Equal(t, "A", st.Window.Jobs[0].ID)

	// a later success clears the error
	require.True(t, s.ApplySnapshot(s.BeginFetch(), windowOf(1, job("B", jobs.StatusQueued, 0))))
	assert.NoError(t, s.State().Err)
}

func TestFailFetch_StaleIgnored(t *testing.T) {
	s := newTestStore(t)

	seq1 := s.BeginFetch()
	seq2 := s.BeginFetch()
	require.True(t, s.ApplySnapshot(seq2, windowOf(1, job("A", jobs.StatusQueued, 0))))

	assert.False(t, s.FailFetch(seq1, errors.New("late")))
	assert.NoError(t, s.State().Err)
}

func TestFailFetch_SupersedesOlderSnapshot(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusQueued, 0))

	seq1 := s.BeginFetch()
	seq2 := s.BeginFetch()
	require.True(t, s.FailFetch(seq2, errors.New("timeout")))

	assert.False(t, s.ApplySnapshot(seq1, windowOf(1, job("OLD", jobs.StatusQueued, 0))))
	st := s.State()
	assert.Equal(t, "A", st.Window.Jobs[0].ID)
	assert.Error(t, st.Err)
}

func TestApplyPatch_StatusUpdateForJobInWindow(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusPlanning, 10), job("B", jobs.StatusQueued, 0))

	res := s.ApplyPatch(events.StatusUpdate("A", jobs.StatusRendering, 55).At(t0.Add(time.Minute)))
	require.Equal(t, PatchApplied, res)

	a, ok := s.Job("A")
	require.True(t, ok)
	assert.Equal(t, jobs.StatusRendering, a.Status)
	assert.Equal(t, jobs.StatusRendering, a.Progress.CurrentStage)
	assert.Equal(t, 55.0, a.Progress.Percent)
	assert.Equal(t, t0.Add(time.Minute), a.UpdatedAt)

	b, _ := s.Job("B")
	assert.Equal(t, jobs.StatusQueued, b.Status, "other jobs untouched")
}

func TestApplyPatch_UnknownJobIsNoop(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusPlanning, 10))
	before := s.State()

	res := s.ApplyPatch(events.StatusUpdate("Z", jobs.StatusRendering, 90))
	assert.Equal(t, PatchDropped, res)

	after := s.State()
	assert.Len(t, after.Window.Jobs, len(before.Window.Jobs))
	assert.Equal(t, before.Window, after.Window)
	assert.Equal(t, before.Version, after.Version)
}

func TestApplyPatch_StatusRules(t *testing.T) {
	tests := []struct {
		name        string
		start       jobs.Job
		n           events.Notification
		want        PatchResult
		wantStatus  jobs.Status
		wantPercent float64
	}{
		{
			name:        "forward progress",
			start:       job("A", jobs.StatusRetrieving, 30),
			n:           events.StatusUpdate("A", jobs.StatusRetrieving, 35),
			want:        PatchApplied,
			wantStatus:  jobs.StatusRetrieving,
			wantPercent: 35,
		},
		{
			name:        "progress decrease dropped",
			start:       job("A", jobs.StatusRendering, 70),
			n:           events.StatusUpdate("A", jobs.StatusRendering, 65),
			want:        PatchDropped,
			wantStatus:  jobs.StatusRendering,
			wantPercent: 70,
		},
		{
			name:        "stage regression dropped",
			start:       job("A", jobs.StatusRendering, 70),
			n:           events.StatusUpdate("A", jobs.StatusPlanning, 80),
			want:        PatchDropped,
			wantStatus:  jobs.StatusRendering,
			wantPercent: 70,
		},
		{
			name:        "duplicate dropped",
			start:       job("A", jobs.StatusRendering, 70),
			n:           events.StatusUpdate("A", jobs.StatusRendering, 70),
			want:        PatchDropped,
			wantStatus:  jobs.StatusRendering,
			wantPercent: 70,
		},
		{
			name:        "failure keeps percent",
			start:       job("A", jobs.StatusRendering, 70),
			n:           events.StatusUpdate("A", jobs.StatusFailed, 0),
			want:        PatchApplied,
			wantStatus:  jobs.StatusFailed,
			wantPercent: 70,
		},
		{
			name:        "cancellation keeps percent",
			start:       job("A", jobs.StatusPlanning, 20),
			n:           events.StatusUpdate("A", jobs.StatusCancelled, 0),
			want:        PatchApplied,
			wantStatus:  jobs.StatusCancelled,
			wantPercent: 20,
		},
		{
			name:        "terminal job rejects update",
			start:       job("A", jobs.StatusCompleted, 100),
			n:           events.StatusUpdate("A", jobs.StatusRendering, 100),
			want:        PatchRejected,
			wantStatus:  jobs.StatusCompleted,
			wantPercent: 100,
		},
		{
			name:        "cancelled job rejects failure",
			start:       job("A", jobs.StatusCancelled, 40),
			n:           events.StatusUpdate("A", jobs.StatusFailed, 0),
			want:        PatchRejected,
			wantStatus:  jobs.StatusCancelled,
			wantPercent: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, tt.start)
			assert.Equal(t, tt.want, s.ApplyPatch(tt.n))

			j, ok := s.Job("A")
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, j.Status)
			assert.Equal(t, tt.wantStatus, j.Progress.CurrentStage)
			assert.Equal(t, tt.wantPercent, j.Progress.Percent)
		})
	}
}

func TestApplyPatch_LogEntriesAppend(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusRendering, 50), job("D", jobs.StatusCompleted, 100))

	assert.Equal(t, PatchApplied, s.ApplyPatch(events.LogEntry("A", "info", "Rendering scene 3")))
	assert.Equal(t, PatchApplied, s.ApplyPatch(events.LogEntry("A", "info", "Rendering scene 3")))
	assert.Equal(t, PatchApplied, s.ApplyPatch(events.LogEntry("D", "info", "Uploaded")))

	a, _ := s.Job("A")
	assert.Equal(t, []string{"Rendering scene 3", "Rendering scene 3"}, a.Progress.Logs)

	d, _ := s.Job("D")
	assert.Equal(t, []string{"Uploaded"}, d.Progress.Logs)
	assert.Equal(t, jobs.StatusCompleted, d.Status)
}

func TestApplyPatch_Completed(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusRendering, 90))

	at := t0.Add(5 * time.Minute)
	require.Equal(t, PatchApplied, s.ApplyPatch(events.Completed("A", "https://cdn/a.mp4", 42.5).At(at)))

	a, _ := s.Job("A")
	assert.Equal(t, jobs.StatusCompleted, a.Status)
	assert.Equal(t, jobs.StatusCompleted, a.Progress.CurrentStage)
	assert.Equal(t, "https://cdn/a.mp4", a.ResultURL)
	assert.Equal(t, 42.5, a.Duration)
	require.NotNil(t, a.CompletedAt)
	assert.Equal(t, at, *a.CompletedAt)

	// a second terminal event is rejected
	assert.Equal(t, PatchRejected, s.ApplyPatch(events.Failed("A", "late failure")))
	assert.Equal(t, PatchRejected, s.ApplyPatch(events.Completed("A", "other", 1)))
	a, _ = s.Job("A")
	assert.Equal(t, "https://cdn/a.mp4", a.ResultURL)
	assert.Empty(t, a.ErrorMessage)
}

func TestApplyPatch_Failed(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusGeneratingAudio, 45))

	require.Equal(t, PatchApplied, s.ApplyPatch(events.Failed("A", "TTS quota exceeded")))

	a, _ := s.Job("A")
	assert.Equal(t, jobs.StatusFailed, a.Status)
	assert.Equal(t, "TTS quota exceeded", a.ErrorMessage)
	assert.Equal(t, 45.0, a.Progress.Percent)
	assert.NotNil(t, a.CompletedAt)
}

func TestApplyPatch_TerminalStatusUpdateSetsCompletedAt(t *testing.T) {
	for _, st := range []jobs.Status{jobs.StatusCompleted, jobs.StatusFailed, jobs.StatusCancelled} {
		t.Run(string(st), func(t *testing.T) {
			s := newTestStore(t, job("A", jobs.StatusRendering, 80))

			at := t0.Add(time.Minute)
			require.Equal(t, PatchApplied, s.ApplyPatch(events.StatusUpdate("A", st, 100).At(at)))

			a, _ := s.Job("A")
			assert.Equal(t, st, a.Status)
			require.NotNil(t, a.CompletedAt)
			assert.Equal(t, at, *a.CompletedAt)
		})
	}
}

func TestApplyPatch_QueueUpdatedLeavesSummary(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusQueued, 0))
	before := s.State().Summary

	n := events.Notification{Type: events.QueueUpdated, Queue: &events.QueueCounts{Queued: 9, Processing: 3}, Time: t0}
	require.Equal(t, PatchApplied, s.ApplyPatch(n))

	st := s.State()
	assert.Equal(t, before, st.Summary)
	require.NotNil(t, st.Queue)
	assert.Equal(t, jobs.QueueStats{Queued: 9, Processing: 3, At: t0}, *st.Queue)

	assert.Equal(t, PatchDropped, s.ApplyPatch(events.Notification{Type: events.QueueUpdated}))
}

func TestApplyPatch_IgnoresAcknowledgements(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusQueued, 0))
	assert.Equal(t, PatchDropped, s.ApplyPatch(events.Notification{Type: events.Subscribed, JobID: "A"}))
}

func TestApplyPatch_SnapshotOverridesPatches(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusRendering, 60))
	require.Equal(t, PatchApplied, s.ApplyPatch(events.StatusUpdate("A", jobs.StatusRendering, 80)))

	// authoritative fetch reports the server's view, even if behind
	require.True(t, s.ApplySnapshot(s.BeginFetch(), windowOf(1, job("A", jobs.StatusRendering, 75))))
	a, _ := s.Job("A")
	assert.Equal(t, 75.0, a.Progress.Percent)
}

// Random notification streams never lower progress (except on failure or
// cancellation) and never move a job out of a terminal state.
func TestApplyPatch_MonotonicUnderRandomStreams(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	statuses := jobs.AllStatuses()

	for run := 0; run < 200; run++ {
		s := newTestStore(t, job("A", jobs.StatusQueued, 0))
		prev, _ := s.Job("A")

		for step := 0; step < 30; step++ {
			var n events.Notification
			switch rng.Intn(4) {
			case 0, 1:
				n = events.StatusUpdate("A", statuses[rng.Intn(len(statuses))], float64(rng.Intn(101)))
			case 2:
				n = events.Completed("A", "u", 1)
			default:
				n = events.Failed("A", "x")
			}
			s.ApplyPatch(n)

			cur, _ := s.Job("A")
			if prev.Status.IsTerminal() {
				require.Equal(t, prev.Status, cur.Status, "left terminal state %s", prev.Status)
			}
			if cur.Status != jobs.StatusFailed && cur.Status != jobs.StatusCancelled {
				require.GreaterOrEqual(t, cur.Progress.Percent, prev.Progress.Percent, "progress decreased")
			}
			prev = cur
		}
	}
}

func TestState_IsDeepCopy(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusRendering, 50))
	s.ApplyPatch(events.LogEntry("A", "info", "one"))

	st := s.State()
	st.Window.Jobs[0].Status = jobs.StatusFailed
	st.Window.Jobs[0].Progress.Logs[0] = "mutated"
	st.Window.Jobs = append(st.Window.Jobs, job("X", jobs.StatusQueued, 0))

	a, _ := s.Job("A")
	assert.Equal(t, jobs.StatusRendering, a.Status)
	assert.Equal(t, []string{"one"}, a.Progress.Logs)
	assert.Len(t, s.State().Window.Jobs, 1)
}

func TestOnChange(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusRendering, 50))

	var mu sync.Mutex
	var seen []uint64
	remove := s.OnChange(func(st State) {
		mu.Lock()
		seen = append(seen, st.Version)
		mu.Unlock()
	})

	s.ApplyPatch(events.StatusUpdate("A", jobs.StatusRendering, 60))
	s.ApplyPatch(events.StatusUpdate("Z", jobs.StatusRendering, 60)) // dropped, no notify
	s.FailFetch(s.BeginFetch(), errors.New("x"))

	remove()
	remove()
	s.ApplyPatch(events.StatusUpdate("A", jobs.StatusRendering, 70))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Less(t, seen[0], seen[1])
	assert.Less(t, seen[1], seen[2])
}

func TestIssueFetch_NotifiesOnlyOnPublish(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusQueued, 0))

	var calls int
	remove := s.OnChange(func(State) { calls++ })
	defer remove()

	seq := s.IssueFetch()
	assert.Equal(t, 0, calls)
	assert.True(t, s.State().Loading)

	s.Publish()
	assert.Equal(t, 1, calls)

	require.True(t, s.ApplySnapshot(seq, windowOf(1, job("B", jobs.StatusQueued, 0))))
	assert.False(t, s.State().Loading)
	assert.Equal(t, 2, calls)
}

func TestOnChange_ListenersGetIndependentCopies(t *testing.T) {
	s := newTestStore(t, job("A", jobs.StatusRendering, 50))

	var second State
	s.OnChange(func(st State) { st.Window.Jobs[0].ID = "mutated" })
	s.OnChange(func(st State) { second = st })

	s.ApplyPatch(events.StatusUpdate("A", jobs.StatusRendering, 60))
	require.Len(t, second.Window.Jobs, 1)
	assert.Equal(t, "A", second.Window.Jobs[0].ID)
}

func TestPatchResult_String(t *testing.T) {
	assert.Equal(t, "applied", PatchApplied.String())
	assert.Equal(t, "dropped", PatchDropped.String())
	assert.Equal(t, "rejected", PatchRejected.String())
}
