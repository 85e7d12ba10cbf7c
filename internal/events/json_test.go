package events

import (
	"errors"
	"testing"
	"time"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

var received = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDecode_StatusUpdate(t *testing.T) {
	data := []byte(`{"jobId":"job-1","status":"rendering","progress":72.5,"message":"Rendering","timestamp":"2024-06-01T11:59:58.123456"}`)

	n, err := Decode("job_status_update", data, received)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Type != JobStatusUpdate {
		t.Errorf("expected type %s, got %s", JobStatusUpdate, n.Type)
	}
	if n.JobID != "job-1" || n.Status != jobs.StatusRendering || n.Progress != 72.5 {
		t.Errorf("unexpected notification: %+v", n)
	}
	want := time.Date(2024, 6, 1, 11, 59, 58, 123456000, time.UTC)
	if !n.Time.Equal(want) {
		t.Errorf("expected time %v, got %v", want, n.Time)
	}
}

func TestDecode_ClampsProgress(t *testing.T) {
	n, err := Decode("job_status_update", []byte(`{"jobId":"a","status":"planning","progress":140}`), received)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Progress != 100 {
		t.Errorf("expected progress clamped to 100, got %v", n.Progress)
	}
}

func TestDecode_FallsBackToReceiveTime(t *testing.T) {
	for _, ts := range []string{``, `,"timestamp":"yesterday"`} {
		n, err := Decode("job_log_entry", []byte(`{"jobId":"a","level":"info","message":"hi"`+ts+`}`), received)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !n.Time.Equal(received) {
			t.Errorf("timestamp %q: expected receive time, got %v", ts, n.Time)
		}
	}
}

func TestDecode_RFC3339(t *testing.T) {
	n, err := Decode("job_failed", []byte(`{"jobId":"a","errorMessage":"boom","timestamp":"2024-06-01T13:00:00+02:00"}`), received)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.Time.Equal(time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", n.Time)
	}
	if n.ErrorMessage != "boom" {
		t.Errorf("expected error message boom, got %q", n.ErrorMessage)
	}
}

func TestDecode_Completed(t *testing.T) {
	n, err := Decode("job_completed", []byte(`{"jobId":"a","videoUrl":"https://cdn/v.mp4","duration":31.5}`), received)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.VideoURL != "https://cdn/v.mp4" || n.Duration != 31.5 {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestDecode_QueueUpdated(t *testing.T) {
	n, err := Decode("queue_updated", []byte(`{"queued":4,"processing":2}`), received)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Queue == nil || n.Queue.Queued != 4 || n.Queue.Processing != 2 {
		t.Errorf("unexpected queue counts: %+v", n.Queue)
	}
	if n.JobID != "" {
		t.Errorf("queue update should carry no job id, got %q", n.JobID)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		event string
		data  string
	}{
		{"unknown event", "job_paused", `{"jobId":"a"}`},
		{"bad json", "job_failed", `{"jobId":`},
		{"bad status", "job_status_update", `{"jobId":"a","status":"paused"}`},
		{"missing job id", "job_completed", `{"videoUrl":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.event, []byte(tt.data), received); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := Decode("job_paused", nil, received)
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestDecode_Acknowledgements(t *testing.T) {
	n, err := Decode("connected", nil, received)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Type != Connected || n.Type.IsJobEvent() {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestParseFrame(t *testing.T) {
	n, err := ParseFrame([]byte(`{"event":"job_log_entry","data":{"jobId":"a","level":"warn","message":"slow"}}`), received)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Type != JobLogEntry || n.Level != "warn" || n.Message != "slow" {
		t.Errorf("unexpected notification: %+v", n)
	}

	if _, err := ParseFrame([]byte(`not json`), received); err == nil {
		t.Error("expected error for invalid frame")
	}
}
