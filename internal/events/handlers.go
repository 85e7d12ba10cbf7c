package events

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Handler receives notifications from a Bus
type Handler func(n Notification)

// LogConfig configures the logging handler
type LogConfig struct {
	// Writer is where logs are written (default: os.Stderr)
	Writer io.Writer

	// IncludeTime prefixes each line with the notification time
	IncludeTime bool

	// TimeFormat is the timestamp format (default: 15:04:05)
	TimeFormat string

	// JobID restricts output to a single job; queue updates still pass
	JobID string
}

// LogHandler returns a handler that writes one line per notification.
// Format: [type] job status=... progress=...
func LogHandler(cfg LogConfig) Handler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "15:04:05"
	}

	return func(n Notification) {
		if cfg.JobID != "" && n.JobID != "" && n.JobID != cfg.JobID {
			return
		}

		var buf strings.Builder
		if cfg.IncludeTime {
			t := n.Time
			if t.IsZero() {
				t = time.Now()
			}
			buf.WriteString(t.Local().Format(cfg.TimeFormat))
			buf.WriteString(" ")
		}
		buf.WriteString(n.String())
		buf.WriteString("\n")

		fmt.Fprint(cfg.Writer, buf.String())
	}
}

// FilterHandler forwards only notifications whose type is in types
func FilterHandler(next Handler, types ...Type) Handler {
	allowed := make(map[Type]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(n Notification) {
		if allowed[n.Type] {
			next(n)
		}
	}
}
