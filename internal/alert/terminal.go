package alert

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// Terminal writes alerts to a writer, stderr by default
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal creates a terminal notifier writing to out; nil means stderr
func NewTerminal(out io.Writer) *Terminal {
	if out == nil {
		out = os.Stderr
	}
	return &Terminal{out: out}
}

// Notify writes the alert
func (t *Terminal) Notify(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := "✓ "
	switch a.Severity {
	case SeverityCritical:
		prefix = "✗ "
	case SeverityWarning:
		prefix = "⊘ "
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n%s[%s] %s\n", prefix, a.Severity, a.Title)
	fmt.Fprintf(t.out, "   %s\n", a.Message)

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(t.out, "   %s: %s\n", k, a.Fields[k])
	}
	return nil
}

// Name returns "terminal"
func (t *Terminal) Name() string {
	return "terminal"
}
