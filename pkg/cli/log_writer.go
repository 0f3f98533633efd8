package cli

import (
	"strings"

	"github.com/haivivi/ambient/pkg/buffer"
)

// LogWriter implements io.Writer and keeps the most recent log lines for
// display in a TUI, so log output does not tear the frame.
type LogWriter struct {
	lines *buffer.Window[string]
	ch    chan string
}

// NewLogWriter creates a log writer keeping at most maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		lines: buffer.WindowN[string](maxLines),
		ch:    make(chan string, 100),
	}
}

// Write splits p on newlines and records each line.
func (w *LogWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	for _, line := range strings.Split(text, "\n") {
		w.lines.Add(line)

		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Lines returns the retained lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.lines.Snapshot(nil)
}

// Channel delivers new lines. Lines are dropped when nobody is receiving.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
