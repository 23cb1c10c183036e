// Package diagnostics is the sink for user-facing progress and cleanup
// messages emitted by the engine, distinct from the structured slog record
// of the same event. It has no notion of a spinner or animation, so there is
// nothing that can "dangle" if output is redirected or disabled.
package diagnostics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Sink receives human-readable progress messages.
type Sink interface {
	Message(ctx context.Context, msg string)
}

type terminalSink struct {
	writer io.Writer
}

// NewTerminalSink writes dimmed messages to writer, or silently drops them
// (logging at debug level instead) if writer is nil.
func NewTerminalSink(writer io.Writer) Sink {
	return &terminalSink{writer: writer}
}

func (t *terminalSink) Message(ctx context.Context, msg string) {
	if t.writer == nil {
		slog.DebugContext(ctx, "diagnostics (no writer)", "msg", msg)
		return
	}
	fmt.Fprintln(t.writer, "\033[90m"+msg+"\033[0m")
}

type nullSink struct{}

// NewNullSink discards every message, logging each at debug level. Useful
// for tests and for the CLI's --quiet mode.
func NewNullSink() Sink {
	return &nullSink{}
}

func (n *nullSink) Message(ctx context.Context, msg string) {
	slog.DebugContext(ctx, "diagnostics (null sink)", "msg", msg)
}
