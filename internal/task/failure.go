package task

import (
	"context"
	"time"
)

// Failure is a transformation error captured from a leaf run.
type Failure struct {
	Task  string
	RunID string
	Err   error
	At    time.Time
}

// FailureSink receives the failures a leaf swallows. Implementations must
// not block for long: Report is called inline before the leaf completes.
type FailureSink interface {
	Report(ctx context.Context, f Failure)
}

// SinkFunc adapts a function to the FailureSink interface.
type SinkFunc func(ctx context.Context, f Failure)

// Report calls fn.
func (fn SinkFunc) Report(ctx context.Context, f Failure) { fn(ctx, f) }

// ChanSink delivers failures on a channel. Sends never block; a failure is
// dropped when the channel is full.
type ChanSink chan Failure

// Report implements FailureSink.
func (c ChanSink) Report(_ context.Context, f Failure) {
	select {
	case c <- f:
	default:
	}
}

type multiSink []FailureSink

func (m multiSink) Report(ctx context.Context, f Failure) {
	for _, s := range m {
		s.Report(ctx, f)
	}
}

// MultiSink fans a failure out to every non-nil sink.
func MultiSink(sinks ...FailureSink) FailureSink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type nopSink struct{}

func (nopSink) Report(context.Context, Failure) {}
