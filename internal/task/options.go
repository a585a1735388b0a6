package task

import "time"

// Observer is notified around every task run. The metrics package
// implements it.
type Observer interface {
	TaskStarted(name string)
	TaskFinished(name string, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) TaskStarted(string)                       {}
func (nopObserver) TaskFinished(string, time.Duration, error) {}

type options struct {
	prepare  Func
	sink     FailureSink
	observer Observer
}

// Option configures a Leaf or a Group.
type Option func(*options)

// WithPrepare sets the setup check a leaf runs before an invocation starts.
// It has no effect on groups.
func WithPrepare(fn Func) Option {
	return func(o *options) { o.prepare = fn }
}

// WithFailureSink sets where a leaf reports swallowed failures. It has no
// effect on groups.
func WithFailureSink(s FailureSink) Option {
	return func(o *options) { o.sink = s }
}

// WithObserver sets the run observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func buildOptions(opts []Option) options {
	o := options{sink: nopSink{}, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sink == nil {
		o.sink = nopSink{}
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o
}
