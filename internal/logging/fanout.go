package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Fanout copies each record to every sink enabled for its level. A failing sink
// (an unreachable Graylog, a full disk) never blocks the others; its failures are
// counted and surfaced through Failures so the monitor can report them.
type Fanout struct {
	sinks    []slog.Handler
	failures *atomic.Uint64
}

// NewFanout drops nil sinks, so optional outputs can be passed unconditionally.
func NewFanout(sinks ...slog.Handler) *Fanout {
	f := &Fanout{failures: new(atomic.Uint64)}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Failures is the number of records a sink refused since the fanout was built.
// Derived fanouts share the counter.
func (f *Fanout) Failures() uint64 { return f.failures.Load() }

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, s := range f.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			f.failures.Add(1)
		}
	}
	return nil
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	sinks := make([]slog.Handler, len(f.sinks))
	for i, s := range f.sinks {
		sinks[i] = fn(s)
	}
	return &Fanout{sinks: sinks, failures: f.failures}
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}
