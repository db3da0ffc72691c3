package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// MatchContext tracks the current match session and tick so every log record can
// carry them. It is updated from the tick handler and read from any goroutine.
type MatchContext struct {
	session atomic.Value // string
	tick    atomic.Uint64
}

// SetSession records the session id of the match being played. An empty id clears
// it and stops the stamping.
func (c *MatchContext) SetSession(id string) { c.session.Store(id) }

// SetTick records the latest tick number.
func (c *MatchContext) SetTick(n uint64) { c.tick.Store(n) }

// Session is the current session id, empty between matches.
func (c *MatchContext) Session() string {
	id, _ := c.session.Load().(string)
	return id
}

// Attrs returns the match and tick attributes, or nothing between matches.
func (c *MatchContext) Attrs() []slog.Attr {
	id := c.Session()
	if id == "" {
		return nil
	}
	return []slog.Attr{slog.String("match", id), slog.Uint64("tick", c.tick.Load())}
}

// MatchHandler stamps the live match and tick on records passing through it. The
// values are read at Handle time, so loggers derived before a match started still
// pick them up.
type MatchHandler struct {
	inner slog.Handler
	match *MatchContext
}

func NewMatchHandler(inner slog.Handler, match *MatchContext) *MatchHandler {
	return &MatchHandler{inner: inner, match: match}
}

func (h *MatchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *MatchHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.match != nil {
		r.AddAttrs(h.match.Attrs()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *MatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MatchHandler{inner: h.inner.WithAttrs(attrs), match: h.match}
}

// WithGroup nests later attributes. Match and tick land inside the group too, which
// keeps them next to the caller's own keys.
func (h *MatchHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &MatchHandler{inner: h.inner.WithGroup(name), match: h.match}
}
