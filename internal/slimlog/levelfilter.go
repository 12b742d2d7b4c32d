package slimlog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LevelFilter wraps a slog.Handler and drops records below a verbosity
// ceiling that can be changed at runtime via a glog-style verbosity knob.
// The node CLI and config do not set it.
type LevelFilter struct {
	handler slog.Handler
	level   atomic.Int64
}

// NewLevelFilter wraps h, starting at the given minimum level.
func NewLevelFilter(h slog.Handler, level slog.Level) *LevelFilter {
	f := &LevelFilter{handler: h}
	f.level.Store(int64(level))
	return f
}

func (f *LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return int64(level) >= f.level.Load()
}

func (f *LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if !f.Enabled(ctx, r.Level) {
		return nil
	}
	return f.handler.Handle(ctx, r)
}

func (f *LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	nf := &LevelFilter{handler: f.handler.WithAttrs(attrs)}
	nf.level.Store(f.level.Load())
	return nf
}

func (f *LevelFilter) WithGroup(name string) slog.Handler {
	nf := &LevelFilter{handler: f.handler.WithGroup(name)}
	nf.level.Store(f.level.Load())
	return nf
}

// SetLevel changes the verbosity ceiling without rebuilding the handler.
func (f *LevelFilter) SetLevel(level slog.Level) {
	f.level.Store(int64(level))
}
