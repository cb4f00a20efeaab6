package tlog

import (
	"context"
	"helixclips/pkg/util"
	"log/slog"
)

// contextHandler copies well-known context values onto every record.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := util.RequestID(ctx); id != "" {
		r.AddAttrs(slog.String(util.RequestIDContextKey.String(), id))
	}
	if workerID, ok := ctx.Value(util.WorkerIDContextKey).(int); ok {
		r.AddAttrs(slog.Int(util.WorkerIDContextKey.String(), workerID))
	}

	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{h.Handler.WithGroup(name)}
}
