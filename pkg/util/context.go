package util

import "context"

type ContextKey string

func (c ContextKey) String() string {
	return "helixclips_" + string(c)
}

var RequestIDContextKey ContextKey = "request_id"
var WorkerIDContextKey ContextKey = "worker_id"

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
