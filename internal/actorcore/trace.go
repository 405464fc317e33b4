package actorcore

import "context"

type traceKey struct{}

// TraceFromContext returns the ambient trace-id captured in ctx, or "" if
// none was ever installed.
func TraceFromContext(ctx context.Context) string {
	v, _ := ctx.Value(traceKey{}).(string)
	return v
}

// WithTrace installs traceID as the ambient trace-id for the returned
// context. The pump calls this around every handler invocation so a
// handler that reads the ambient trace-id sees the envelope's trace-id for
// the message it is currently processing; restoring the previous context
// on return is simply a matter of the caller keeping its own ctx around
// (see Host.runOne), since context.Context values are immutable and
// layered rather than mutated in place.
func WithTrace(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}
