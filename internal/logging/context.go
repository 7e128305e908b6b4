package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCommand is the standardized structured logging key for wire command names.
	FieldCommand = "cmd"
	// FieldRequestID is the standardized structured logging key for correlation ids.
	FieldRequestID = "request_id"
	// FieldStatus is the standardized structured logging key for envelope statuses.
	FieldStatus = "status"
	// FieldWorkerPID is the standardized structured logging key for the engine process id.
	FieldWorkerPID = "worker_pid"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey int

const (
	requestIDContextKey contextKey = iota
	commandContextKey
)

// WithRequestIDContext stores a correlation id on the context for log tagging.
func WithRequestIDContext(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext extracts a correlation id stored by WithRequestIDContext.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok && id != ""
}

// WithCommandContext stores the active wire command name on the context.
func WithCommandContext(ctx context.Context, cmd string) context.Context {
	if cmd == "" {
		return ctx
	}
	return context.WithValue(ctx, commandContextKey, cmd)
}

// CommandFromContext extracts a command name stored by WithCommandContext.
func CommandFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	cmd, ok := ctx.Value(commandContextKey).(string)
	return cmd, ok && cmd != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if cmd, ok := CommandFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCommand, cmd))
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
