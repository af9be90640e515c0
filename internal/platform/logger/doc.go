// Package logger provides structured logging functionality for the application.
//
// It uses the standard library log/slog package to emit JSON logs with a
// configurable level, and carries request-scoped loggers through
// context.Context so handlers, services and stores log with the same
// trace_id and user_id attributes.
package logger
