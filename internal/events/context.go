package events

import (
	"context"
	"os"
	"sync"
)

type contextKey int

const (
	loggerKey contextKey = iota
	documentKey
	sessionKey
)

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithDocument tags the context logger with the document being processed.
func WithDocument(ctx context.Context, name string) context.Context {
	logger := FromContext(ctx).WithField("document", name)
	ctx = context.WithValue(ctx, documentKey, name)
	return WithLogger(ctx, logger)
}

// WithSession tags the context logger with a boot session ID.
func WithSession(ctx context.Context, id string) context.Context {
	logger := FromContext(ctx).WithField("session_id", id)
	ctx = context.WithValue(ctx, sessionKey, id)
	return WithLogger(ctx, logger)
}

// GetDocument retrieves the document name from context.
func GetDocument(ctx context.Context) string {
	if name, ok := ctx.Value(documentKey).(string); ok {
		return name
	}
	return ""
}

// GetSession retrieves the session ID from context.
func GetSession(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey).(string); ok {
		return id
	}
	return ""
}

var defaultLogger = &Logger{
	mu:        &sync.Mutex{},
	level:     InfoLevel,
	format:    "text",
	output:    os.Stderr,
	fields:    make(map[string]interface{}),
	timestamp: true,
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
