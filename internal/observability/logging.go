// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID keys a request-scoped correlation ID in the context.
const CorrelationID LogContextKey = "correlation_id"

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableStoreLogging bool
	EnableWSLogging    bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableStoreLogging: true,
	EnableWSLogging:    true,
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id := ctx.Value(CorrelationID); id != nil {
		return id.(string)
	}
	return ""
}

// StoreLogger provides structured logging for document store operations.
type StoreLogger struct {
	driver string
	logger *Logger
}

// NewStoreLogger creates a new StoreLogger for the given driver.
func NewStoreLogger(driver string) *StoreLogger {
	return &StoreLogger{
		driver: driver,
		logger: GlobalLogger,
	}
}

// LogWrite logs a document write.
func (l *StoreLogger) LogWrite(ctx context.Context, path string, merge bool) {
	if !Config.EnableStoreLogging {
		return
	}
	l.logger.DebugContext(ctx, "store write",
		slog.String("driver", l.driver),
		slog.String("path", path),
		slog.Bool("merge", merge),
	)
}

// LogDelete logs a document delete.
func (l *StoreLogger) LogDelete(ctx context.Context, path string) {
	if !Config.EnableStoreLogging {
		return
	}
	l.logger.DebugContext(ctx, "store delete",
		slog.String("driver", l.driver),
		slog.String("path", path),
	)
}

// LogSubscribe logs a query subscription being opened or closed.
func (l *StoreLogger) LogSubscribe(ctx context.Context, collection, event string) {
	if !Config.EnableStoreLogging {
		return
	}
	l.logger.InfoContext(ctx, "store subscription",
		slog.String("driver", l.driver),
		slog.String("collection", collection),
		slog.String("event", event),
	)
}

// LogError logs a store operation error.
func (l *StoreLogger) LogError(ctx context.Context, err error, operation string) {
	if !Config.EnableStoreLogging {
		return
	}
	l.logger.ErrorContext(ctx, "store error",
		slog.String("driver", l.driver),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
	logger  *Logger
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{
		hubName: hubName,
		logger:  GlobalLogger,
	}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, uid string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("uid", uid),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, uid string, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("uid", uid),
		slog.String("reason", reason),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, uid string, err error, eventType string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("uid", uid),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogMessage logs an incoming WebSocket message.
func (l *WSLogger) LogMessage(ctx context.Context, uid string, messageType string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket message",
		slog.String("hub", l.hubName),
		slog.String("uid", uid),
		slog.String("message_type", messageType),
	)
}
