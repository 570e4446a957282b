package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID      contextKey = "rid"
	ctxUpdateID contextKey = "update_id"
	ctxUserID   contextKey = "user_id"
	ctxChatID   contextKey = "chat_id"
)

// Background returns a fresh context for request-independent logging.
func Background() context.Context {
	return context.Background()
}

// WithRID attaches a request correlation id to the context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts the rid from context if present.
func RIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ctxRID).(string); ok {
		return s
	}
	return ""
}

// WithUpdateMeta attaches common update identifiers to the context.
func WithUpdateMeta(ctx context.Context, updateID int64, userID, chatID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUpdateID, updateID)
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxChatID, chatID)
	return ctx
}

func addContextFields(ctx context.Context, fields map[string]any) {
	if ctx == nil {
		return
	}
	if rid, ok := ctx.Value(ctxRID).(string); ok && rid != "" {
		if _, seen := fields["rid"]; !seen {
			fields["rid"] = rid
		}
	}
	if id, ok := ctx.Value(ctxUpdateID).(int64); ok && id != 0 {
		if _, seen := fields["update_id"]; !seen {
			fields["update_id"] = id
		}
	}
	if id, ok := ctx.Value(ctxUserID).(int64); ok && id != 0 {
		if _, seen := fields["user_id"]; !seen {
			fields["user_id"] = id
		}
	}
	if id, ok := ctx.Value(ctxChatID).(int64); ok && id != 0 {
		if _, seen := fields["chat_id"]; !seen {
			fields["chat_id"] = id
		}
	}
}

// BuildRID composes a correlation id from update, chat and user identifiers.
func BuildRID(updateID int64, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// LogEvent emits a structured event through the provided logger.
func LogEvent(ctx context.Context, log *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = L
	}
	log.LogAttrs(ctx, level, event, attrs...)
}

// Debug logs a debug event on the given component logger.
func Debug(ctx context.Context, log *slog.Logger, event string, attrs ...slog.Attr) {
	LogEvent(ctx, log, slog.LevelDebug, event, attrs...)
}

// Info logs an info event on the given component logger.
func Info(ctx context.Context, log *slog.Logger, event string, attrs ...slog.Attr) {
	LogEvent(ctx, log, slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event on the given component logger.
func Warn(ctx context.Context, log *slog.Logger, event string, attrs ...slog.Attr) {
	LogEvent(ctx, log, slog.LevelWarn, event, attrs...)
}

// Error logs an error event on the given component logger.
func Error(ctx context.Context, log *slog.Logger, event string, attrs ...slog.Attr) {
	LogEvent(ctx, log, slog.LevelError, event, attrs...)
}

// RoundMS reports a duration as whole milliseconds for compact log output.
func RoundMS(d time.Duration) int64 {
	return d.Milliseconds()
}

// SanitizeLimit trims user-supplied text to a maximum length before logging.
func SanitizeLimit(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
