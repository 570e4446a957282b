package middleware

import (
	"log/slog"
	"time"

	"github.com/tgwire/tgwire/core/logger"
	"github.com/tgwire/tgwire/core/telegram"
)

// Logging emits one receipt line per update with sender and chat metadata,
// and one completion line with the handler's duration and status.
func Logging(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(c *telegram.Context) error {
		started := time.Now()
		u := c.Update()

		attrs := []slog.Attr{
			slog.Int64("update_id", u.UpdateID),
			slog.String("event_kind", u.Kind().String()),
		}
		if sender := c.Sender(); sender != nil {
			attrs = append(attrs, slog.Int64("user_id", sender.ID))
			if sender.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(sender.Username, 64)))
			}
		}
		if chat, err := c.Chat(); err == nil {
			attrs = append(attrs,
				slog.Int64("chat_id", chat.ID),
				slog.String("chat_type", chat.Type))
		}
		logger.Debug(c.Ctx(), logger.TG, "update_received", attrs...)

		err := next(c)

		done := []slog.Attr{
			slog.Int64("update_id", u.UpdateID),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(started))),
		}
		if err != nil {
			done = append(done, slog.String("status", "error"), slog.String("err", err.Error()))
			logger.Warn(c.Ctx(), logger.TG, "update_processed", done...)
			return err
		}
		done = append(done, slog.String("status", "ok"))
		logger.Debug(c.Ctx(), logger.TG, "update_processed", done...)
		return nil
	}
}
