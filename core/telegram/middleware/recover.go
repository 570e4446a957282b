// Package middleware provides reusable handler wrappers for bots: panic
// containment, per-update logging, rate limiting and admin gating.
package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/tgwire/tgwire/core/logger"
	"github.com/tgwire/tgwire/core/telegram"
)

// Recover catches panics in downstream handlers so one broken update cannot
// take the process down.
func Recover(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(c *telegram.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Ctx(), logger.TG, "panic_recovered",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())))
			}
		}()
		return next(c)
	}
}
