package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tgwire/tgwire/core/logger"
	"github.com/tgwire/tgwire/core/telegram"
	"github.com/tgwire/tgwire/core/telegram/types"
)

// RateLimitOptions configures the per-user rate limiter.
type RateLimitOptions struct {
	// Interval is the minimum gap between updates from one user. Zero
	// disables the limiter.
	Interval time.Duration
	// Exclude lists update kinds the limiter lets through untouched.
	Exclude map[types.UpdateKind]struct{}
	// OnLimited runs instead of the handler when a user is throttled. Its
	// error is swallowed.
	OnLimited telegram.HandlerFunc
}

// RateLimit enforces a minimum interval between updates from the same user.
// Throttled updates are dropped without reaching the handler.
func RateLimit(opts RateLimitOptions) telegram.Middleware {
	var (
		lastSeen   = make(map[int64]time.Time)
		lastSeenMu sync.Mutex
	)
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(c *telegram.Context) error {
			sender := c.Sender()
			if sender == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[c.Update().Kind()]; skip {
				return next(c)
			}

			now := time.Now()
			lastSeenMu.Lock()
			last, seen := lastSeen[sender.ID]
			if seen && now.Sub(last) < opts.Interval {
				lastSeenMu.Unlock()
				attrs := []slog.Attr{slog.Int64("user_id", sender.ID)}
				if chat, err := c.Chat(); err == nil {
					attrs = append(attrs, slog.Int64("chat_id", chat.ID))
				}
				logger.Warn(c.Ctx(), logger.TG, "rate_limited", attrs...)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			lastSeen[sender.ID] = now
			lastSeenMu.Unlock()
			return next(c)
		}
	}
}
