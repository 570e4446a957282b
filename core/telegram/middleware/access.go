package middleware

import (
	"github.com/tgwire/tgwire/core/telegram"
)

// AdminOptions defines how admin-only gating behaves.
type AdminOptions struct {
	AdminID int64
	// OnReject runs for non-admin senders. Nil drops the update silently.
	OnReject telegram.HandlerFunc
}

// AdminOnly lets only the configured admin reach downstream handlers. A zero
// AdminID disables the gate.
func AdminOnly(opts AdminOptions) telegram.Middleware {
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(c *telegram.Context) error {
			sender := c.Sender()
			if opts.AdminID != 0 && (sender == nil || sender.ID != opts.AdminID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
