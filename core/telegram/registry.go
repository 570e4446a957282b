package telegram

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"

	"github.com/tgwire/tgwire/core/logger"
)

// BotUID derives the stable registry identifier for a token deployed under
// a server name. The same pair always yields the same uid, so restarts and
// replicas agree on webhook paths.
func BotUID(serverName, token string) string {
	sum := md5.Sum([]byte(serverName + token))
	return hex.EncodeToString(sum[:])
}

// Registry tracks the bots served by this process, keyed by uid. It is safe
// for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	bots map[string]*Bot
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{bots: make(map[string]*Bot)}
}

// Register adds a bot under its uid. Registering an occupied uid fails with
// BotAlreadyRegisteredError.
func (r *Registry) Register(b *Bot) error {
	if b.token == "" {
		return ErrEmptyToken
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.bots[b.uid]; dup {
		return &BotAlreadyRegisteredError{UID: b.uid}
	}
	r.bots[b.uid] = b
	logger.Info(context.Background(), logger.TG, "bot_registered",
		slog.String("bot_uid", b.uid))
	return nil
}

// Dispense returns the bot registered under uid, or BotNotRegisteredError.
func (r *Registry) Dispense(uid string) (*Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bots[uid]
	if !ok {
		return nil, &BotNotRegisteredError{UID: uid}
	}
	return b, nil
}

// Unregister removes the bot under uid. Removing an unknown uid reports
// BotNotRegisteredError.
func (r *Registry) Unregister(uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bots[uid]; !ok {
		return &BotNotRegisteredError{UID: uid}
	}
	delete(r.bots, uid)
	logger.Info(context.Background(), logger.TG, "bot_unregistered",
		slog.String("bot_uid", uid))
	return nil
}

// UIDs returns the uids of all registered bots.
func (r *Registry) UIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uids := make([]string, 0, len(r.bots))
	for uid := range r.bots {
		uids = append(uids, uid)
	}
	return uids
}

// WebhookURL composes the public webhook endpoint for a bot uid.
func WebhookURL(publicURL, hookPrefix, uid string) string {
	base := strings.TrimRight(publicURL, "/")
	prefix := strings.Trim(hookPrefix, "/")
	if prefix != "" {
		return base + "/" + prefix + "/hook/" + uid
	}
	return base + "/hook/" + uid
}

// AutoSetWebhook points the bot's webhook at its registry endpoint, skipping
// the API call when the registration already matches.
func (r *Registry) AutoSetWebhook(ctx context.Context, b *Bot, publicURL, hookPrefix string) error {
	want := WebhookURL(publicURL, hookPrefix, b.uid)

	info, err := b.client.GetWebhookInfo(ctx)
	if err != nil {
		return err
	}
	if info.URL == want {
		logger.Debug(ctx, logger.TG, "webhook_unchanged",
			slog.String("bot_uid", b.uid),
			slog.String("url", want))
		return nil
	}
	if err := b.client.SetWebhook(ctx, want, 0); err != nil {
		return err
	}
	logger.Info(ctx, logger.TG, "webhook_set",
		slog.String("bot_uid", b.uid),
		slog.String("url", want))
	return nil
}
