// Package webhook exposes the HTTP endpoint the Bot API pushes updates to.
// The endpoint acknowledges every request it can attribute to this service;
// failing an update with a non-2xx status would only make the API redeliver
// it.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tgwire/tgwire/core/logger"
	"github.com/tgwire/tgwire/core/telegram"
	"github.com/tgwire/tgwire/core/telegram/types"
)

const maxUpdateBody = 1 << 20

// Options configures the webhook server.
type Options struct {
	Listen     string // bind address, default 0.0.0.0
	Port       int    // bind port, default 8080
	HookPrefix string // path segment before /hook/:bot_uid, may be empty
	Registry   *telegram.Registry
}

// Server routes webhook deliveries to registered bots.
type Server struct {
	engine   *gin.Engine
	registry *telegram.Registry
	addr     string
}

// New builds the webhook server and its route table.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("webhook: registry is required")
	}
	listen := opts.Listen
	if listen == "" {
		listen = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:   engine,
		registry: opts.Registry,
		addr:     fmt.Sprintf("%s:%d", listen, port),
	}

	engine.GET("/health", s.health)

	hookPath := "/hook/:bot_uid"
	if prefix := strings.Trim(opts.HookPrefix, "/"); prefix != "" {
		hookPath = "/" + prefix + hookPath
	}
	engine.POST(hookPath, s.handleUpdate)

	return s, nil
}

// Handler exposes the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUpdate processes one webhook delivery. Unknown bots and malformed
// payloads are logged and acknowledged; only handler errors that are not
// command aborts reach the error log, and even those acknowledge.
func (s *Server) handleUpdate(c *gin.Context) {
	started := time.Now()
	rid := uuid.NewString()
	ctx := logger.WithRID(c.Request.Context(), rid)
	uid := c.Param("bot_uid")

	bot, err := s.registry.Dispense(uid)
	if err != nil {
		var notRegistered *telegram.BotNotRegisteredError
		if errors.As(err, &notRegistered) {
			logger.Warn(ctx, logger.HOOK, "unknown_bot",
				slog.String("rid", rid),
				slog.String("bot_uid", uid))
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		logger.Error(ctx, logger.HOOK, "dispense_failed",
			slog.String("rid", rid),
			slog.String("bot_uid", uid),
			slog.String("err", err.Error()))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpdateBody))
	if err != nil {
		logger.Warn(ctx, logger.HOOK, "body_read_failed",
			slog.String("rid", rid),
			slog.String("bot_uid", uid),
			slog.String("err", err.Error()))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	update, err := types.ParseUpdate(body)
	if err != nil {
		logger.Warn(ctx, logger.HOOK, "update_rejected",
			slog.String("rid", rid),
			slog.String("bot_uid", uid),
			slog.String("err", err.Error()))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx = logger.WithUpdateMeta(ctx, update.UpdateID, senderID(update), chatID(update))
	if err := bot.ProcessUpdate(ctx, update); err != nil {
		if errors.Is(err, telegram.ErrUnsupportedUpdate) {
			logger.Warn(ctx, logger.HOOK, "update_unsupported",
				slog.String("rid", rid),
				slog.String("bot_uid", uid),
				slog.Int64("update_id", update.UpdateID))
		} else {
			logger.Error(ctx, logger.HOOK, "update_failed",
				slog.String("rid", rid),
				slog.String("bot_uid", uid),
				slog.Int64("update_id", update.UpdateID),
				slog.Int64("duration_ms", logger.RoundMS(time.Since(started))),
				slog.String("err", err.Error()))
		}
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	logger.Debug(ctx, logger.HOOK, "update_delivered",
		slog.String("rid", rid),
		slog.String("bot_uid", uid),
		slog.Int64("update_id", update.UpdateID),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(started))))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func senderID(u *types.Update) int64 {
	switch {
	case u.Message != nil && u.Message.Sender() != nil:
		return u.Message.Sender().ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	default:
		return 0
	}
}

func chatID(u *types.Update) int64 {
	switch {
	case u.Message != nil && u.Message.Chat != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil:
		return u.CallbackQuery.Message.Chat.ID
	default:
		return 0
	}
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, logger.HOOK, "server_started",
			slog.String("endpoint", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info(ctx, logger.HOOK, "server_stopped",
			slog.String("endpoint", s.addr))
		return <-errCh
	case err := <-errCh:
		return err
	}
}
