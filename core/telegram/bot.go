package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tgwire/tgwire/core/logger"
	"github.com/tgwire/tgwire/core/telegram/state"
	"github.com/tgwire/tgwire/core/telegram/types"
)

// HandlerFunc processes one update through its request-scoped Context.
type HandlerFunc func(*Context) error

// Middleware wraps a handler, running before and after it.
type Middleware func(HandlerFunc) HandlerFunc

// Options configures a Bot. Token, Client and Store are required.
type Options struct {
	Token  string
	UID    string
	Client *Client
	Store  state.Store

	// OnUnknownCommand runs when a command resolves to no registered
	// handler. Nil means the user gets a reply naming the attempted
	// command.
	OnUnknownCommand HandlerFunc

	// OnPlainMessage runs for chat messages that start no command and
	// continue none. Nil means the message is silently ignored.
	OnPlainMessage HandlerFunc

	// Optional hooks for the non-command update kinds. A nil hook ignores
	// its updates.
	OnEditedMessage      HandlerFunc
	OnChannelPost        HandlerFunc
	OnEditedChannelPost  HandlerFunc
	OnInlineQuery        HandlerFunc
	OnChosenInlineResult HandlerFunc
	OnShippingQuery      HandlerFunc
	OnPreCheckoutQuery   HandlerFunc
	OnCallback           HandlerFunc
}

// Bot routes updates to command handlers and keeps multi-step conversations
// moving through the session store. Register handlers before serving; the
// handler map is read-only afterwards.
type Bot struct {
	token string
	uid   string

	client *Client
	store  state.Store

	commands   map[string]HandlerFunc
	aliases    map[string]string
	middleware []Middleware

	opts Options
}

// NewBot builds a bot from options.
func NewBot(opts Options) (*Bot, error) {
	if opts.Token == "" {
		return nil, ErrEmptyToken
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("telegram: bot requires a client")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("telegram: bot requires a session store")
	}
	uid := opts.UID
	if uid == "" {
		uid = BotUID("", opts.Token)
	}
	return &Bot{
		token:    opts.Token,
		uid:      uid,
		client:   opts.Client,
		store:    opts.Store,
		commands: make(map[string]HandlerFunc),
		aliases:  make(map[string]string),
		opts:     opts,
	}, nil
}

// UID returns the bot's registry identifier.
func (b *Bot) UID() string { return b.uid }

// Client returns the bot's API client.
func (b *Bot) Client() *Client { return b.client }

// Handle registers a command handler under its name, without the leading
// slash. Registering the same name twice is an error.
func (b *Bot) Handle(name string, h HandlerFunc) error {
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return fmt.Errorf("telegram: empty command name")
	}
	if h == nil {
		return fmt.Errorf("telegram: nil handler for command %q", name)
	}
	if _, dup := b.commands[name]; dup {
		return fmt.Errorf("telegram: command %q is already registered", name)
	}
	b.commands[name] = h
	return nil
}

// Alias maps a plain-text trigger onto a registered command, so e.g. a
// keyboard button labeled "Help" can start /help. The command must already
// be registered.
func (b *Bot) Alias(text, command string) error {
	command = strings.TrimPrefix(command, "/")
	if _, ok := b.commands[command]; !ok {
		return fmt.Errorf("telegram: alias target %q is not registered", command)
	}
	if prev, dup := b.aliases[text]; dup {
		return fmt.Errorf("telegram: alias %q already points at %q", text, prev)
	}
	b.aliases[text] = command
	return nil
}

// Use appends middleware to the chain. Middleware wraps every command and
// hook invocation in registration order.
func (b *Bot) Use(mw ...Middleware) {
	b.middleware = append(b.middleware, mw...)
}

func (b *Bot) wrap(h HandlerFunc) HandlerFunc {
	for i := len(b.middleware) - 1; i >= 0; i-- {
		h = b.middleware[i](h)
	}
	return h
}

// parseCommand extracts the command name and trailing arguments from message
// text, or ok=false when the text is not a command.
func parseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	rest := text[1:]
	if rest == "" {
		return "", "", false
	}
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		return rest[:i], strings.TrimSpace(rest[i+1:]), true
	}
	return rest, "", true
}

// ProcessUpdate routes one parsed update. CommandError never escapes; every
// other handler error does.
func (b *Bot) ProcessUpdate(ctx context.Context, u *types.Update) error {
	kind := u.Kind()
	if kind == types.KindUnknown {
		return ErrUnsupportedUpdate
	}

	switch kind {
	case types.KindMessage:
		return b.processMessage(ctx, u)
	case types.KindCallbackQuery:
		return b.processCallback(ctx, u)
	case types.KindEditedMessage:
		return b.runHook(ctx, u, b.opts.OnEditedMessage, u.EditedMessage.Chat, u.EditedMessage.Sender(), u.EditedMessage.MessageID)
	case types.KindChannelPost:
		return b.runHook(ctx, u, b.opts.OnChannelPost, u.ChannelPost.Chat, u.ChannelPost.Sender(), u.ChannelPost.MessageID)
	case types.KindEditedChannelPost:
		return b.runHook(ctx, u, b.opts.OnEditedChannelPost, u.EditedChannelPost.Chat, u.EditedChannelPost.Sender(), u.EditedChannelPost.MessageID)
	case types.KindInlineQuery:
		return b.runHook(ctx, u, b.opts.OnInlineQuery, nil, u.InlineQuery.From, 0)
	case types.KindChosenInlineResult:
		return b.runHook(ctx, u, b.opts.OnChosenInlineResult, nil, u.ChosenInlineResult.From, 0)
	case types.KindShippingQuery:
		return b.runHook(ctx, u, b.opts.OnShippingQuery, nil, u.ShippingQuery.From, 0)
	case types.KindPreCheckoutQuery:
		return b.runHook(ctx, u, b.opts.OnPreCheckoutQuery, nil, u.PreCheckoutQuery.From, 0)
	default:
		return ErrUnsupportedUpdate
	}
}

// newContext assembles the request-scoped context, binding a session only
// when the update belongs to a chat.
func (b *Bot) newContext(ctx context.Context, u *types.Update, chat *types.Chat, sender *types.User, messageID int64) *Context {
	c := &Context{
		ctx:       ctx,
		bot:       b,
		update:    u,
		sender:    sender,
		chat:      chat,
		messageID: messageID,
	}
	if chat != nil {
		c.session = state.Bind(b.store, b.uid, chat.ID)
	}
	return c
}

func (b *Bot) runHook(ctx context.Context, u *types.Update, h HandlerFunc, chat *types.Chat, sender *types.User, messageID int64) error {
	if h == nil {
		logger.Debug(ctx, logger.TG, "hook_skipped",
			slog.String("bot_uid", b.uid),
			slog.String("event_kind", u.Kind().String()))
		return nil
	}
	c := b.newContext(ctx, u, chat, sender, messageID)
	return b.runHandler(c, "", h)
}

// processMessage classifies an inbound chat message: a slash command starts
// or restarts a command (the candidate name resolving through the alias
// table), an alias text starts its target, otherwise the active command
// continues at its recorded step.
func (b *Bot) processMessage(ctx context.Context, u *types.Update) error {
	msg := u.Message
	c := b.newContext(ctx, u, msg.Chat, msg.Sender(), msg.MessageID)

	if name, args, ok := parseCommand(msg.Text); ok {
		if target, aliased := b.aliases[name]; aliased {
			name = target
		}
		c.args = args
		return b.invokeCommand(c, name, true)
	}
	if target, ok := b.aliases[msg.Text]; ok {
		return b.invokeCommand(c, target, true)
	}

	active, err := c.session.CommandName(ctx)
	if err != nil {
		return err
	}
	if active != "" {
		return b.invokeCommand(c, active, false)
	}

	if b.opts.OnPlainMessage != nil {
		return b.runHandler(c, "", b.opts.OnPlainMessage)
	}
	logger.Debug(ctx, logger.TG, "message_ignored",
		slog.String("bot_uid", b.uid),
		slog.Int64("chat_id", msg.Chat.ID))
	return nil
}

// processCallback continues the active command with the callback data as
// input. Callback queries never start commands; with no command in flight
// the OnCallback hook gets the update instead.
func (b *Bot) processCallback(ctx context.Context, u *types.Update) error {
	cb := u.CallbackQuery
	var chat *types.Chat
	var messageID int64
	if cb.Message != nil {
		chat = cb.Message.Chat
		messageID = cb.Message.MessageID
	}
	c := b.newContext(ctx, u, chat, cb.From, messageID)

	if c.session != nil {
		active, err := c.session.CommandName(ctx)
		if err != nil {
			return err
		}
		if active != "" {
			return b.invokeCommand(c, active, false)
		}
	}

	if b.opts.OnCallback != nil {
		return b.runHandler(c, "", b.opts.OnCallback)
	}
	logger.Debug(ctx, logger.TG, "callback_ignored",
		slog.String("bot_uid", b.uid),
		slog.String("key", cb.ID))
	return nil
}

// invokeCommand runs a registered command. Starting a command resets its
// step to zero, replacing whatever command was active before; continuing
// leaves the recorded step untouched.
func (b *Bot) invokeCommand(c *Context, name string, start bool) error {
	h, ok := b.commands[name]
	if !ok {
		if b.opts.OnUnknownCommand != nil {
			return b.runHandler(c, name, b.opts.OnUnknownCommand)
		}
		logger.Warn(c.ctx, logger.TG, "unknown_command",
			slog.String("bot_uid", b.uid),
			slog.String("command", name))
		_, err := c.Send(fmt.Sprintf("Unknown command /%s", name), nil)
		return err
	}

	session, err := c.Session()
	if err != nil {
		return err
	}
	if start {
		if err := session.StartCommand(c.ctx, name); err != nil {
			return err
		}
	}
	return b.runHandler(c, name, h)
}

// runHandler pushes the handler through the middleware chain and absorbs
// CommandError into a single reply.
func (b *Bot) runHandler(c *Context, command string, h HandlerFunc) error {
	err := b.wrap(h)(c)
	if err == nil {
		return nil
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return err
	}

	// The command and its step stay recorded so the user can retry the
	// failed step; handlers that want to abort the flow call
	// FinishCommand themselves.
	logger.Info(c.ctx, logger.TG, "command_aborted",
		slog.String("bot_uid", b.uid),
		slog.String("command", command),
		slog.String("err", cmdErr.Text))
	if _, serr := c.Send(cmdErr.Text, &SendOptions{Markup: cmdErr.Markup}); serr != nil {
		return serr
	}
	return nil
}
