package telegram

import (
	"context"

	"github.com/tgwire/tgwire/core/telegram/state"
	"github.com/tgwire/tgwire/core/telegram/types"
)

// Context carries everything one handler invocation needs: the parsed
// update, the sender and chat when present, and the bound session. A fresh
// Context is built per update and never shared across invocations.
type Context struct {
	ctx       context.Context
	bot       *Bot
	update    *types.Update
	sender    *types.User
	chat      *types.Chat
	messageID int64
	session   *state.Session
	args      string
}

// Ctx returns the request's context.Context for deadline and cancellation
// propagation.
func (c *Context) Ctx() context.Context { return c.ctx }

// Bot returns the bot processing this update.
func (c *Context) Bot() *Bot { return c.bot }

// Client returns the API client of the processing bot.
func (c *Context) Client() *Client { return c.bot.client }

// Update returns the full parsed update envelope.
func (c *Context) Update() *types.Update { return c.update }

// Sender returns the user behind the update, or nil for anonymous payloads
// such as channel posts.
func (c *Context) Sender() *types.User { return c.sender }

// Chat returns the chat the update belongs to. Updates without a chat, such
// as inline queries, report ErrChatNotSet.
func (c *Context) Chat() (*types.Chat, error) {
	if c.chat == nil {
		return nil, ErrChatNotSet
	}
	return c.chat, nil
}

// MessageID returns the id of the inbound message, or of the last message
// this context sent, whichever is newer.
func (c *Context) MessageID() int64 { return c.messageID }

// Session returns the conversational session. Only chat-scoped updates have
// one; everything else reports ErrSessionNotBound.
func (c *Context) Session() (*state.Session, error) {
	if c.session == nil {
		return nil, ErrSessionNotBound
	}
	return c.session, nil
}

// Text returns the inbound message text, or the callback data when the
// update is a callback query.
func (c *Context) Text() string {
	switch {
	case c.update.CallbackQuery != nil:
		return c.update.CallbackQuery.Data
	case c.update.Message != nil:
		return c.update.Message.Text
	case c.update.EditedMessage != nil:
		return c.update.EditedMessage.Text
	case c.update.ChannelPost != nil:
		return c.update.ChannelPost.Text
	case c.update.EditedChannelPost != nil:
		return c.update.EditedChannelPost.Text
	default:
		return ""
	}
}

// Args returns everything after the command name in the triggering message,
// or "" when the command was resumed rather than started.
func (c *Context) Args() string { return c.args }

// Send posts a text message to the update's chat and records the sent
// message id on the context.
func (c *Context) Send(text string, opts *SendOptions) (*types.Message, error) {
	chat, err := c.Chat()
	if err != nil {
		return nil, err
	}
	msg, err := c.bot.client.SendMessage(c.ctx, chat.ID, text, opts)
	if err != nil {
		return nil, err
	}
	c.messageID = msg.MessageID
	return msg, nil
}

// Edit rewrites the message this context last touched.
func (c *Context) Edit(text string, opts *SendOptions) (*types.Message, error) {
	chat, err := c.Chat()
	if err != nil {
		return nil, err
	}
	return c.bot.client.EditMessageText(c.ctx, chat.ID, c.messageID, text, opts)
}

// Delete removes the message this context last touched.
func (c *Context) Delete() error {
	chat, err := c.Chat()
	if err != nil {
		return err
	}
	return c.bot.client.DeleteMessage(c.ctx, chat.ID, c.messageID)
}

// AnswerCallback acknowledges the pending callback query, if any.
func (c *Context) AnswerCallback(text string, showAlert bool) error {
	if c.update.CallbackQuery == nil {
		return nil
	}
	return c.bot.client.AnswerCallbackQuery(c.ctx, c.update.CallbackQuery.ID, text, showAlert)
}
