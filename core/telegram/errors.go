package telegram

import (
	"errors"
	"fmt"

	"github.com/tgwire/tgwire/core/telegram/markup"
)

var (
	// ErrEmptyToken rejects bot construction and registration without a token.
	ErrEmptyToken = errors.New("telegram: empty bot token")
	// ErrUnsupportedUpdate marks envelopes carrying no recognized payload.
	ErrUnsupportedUpdate = errors.New("telegram: unsupported update payload")
	// ErrSessionNotBound is returned by Context.Session outside chat-scoped
	// updates.
	ErrSessionNotBound = errors.New("telegram: session not bound for this update")
	// ErrChatNotSet is returned by chat-dependent context operations when the
	// update carries no chat.
	ErrChatNotSet = errors.New("telegram: update carries no chat")
)

// APIError reports a Bot API call the server answered with ok=false or a
// non-success status.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s %s: http %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// CommandError aborts the active command with a message for the user. The
// dispatcher converts it into exactly one outbound sendMessage instead of
// propagating it; every other error crosses the dispatch boundary untouched.
type CommandError struct {
	Text   string
	Markup markup.Markup
}

func (e *CommandError) Error() string { return e.Text }

// Abort builds a CommandError with a plain text reply.
func Abort(text string) *CommandError {
	return &CommandError{Text: text}
}

// AbortWithMarkup builds a CommandError whose reply carries a keyboard.
func AbortWithMarkup(text string, m markup.Markup) *CommandError {
	return &CommandError{Text: text, Markup: m}
}

// BotNotFoundError reports a webhook management call the API answered with
// 404, which means the token does not belong to any bot.
type BotNotFoundError struct {
	Token string
}

func (e *BotNotFoundError) Error() string {
	return fmt.Sprintf("telegram: no bot behind token %s", maskToken(e.Token))
}

// BotNotRegisteredError reports a registry lookup for an unknown bot uid.
type BotNotRegisteredError struct {
	UID string
}

func (e *BotNotRegisteredError) Error() string {
	return fmt.Sprintf("telegram: bot %q is not registered", e.UID)
}

// BotAlreadyRegisteredError reports a duplicate registration of the same uid.
type BotAlreadyRegisteredError struct {
	UID string
}

func (e *BotAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("telegram: bot %q is already registered", e.UID)
}

// ChatNotFoundError reports a chat the API cannot resolve or the bot was
// removed from.
type ChatNotFoundError struct {
	ChatID string
}

func (e *ChatNotFoundError) Error() string {
	return fmt.Sprintf("telegram: chat %q not found", e.ChatID)
}

// FileNotFoundError reports a file identifier the API refuses to resolve.
type FileNotFoundError struct {
	FileID string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("telegram: file %q not found", e.FileID)
}

// maskToken keeps only a short prefix so tokens never reach logs whole.
func maskToken(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "***"
}
