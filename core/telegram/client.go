package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tgwire/tgwire/core/logger"
	"github.com/tgwire/tgwire/core/telegram/markup"
	"github.com/tgwire/tgwire/core/telegram/types"
)

// DefaultAPIURL is the production Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// ParseMode selects how the API interprets formatting in outbound text.
type ParseMode string

const (
	ParseModeHTML     ParseMode = "HTML"
	ParseModeMarkdown ParseMode = "Markdown"
)

// SendOptions carries the optional knobs of sendMessage and friends. The
// zero value means HTML parse mode and no extras.
type SendOptions struct {
	ParseMode             ParseMode
	DisableWebPagePreview bool
	DisableNotification   bool
	ReplyToMessageID      int64
	Markup                markup.Markup
}

func (o *SendOptions) parseMode() ParseMode {
	if o == nil || o.ParseMode == "" {
		return ParseModeHTML
	}
	return o.ParseMode
}

// Client speaks the Bot API for a single token. It is safe for concurrent
// use.
type Client struct {
	token   string
	baseURL string
	http    *http.Client

	meMu sync.Mutex
	me   *types.User
}

// ClientOptions tunes Client construction. Zero values pick the production
// endpoint and the default retrying HTTP client.
type ClientOptions struct {
	APIURL     string
	HTTPClient *http.Client
}

// NewClient builds an API client for one bot token.
func NewClient(token string, opts ClientOptions) (*Client, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	base := strings.TrimRight(opts.APIURL, "/")
	if base == "" {
		base = DefaultAPIURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = BuildHTTPClient()
	}
	return &Client{token: token, baseURL: base, http: hc}, nil
}

// Token returns the bot token the client was built with.
func (c *Client) Token() string { return c.token }

func (c *Client) endpoint(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// maskedEndpoint is the endpoint with the token hidden, safe for logs and
// error text.
func (c *Client) maskedEndpoint(method string) string {
	return c.baseURL + "/bot" + maskToken(c.token) + "/" + method
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// request performs one form-encoded POST and unwraps the response envelope.
func (c *Client) request(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	started := time.Now()
	body := strings.NewReader(params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		return nil, fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn(ctx, logger.API, "api_request_failed",
			slog.String("endpoint", method),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(started))),
			slog.String("err", err.Error()))
		return nil, fmt.Errorf("telegram: call %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || !env.OK {
		desc := env.Description
		if desc == "" {
			desc = strings.TrimSpace(logger.SanitizeLimit(string(raw), 512))
		}
		logger.Warn(ctx, logger.API, "api_error",
			slog.String("endpoint", method),
			slog.Int("http_code", resp.StatusCode),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(started))),
			slog.String("err", desc))
		return nil, &APIError{
			Method:     method,
			URL:        c.maskedEndpoint(method),
			StatusCode: resp.StatusCode,
			Body:       desc,
		}
	}

	logger.Debug(ctx, logger.API, "api_request",
		slog.String("endpoint", method),
		slog.Int("http_code", resp.StatusCode),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(started))))
	return env.Result, nil
}

func (c *Client) requestInto(ctx context.Context, method string, params url.Values, out any) error {
	raw, err := c.request(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("telegram: decode %s result: %w", method, err)
	}
	return nil
}

// GetMe returns the bot's own account. The first successful result is
// memoized for the lifetime of the client; failures are not, so a timed-out
// first call does not poison later ones.
func (c *Client) GetMe(ctx context.Context) (*types.User, error) {
	c.meMu.Lock()
	defer c.meMu.Unlock()
	if c.me != nil {
		return c.me, nil
	}
	var me types.User
	if err := c.requestInto(ctx, "getMe", url.Values{}, &me); err != nil {
		return nil, err
	}
	c.me = &me
	return c.me, nil
}

func encodeMarkup(params url.Values, m markup.Markup) error {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("telegram: encode reply markup: %w", err)
	}
	params.Set("reply_markup", string(data))
	return nil
}

// SendMessage posts a text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*types.Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)
	params.Set("parse_mode", string(opts.parseMode()))
	if opts != nil {
		if opts.DisableWebPagePreview {
			params.Set("disable_web_page_preview", "true")
		}
		if opts.DisableNotification {
			params.Set("disable_notification", "true")
		}
		if opts.ReplyToMessageID != 0 {
			params.Set("reply_to_message_id", strconv.FormatInt(opts.ReplyToMessageID, 10))
		}
		if err := encodeMarkup(params, opts.Markup); err != nil {
			return nil, err
		}
	}

	var msg types.Message
	if err := c.requestInto(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendPhoto posts a photo referenced by file id or URL.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo, caption string, opts *SendOptions) (*types.Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("photo", photo)
	if caption != "" {
		params.Set("caption", caption)
		params.Set("parse_mode", string(opts.parseMode()))
	}
	if opts != nil {
		if opts.DisableNotification {
			params.Set("disable_notification", "true")
		}
		if opts.ReplyToMessageID != 0 {
			params.Set("reply_to_message_id", strconv.FormatInt(opts.ReplyToMessageID, 10))
		}
		if err := encodeMarkup(params, opts.Markup); err != nil {
			return nil, err
		}
	}

	var msg types.Message
	if err := c.requestInto(ctx, "sendPhoto", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText rewrites the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int64, text string, opts *SendOptions) (*types.Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	params.Set("text", text)
	params.Set("parse_mode", string(opts.parseMode()))
	if opts != nil {
		if opts.DisableWebPagePreview {
			params.Set("disable_web_page_preview", "true")
		}
		if err := encodeMarkup(params, opts.Markup); err != nil {
			return nil, err
		}
	}

	var msg types.Message
	if err := c.requestInto(ctx, "editMessageText", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageCaption rewrites the caption of a media message.
func (c *Client) EditMessageCaption(ctx context.Context, chatID int64, messageID int64, caption string, m markup.Markup) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	params.Set("caption", caption)
	if err := encodeMarkup(params, m); err != nil {
		return err
	}
	return c.requestInto(ctx, "editMessageCaption", params, nil)
}

// EditMessageReplyMarkup replaces the inline keyboard of a message. A nil
// markup clears it.
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int64, m markup.Markup) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	if err := encodeMarkup(params, m); err != nil {
		return err
	}
	return c.requestInto(ctx, "editMessageReplyMarkup", params, nil)
}

// DeleteMessage removes a message the bot is allowed to delete.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int64) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	return c.requestInto(ctx, "deleteMessage", params, nil)
}

// AnswerCallbackQuery acknowledges a callback query, optionally showing a
// notification to the user.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string, showAlert bool) error {
	params := url.Values{}
	params.Set("callback_query_id", queryID)
	if text != "" {
		params.Set("text", text)
	}
	if showAlert {
		params.Set("show_alert", "true")
	}
	return c.requestInto(ctx, "answerCallbackQuery", params, nil)
}

// sanitizeChatRef normalizes a chat reference. Numeric ids pass through;
// anything else is a public username and gets the @ prefix.
func sanitizeChatRef(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "@") {
		return ref
	}
	if _, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return ref
	}
	return "@" + ref
}

// chatNotFound detects the API's phrasing for unresolvable chats, including
// the case where the bot was kicked.
func chatNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	desc := strings.ToLower(apiErr.Body)
	return strings.Contains(desc, "chat not found") || strings.Contains(desc, "bot was kicked")
}

// GetChat resolves a chat by id or public username.
func (c *Client) GetChat(ctx context.Context, chatRef string) (*types.Chat, error) {
	ref := sanitizeChatRef(chatRef)
	params := url.Values{}
	params.Set("chat_id", ref)

	var chat types.Chat
	if err := c.requestInto(ctx, "getChat", params, &chat); err != nil {
		if chatNotFound(err) {
			return nil, &ChatNotFoundError{ChatID: ref}
		}
		return nil, err
	}
	return &chat, nil
}

// GetChatAdministrators lists the administrators of a group or channel.
func (c *Client) GetChatAdministrators(ctx context.Context, chatRef string) ([]types.ChatMember, error) {
	ref := sanitizeChatRef(chatRef)
	params := url.Values{}
	params.Set("chat_id", ref)

	var members []types.ChatMember
	if err := c.requestInto(ctx, "getChatAdministrators", params, &members); err != nil {
		if chatNotFound(err) {
			return nil, &ChatNotFoundError{ChatID: ref}
		}
		return nil, err
	}
	return members, nil
}

// GetChatMember returns one member of a chat.
func (c *Client) GetChatMember(ctx context.Context, chatRef string, userID int64) (*types.ChatMember, error) {
	ref := sanitizeChatRef(chatRef)
	params := url.Values{}
	params.Set("chat_id", ref)
	params.Set("user_id", strconv.FormatInt(userID, 10))

	var member types.ChatMember
	if err := c.requestInto(ctx, "getChatMember", params, &member); err != nil {
		if chatNotFound(err) {
			return nil, &ChatNotFoundError{ChatID: ref}
		}
		return nil, err
	}
	return &member, nil
}

// CanPostMessages reports whether the bot may post to the chat. Any failure
// along the way, the bot not being a member included, reads as false.
func (c *Client) CanPostMessages(ctx context.Context, chatRef string) bool {
	me, err := c.GetMe(ctx)
	if err != nil {
		return false
	}
	chat, err := c.GetChat(ctx, chatRef)
	if err != nil {
		return false
	}
	if chat.Type == types.ChatPrivate {
		return true
	}
	member, err := c.GetChatMember(ctx, chatRef, me.ID)
	if err != nil {
		return false
	}
	switch member.Status {
	case "creator":
		return true
	case "administrator":
		return member.CanPostMessages || chat.Type != types.ChatChannel
	case "member":
		return chat.Type != types.ChatChannel
	default:
		return false
	}
}

// GetFile resolves a file id into a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*types.File, error) {
	params := url.Values{}
	params.Set("file_id", fileID)

	var file types.File
	if err := c.requestInto(ctx, "getFile", params, &file); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return nil, &FileNotFoundError{FileID: fileID}
		}
		return nil, err
	}
	return &file, nil
}

// FileURL builds the download URL for a resolved file path.
func (c *Client) FileURL(file *types.File) string {
	return c.baseURL + "/file/bot" + c.token + "/" + file.FilePath
}

// SetWebhook points the bot's webhook at the given URL.
func (c *Client) SetWebhook(ctx context.Context, hookURL string, maxConnections int) error {
	params := url.Values{}
	params.Set("url", hookURL)
	if maxConnections > 0 {
		params.Set("max_connections", strconv.Itoa(maxConnections))
	}
	if err := c.requestInto(ctx, "setWebhook", params, nil); err != nil {
		return c.remapBotNotFound(err)
	}
	return nil
}

// DeleteWebhook removes the bot's webhook registration.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if err := c.requestInto(ctx, "deleteWebhook", url.Values{}, nil); err != nil {
		return c.remapBotNotFound(err)
	}
	return nil
}

// GetWebhookInfo reports the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context) (*types.WebhookInfo, error) {
	var info types.WebhookInfo
	if err := c.requestInto(ctx, "getWebhookInfo", url.Values{}, &info); err != nil {
		return nil, c.remapBotNotFound(err)
	}
	return &info, nil
}

// remapBotNotFound turns the API's 404 on webhook management calls into the
// dedicated bad-token error.
func (c *Client) remapBotNotFound(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return &BotNotFoundError{Token: c.token}
	}
	return err
}
