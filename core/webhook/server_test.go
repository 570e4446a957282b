package webhook

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tgwire/tgwire/core/telegram"
	"github.com/tgwire/tgwire/core/telegram/state"
)

func newServerWithBot(t *testing.T) (*Server, *telegram.Bot, *int) {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"chat":{"id":42,"type":"private"}}}`)
	}))
	t.Cleanup(api.Close)

	client, err := telegram.NewClient("123:token", telegram.ClientOptions{APIURL: api.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	bot, err := telegram.NewBot(telegram.Options{
		Token:  "123:token",
		UID:    "known-uid",
		Client: client,
		Store:  state.NewMemoryStore(state.MemoryOptions{}),
	})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}

	invoked := 0
	if err := bot.Handle("start", func(c *telegram.Context) error {
		invoked++
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	registry := telegram.NewRegistry()
	if err := registry.Register(bot); err != nil {
		t.Fatalf("register: %v", err)
	}

	server, err := New(Options{HookPrefix: "tg", Registry: registry})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return server, bot, &invoked
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const startUpdate = `{
	"update_id": 1,
	"message": {
		"message_id": 5,
		"from": {"id": 7, "is_bot": false, "first_name": "Ada"},
		"chat": {"id": 42, "type": "private"},
		"text": "/start"
	}
}`

func TestWebhookDeliversToRegisteredBot(t *testing.T) {
	s, _, invoked := newServerWithBot(t)

	rec := post(t, s, "/tg/hook/known-uid", startUpdate)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if *invoked != 1 {
		t.Fatalf("handler invoked %d times, want 1", *invoked)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestWebhookUnknownBotAcknowledged(t *testing.T) {
	s, _, invoked := newServerWithBot(t)

	rec := post(t, s, "/tg/hook/no-such-uid", startUpdate)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown bot must still get 200, got %d", rec.Code)
	}
	if *invoked != 0 {
		t.Fatalf("handler must not run for unknown bots")
	}
	if !strings.Contains(rec.Body.String(), "ignored") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestWebhookMalformedUpdateAcknowledged(t *testing.T) {
	s, _, invoked := newServerWithBot(t)

	rec := post(t, s, "/tg/hook/known-uid", `{"update_id":`)
	if rec.Code != http.StatusOK {
		t.Fatalf("malformed update must still get 200, got %d", rec.Code)
	}
	if *invoked != 0 {
		t.Fatalf("handler must not run for malformed updates")
	}
}

func TestWebhookUnsupportedUpdateAcknowledged(t *testing.T) {
	s, _, _ := newServerWithBot(t)

	rec := post(t, s, "/tg/hook/known-uid", `{"update_id": 2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unsupported update must still get 200, got %d", rec.Code)
	}
}

func TestWebhookHealthEndpoint(t *testing.T) {
	s, _, _ := newServerWithBot(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
