package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tgwire/tgwire/core/telegram/markup"
)

func newClientAgainst(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient("123:token", ClientOptions{APIURL: server.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func TestClientRequiresToken(t *testing.T) {
	if _, err := NewClient("", ClientOptions{}); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("err = %v, want ErrEmptyToken", err)
	}
}

func TestSendMessageEncodesOptions(t *testing.T) {
	var gotForm map[string]string
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":11,"chat":{"id":42,"type":"private"}}}`)
	})

	m, err := markup.ReplyRows([]string{"yes", "no"})
	if err != nil {
		t.Fatalf("markup: %v", err)
	}
	msg, err := c.SendMessage(context.Background(), 42, "<b>hi</b>", &SendOptions{
		DisableWebPagePreview: true,
		ReplyToMessageID:      7,
		Markup:                m,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.MessageID != 11 {
		t.Fatalf("message_id = %d", msg.MessageID)
	}
	if gotForm["chat_id"] != "42" || gotForm["text"] != "<b>hi</b>" {
		t.Fatalf("form = %v", gotForm)
	}
	if gotForm["parse_mode"] != "HTML" {
		t.Fatalf("parse_mode = %q, want default HTML", gotForm["parse_mode"])
	}
	if gotForm["disable_web_page_preview"] != "true" || gotForm["reply_to_message_id"] != "7" {
		t.Fatalf("form = %v", gotForm)
	}
	if !strings.Contains(gotForm["reply_markup"], "keyboard") {
		t.Fatalf("reply_markup = %q", gotForm["reply_markup"])
	}
}

func TestAPIErrorCarriesDescription(t *testing.T) {
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: message text is empty"}`)
	})

	_, err := c.SendMessage(context.Background(), 42, "", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "message text is empty") {
		t.Fatalf("body = %q", apiErr.Body)
	}
	if strings.Contains(apiErr.URL, "123:token") {
		t.Fatalf("token leaked into error url: %s", apiErr.URL)
	}
}

func TestGetMeMemoized(t *testing.T) {
	var calls atomic.Int64
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"ok":true,"result":{"id":1000,"is_bot":true,"first_name":"testbot","username":"test_bot"}}`)
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		me, err := c.GetMe(ctx)
		if err != nil {
			t.Fatalf("getMe: %v", err)
		}
		if me.ID != 1000 || me.Username != "test_bot" {
			t.Fatalf("me = %+v", me)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("getMe calls = %d, want 1", n)
	}
}

func TestGetMeRetriesAfterFailure(t *testing.T) {
	var calls atomic.Int64
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"result":{"id":1000,"is_bot":true,"first_name":"testbot"}}`)
	})

	ctx := context.Background()
	if _, err := c.GetMe(ctx); err == nil {
		t.Fatal("expected the first getMe to fail")
	}
	me, err := c.GetMe(ctx)
	if err != nil {
		t.Fatalf("getMe after failure: %v", err)
	}
	if me.ID != 1000 {
		t.Fatalf("me = %+v", me)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("getMe calls = %d, want 2", n)
	}
}

func TestGetChatRemapsNotFound(t *testing.T) {
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	})

	_, err := c.GetChat(context.Background(), "nosuchchannel")
	var cnf *ChatNotFoundError
	if !errors.As(err, &cnf) {
		t.Fatalf("expected *ChatNotFoundError, got %v", err)
	}
	if cnf.ChatID != "@nosuchchannel" {
		t.Fatalf("chat ref = %q, want @nosuchchannel", cnf.ChatID)
	}
}

func TestSanitizeChatRef(t *testing.T) {
	cases := map[string]string{
		"-1001234":  "-1001234",
		"42":        "42",
		"channel":   "@channel",
		"@already":  "@already",
		"":          "",
	}
	for in, want := range cases {
		if got := sanitizeChatRef(in); got != want {
			t.Errorf("sanitizeChatRef(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetFileNotFound(t *testing.T) {
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: invalid file id"}`)
	})

	_, err := c.GetFile(context.Background(), "bogus")
	var fnf *FileNotFoundError
	if !errors.As(err, &fnf) {
		t.Fatalf("expected *FileNotFoundError, got %v", err)
	}
	if fnf.FileID != "bogus" {
		t.Fatalf("file id = %q", fnf.FileID)
	}
}

func TestWebhookNotFoundRemap(t *testing.T) {
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	})

	err := c.SetWebhook(context.Background(), "https://example.org/hook/x", 0)
	var bnf *BotNotFoundError
	if !errors.As(err, &bnf) {
		t.Fatalf("expected *BotNotFoundError, got %v", err)
	}
}
