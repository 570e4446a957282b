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

	"github.com/tgwire/tgwire/core/telegram/state"
	"github.com/tgwire/tgwire/core/telegram/types"
)

// fakeAPI counts calls per endpoint and answers every method with a minimal
// successful envelope.
type fakeAPI struct {
	server    *httptest.Server
	sendCount atomic.Int64
	lastText  atomic.Value
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndexByte(r.URL.Path, '/')+1:]
		if method == "sendMessage" {
			f.sendCount.Add(1)
			if err := r.ParseForm(); err == nil {
				f.lastText.Store(r.PostForm.Get("text"))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "sendMessage", "editMessageText":
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":900,"chat":{"id":42,"type":"private"}}}`)
		case "getMe":
			fmt.Fprint(w, `{"ok":true,"result":{"id":1000,"is_bot":true,"first_name":"testbot"}}`)
		default:
			fmt.Fprint(w, `{"ok":true,"result":true}`)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestBot(t *testing.T, opts Options) (*Bot, *fakeAPI) {
	t.Helper()
	api := newFakeAPI(t)
	client, err := NewClient("123:token", ClientOptions{APIURL: api.server.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	opts.Token = "123:token"
	opts.Client = client
	if opts.Store == nil {
		opts.Store = state.NewMemoryStore(state.MemoryOptions{})
	}
	b, err := NewBot(opts)
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b, api
}

func messageUpdate(text string) *types.Update {
	return &types.Update{
		UpdateID: 1,
		Message: &types.Message{
			MessageID: 5,
			From:      &types.User{ID: 7, FirstName: "Ada"},
			Chat:      &types.Chat{ID: 42, Type: types.ChatPrivate},
			Text:      text,
		},
	}
}

func callbackUpdate(data string) *types.Update {
	return &types.Update{
		UpdateID: 2,
		CallbackQuery: &types.CallbackQuery{
			ID:   "cb1",
			From: &types.User{ID: 7, FirstName: "Ada"},
			Message: &types.Message{
				MessageID: 6,
				Chat:      &types.Chat{ID: 42, Type: types.ChatPrivate},
			},
			Data: data,
		},
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text, name, args string
		ok               bool
	}{
		{"/foo bar baz", "foo", "bar baz", true},
		{"/foo", "foo", "", true},
		{"/foo   spaced  ", "foo", "spaced", true},
		{"plain text", "", "", false},
		{"/", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := parseCommand(tc.text)
		if name != tc.name || args != tc.args || ok != tc.ok {
			t.Errorf("parseCommand(%q) = %q, %q, %v; want %q, %q, %v",
				tc.text, name, args, ok, tc.name, tc.args, tc.ok)
		}
	}
}

func TestCommandStartsAtStepZero(t *testing.T) {
	ctx := context.Background()
	var gotStep = -1
	var gotArgs string

	b, _ := newTestBot(t, Options{})
	err := b.Handle("order", func(c *Context) error {
		session, err := c.Session()
		if err != nil {
			return err
		}
		gotArgs = c.Args()
		gotStep, err = session.CommandStep(c.Ctx(), "order")
		return err
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("/order two pizzas")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if gotStep != 0 {
		t.Fatalf("step = %d, want 0", gotStep)
	}
	if gotArgs != "two pizzas" {
		t.Fatalf("args = %q", gotArgs)
	}
}

func TestAliasStartsCommand(t *testing.T) {
	ctx := context.Background()
	invoked := false

	b, _ := newTestBot(t, Options{})
	if err := b.Handle("start", func(c *Context) error {
		invoked = true
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := b.Alias("Get started", "start"); err != nil {
		t.Fatalf("alias: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("Get started")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !invoked {
		t.Fatal("alias did not start its command")
	}
}

func TestSlashAliasStartsTarget(t *testing.T) {
	ctx := context.Background()
	var gotArgs string
	invoked := false

	b, _ := newTestBot(t, Options{})
	if err := b.Handle("start", func(c *Context) error {
		invoked = true
		gotArgs = c.Args()
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := b.Alias("hi", "start"); err != nil {
		t.Fatalf("alias: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("/hi there")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !invoked {
		t.Fatal("slash alias did not start its target")
	}
	if gotArgs != "there" {
		t.Fatalf("args = %q, want %q", gotArgs, "there")
	}
}

func TestAliasTargetMustExist(t *testing.T) {
	b, _ := newTestBot(t, Options{})
	if err := b.Alias("Help", "help"); err == nil {
		t.Fatal("expected error aliasing an unregistered command")
	}
}

func TestDuplicateCommandRejected(t *testing.T) {
	b, _ := newTestBot(t, Options{})
	h := func(c *Context) error { return nil }
	if err := b.Handle("order", h); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := b.Handle("order", h); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestContinuationPreservesStep(t *testing.T) {
	ctx := context.Background()
	var steps []int

	b, _ := newTestBot(t, Options{})
	if err := b.Handle("order", func(c *Context) error {
		session, err := c.Session()
		if err != nil {
			return err
		}
		step, err := session.CommandStep(c.Ctx(), "order")
		if err != nil {
			return err
		}
		steps = append(steps, step)
		return session.SetCommandStep(c.Ctx(), step+1)
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("/order")); err != nil {
		t.Fatalf("process start: %v", err)
	}
	if err := b.ProcessUpdate(ctx, messageUpdate("pepperoni")); err != nil {
		t.Fatalf("process continuation: %v", err)
	}
	if err := b.ProcessUpdate(ctx, messageUpdate("large")); err != nil {
		t.Fatalf("process continuation: %v", err)
	}

	want := []int{0, 1, 2}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("steps = %v, want %v", steps, want)
		}
	}
}

func TestNewCommandOverridesActive(t *testing.T) {
	ctx := context.Background()
	var ran []string

	b, _ := newTestBot(t, Options{})
	register := func(name string) {
		if err := b.Handle(name, func(c *Context) error {
			session, err := c.Session()
			if err != nil {
				return err
			}
			step, err := session.CommandStep(c.Ctx(), name)
			if err != nil {
				return err
			}
			ran = append(ran, fmt.Sprintf("%s@%d", name, step))
			return session.SetCommandStep(c.Ctx(), step+1)
		}); err != nil {
			t.Fatalf("handle %s: %v", name, err)
		}
	}
	register("order")
	register("help")

	if err := b.ProcessUpdate(ctx, messageUpdate("/order")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := b.ProcessUpdate(ctx, messageUpdate("/help")); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(ran) != 2 || ran[0] != "order@0" || ran[1] != "help@0" {
		t.Fatalf("ran = %v, want [order@0 help@0]", ran)
	}
}

func TestCommandErrorSendsExactlyOneMessage(t *testing.T) {
	ctx := context.Background()

	b, api := newTestBot(t, Options{})
	if err := b.Handle("order", func(c *Context) error {
		return Abort("out of stock")
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("/order")); err != nil {
		t.Fatalf("command error should not escape: %v", err)
	}
	if n := api.sendCount.Load(); n != 1 {
		t.Fatalf("sendMessage count = %d, want 1", n)
	}
}

func TestCommandErrorKeepsCommandActive(t *testing.T) {
	ctx := context.Background()
	calls := 0

	b, _ := newTestBot(t, Options{})
	if err := b.Handle("order", func(c *Context) error {
		calls++
		if calls == 1 {
			return Abort("invalid input")
		}
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("/order")); err != nil {
		t.Fatalf("process: %v", err)
	}
	// The abort left the command active, so plain text retries the step.
	if err := b.ProcessUpdate(ctx, messageUpdate("second try")); err != nil {
		t.Fatalf("process retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestUnknownCommandDefaultReplies(t *testing.T) {
	ctx := context.Background()

	b, api := newTestBot(t, Options{})
	if err := b.ProcessUpdate(ctx, messageUpdate("/nosuch")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if n := api.sendCount.Load(); n != 1 {
		t.Fatalf("sendMessage count = %d, want 1", n)
	}
	text, _ := api.lastText.Load().(string)
	if !strings.Contains(text, "/nosuch") {
		t.Fatalf("reply %q does not name the attempted command", text)
	}
}

func TestUnknownCommandHookOverridesDefault(t *testing.T) {
	ctx := context.Background()
	hooked := false

	b, api := newTestBot(t, Options{
		OnUnknownCommand: func(c *Context) error {
			hooked = true
			return nil
		},
	})
	if err := b.ProcessUpdate(ctx, messageUpdate("/nosuch")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !hooked {
		t.Fatal("unknown-command hook did not run")
	}
	if n := api.sendCount.Load(); n != 0 {
		t.Fatalf("sendMessage count = %d, want 0", n)
	}
}

func TestPlainMessageHook(t *testing.T) {
	ctx := context.Background()
	var got string

	b, api := newTestBot(t, Options{
		OnPlainMessage: func(c *Context) error {
			got = c.Text()
			return nil
		},
	})
	if err := b.ProcessUpdate(ctx, messageUpdate("hello there")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got != "hello there" {
		t.Fatalf("plain message hook got %q", got)
	}
	if n := api.sendCount.Load(); n != 0 {
		t.Fatalf("sendMessage count = %d, want 0", n)
	}
}

func TestHandlerErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	b, api := newTestBot(t, Options{})
	if err := b.Handle("order", func(c *Context) error {
		return boom
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("/order")); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n := api.sendCount.Load(); n != 0 {
		t.Fatalf("unexpected sendMessage calls: %d", n)
	}
}

func TestCallbackContinuesCommand(t *testing.T) {
	ctx := context.Background()
	var texts []string

	b, _ := newTestBot(t, Options{})
	if err := b.Handle("confirm", func(c *Context) error {
		texts = append(texts, c.Text())
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("/confirm")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := b.ProcessUpdate(ctx, callbackUpdate("confirm|yes")); err != nil {
		t.Fatalf("process callback: %v", err)
	}

	if len(texts) != 2 || texts[1] != "confirm|yes" {
		t.Fatalf("texts = %v", texts)
	}
}

func TestCallbackNeverStartsCommand(t *testing.T) {
	ctx := context.Background()
	invoked := false

	b, _ := newTestBot(t, Options{})
	if err := b.Handle("confirm", func(c *Context) error {
		invoked = true
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	// Callback data that looks like a command must not start one.
	if err := b.ProcessUpdate(ctx, callbackUpdate("/confirm")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if invoked {
		t.Fatal("callback query started a command")
	}
}

func TestUnsupportedUpdate(t *testing.T) {
	b, _ := newTestBot(t, Options{})
	err := b.ProcessUpdate(context.Background(), &types.Update{UpdateID: 9})
	if !errors.Is(err, ErrUnsupportedUpdate) {
		t.Fatalf("err = %v, want ErrUnsupportedUpdate", err)
	}
}

func TestMiddlewareWrapsHandlers(t *testing.T) {
	ctx := context.Background()
	var order []string

	b, _ := newTestBot(t, Options{})
	b.Use(func(next HandlerFunc) HandlerFunc {
		return func(c *Context) error {
			order = append(order, "before")
			err := next(c)
			order = append(order, "after")
			return err
		}
	})
	if err := b.Handle("ping", func(c *Context) error {
		order = append(order, "handler")
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := b.ProcessUpdate(ctx, messageUpdate("/ping")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(order) != 3 || order[0] != "before" || order[1] != "handler" || order[2] != "after" {
		t.Fatalf("order = %v", order)
	}
}
