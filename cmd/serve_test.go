package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/deepchat/server/chat"
	"github.com/deepchat/server/config"
	"github.com/deepchat/server/session"
	"github.com/deepchat/server/upstream"
	"github.com/deepchat/server/watch"
	"github.com/deepchat/server/ws"
)

func newTestDeps(t *testing.T) serverDeps {
	t.Helper()
	dir := t.TempDir()

	store, err := session.NewFileStore(filepath.Join(dir, historyFileName))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	configs := config.NewStore(filepath.Join(dir, configFileName))

	sessionList := watch.NewSessionListWatcher(store)
	if err := sessionList.Start(); err != nil {
		t.Fatalf("session list watcher: %v", err)
	}
	t.Cleanup(sessionList.Stop)
	configWatcher := watch.NewConfigWatcher(configs)

	client := upstream.NewHTTPClient(upstream.WithMaxRetries(0))
	return serverDeps{
		store:          store,
		configs:        configs,
		relay:          chat.NewRelay(store, client, configs),
		sessionList:    sessionList,
		configWatcher:  configWatcher,
		originPatterns: ws.DefaultOriginPatterns,
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := newHandler(newTestDeps(t))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("got body %q, want %q", rec.Body.String(), "ok")
	}
}

func TestHandler_CORSOnAPI(t *testing.T) {
	handler := newHandler(newTestDeps(t))
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("got Allow-Origin %q", got)
	}
}

// TestChatEndToEnd drives one turn through the real upstream client against a
// fake OpenAI-compatible provider.
func TestChatEndToEnd(t *testing.T) {
	authCh := make(chan string, 1)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case authCh <- r.Header.Get("Authorization"):
		default:
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, payload := range []string{
			`{"choices":[{"delta":{"reasoning_content":"think"}}]}`,
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
			`[DONE]`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", payload)
			w.(http.Flusher).Flush()
		}
	}))
	defer provider.Close()

	deps := newTestDeps(t)
	cfg := config.Default()
	cfg.APIKeyDeepSeek = "sk-test"
	cfg.BaseURL = provider.URL
	if err := deps.configs.Set(cfg); err != nil {
		t.Fatalf("config Set failed: %v", err)
	}
	sessionID := deps.store.List()[0].ID

	srv := httptest.NewServer(newHandler(deps))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/ws/chat", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.CloseNow()

	req, _ := json.Marshal(chat.Request{SessionID: sessionID, Message: "hi"})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var events []chat.Event
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read failed after %d events: %v", len(events), err)
		}
		var ev chat.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("invalid event: %v", err)
		}
		events = append(events, ev)
		if ev.Type == chat.EventDone || ev.Type == chat.EventError {
			break
		}
	}

	want := chat.ReasoningHeader + "think" + chat.AnswerSeparator + "Hello"
	last := events[len(events)-1]
	if last.Type != chat.EventDone || last.Content != want {
		t.Fatalf("got final event %+v, want done %q", last, want)
	}
	if events[0].Type != chat.EventUserMessageSaved {
		t.Errorf("first event = %q, want user_message_saved", events[0].Type)
	}
	if gotAuth := <-authCh; gotAuth != "Bearer sk-test" {
		t.Errorf("provider saw Authorization %q", gotAuth)
	}

	sess, _ := deps.store.Get(sessionID)
	if len(sess.Messages) != 2 || sess.Messages[1].Content != want {
		t.Errorf("unexpected committed messages: %+v", sess.Messages)
	}
}

func TestResolvePort(t *testing.T) {
	t.Cleanup(func() { port = 0 })

	t.Setenv("SERVER_PORT", "")
	port = 0
	if p, _ := resolvePort(); p != defaultPort {
		t.Errorf("default port = %d, want %d", p, defaultPort)
	}

	t.Setenv("SERVER_PORT", "9000")
	if p, _ := resolvePort(); p != 9000 {
		t.Errorf("env port = %d, want 9000", p)
	}

	port = 9100
	if p, _ := resolvePort(); p != 9100 {
		t.Errorf("flag port = %d, want 9100", p)
	}

	port = 0
	t.Setenv("SERVER_PORT", "abc")
	if _, err := resolvePort(); err == nil {
		t.Error("expected error for invalid SERVER_PORT")
	}
}
