package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mock-test-service/internal/app"
	"mock-test-service/internal/domain"
	"mock-test-service/internal/infra/memory"
)

func TestWebSocketSubmitFlow(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "userId=1&username=alice")
	defer conn.Close()

	submit(t, conn, "/answer 5*1a2b3c4d5a6b7c8d9c10a")
	typ, payload := readNext(conn, t, "evaluation")
	if typ != "evaluation" {
		t.Fatalf("expected evaluation, got %s", typ)
	}
	if payload["correct"] != float64(8) || payload["percent"] != float64(80) {
		t.Fatalf("unexpected evaluation %+v", payload)
	}

	submit(t, conn, "/answer 5*1a2b3c4d5a6b7c8d9c10a")
	_, payload = readNext(conn, t, "error")
	if payload["message"] != app.Reason(domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate rejection, got %+v", payload)
	}
}

func TestWebSocketRejectsMissingUser(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "name=nobody"), nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func TestHubDeliversPersonalAndChannelMessages(t *testing.T) {
	server, hub := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "userId=7&name=Bob&channel=@results")
	defer conn.Close()
	waitForClients(t, hub, 1)

	ctx := context.Background()
	if err := hub.SendPersonal(ctx, 7, "your result"); err != nil {
		t.Fatalf("send personal: %v", err)
	}
	_, payload := readNext(conn, t, "message")
	if payload["text"] != "your result" {
		t.Fatalf("unexpected personal payload %+v", payload)
	}

	if err := hub.SendChannel(ctx, "@results", "<b>top</b>", app.FormatHTML); err != nil {
		t.Fatalf("send channel: %v", err)
	}
	_, payload = readNext(conn, t, "message")
	if payload["channel"] != "@results" || payload["format"] != "HTML" {
		t.Fatalf("unexpected channel payload %+v", payload)
	}
}

func TestHubPersonalToDisconnectedUserFails(t *testing.T) {
	hub := NewHub()
	err := hub.SendPersonal(context.Background(), 99, "hello")
	if err == nil {
		t.Fatalf("expected delivery failure")
	}
}

func TestHubChannelWithoutSubscribersFails(t *testing.T) {
	server, hub := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "userId=7&channel=@other")
	defer conn.Close()
	waitForClients(t, hub, 1)

	err := hub.SendChannel(context.Background(), "@results", "<b>top</b>", app.FormatHTML)
	if !errors.Is(err, domain.ErrDelivery) {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	open := time.Now().Add(-time.Hour)
	tests := memory.NewStaticTestLoader(domain.Test{
		ID:       5,
		StartsAt: open,
		EndsAt:   open.Add(2 * time.Hour),
		Answers:  "1a2b3c4d5a6b7c8d9a10b",
	})
	service := app.NewSubmissionService(tests, memory.NewResultLedger(), app.Options{ItemCount: 10, IOTimeout: time.Second}, nil)
	hub := NewHub()
	return httptest.NewServer(NewRouter(NewWSHandler(service, hub, nil))), hub
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + server.URL[len("http"):] + "/ws?" + query
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, query), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func submit(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	msg := map[string]any{
		"type":    "submit",
		"payload": map[string]any{"text": text},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write submit: %v", err)
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		got := len(hub.clients)
		hub.mu.RUnlock()
		if got == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d connected clients", n)
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
