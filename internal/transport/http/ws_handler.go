package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"mock-test-service/internal/app"
	"mock-test-service/internal/domain"
)

// Evaluator is the submission use case the handler drives.
type Evaluator interface {
	EvaluateSubmission(ctx context.Context, submitter domain.Submitter, raw string, receivedAt time.Time) (domain.Evaluation, error)
}

type WSHandler struct {
	evaluator Evaluator
	hub       *Hub
	upgrader  websocket.Upgrader
	now       func() time.Time
	logger    *slog.Logger
}

func NewWSHandler(evaluator Evaluator, hub *Hub, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		evaluator: evaluator,
		hub:       hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now:    time.Now,
		logger: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	Text string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets. Clients submit answers over the
// socket and receive personal results and channel announcements.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID, err := strconv.ParseInt(query.Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}
	submitter := domain.Submitter{
		ID:       userID,
		Username: query.Get("username"),
		FullName: query.Get("name"),
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{
		userID:  userID,
		channel: query.Get("channel"),
		send:    make(chan outboundMessage[any], 16),
	}
	h.hub.register(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "user_id", userID, "error", err)
				// unblocks the read loop; keep draining until send is closed
				_ = conn.Close()
				for range c.send {
				}
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				c.send <- errorMessage("invalid submit payload")
				continue
			}
			eval, err := h.evaluator.EvaluateSubmission(r.Context(), submitter, payload.Text, h.now())
			if err != nil {
				c.send <- errorMessage(app.Reason(err))
				continue
			}
			c.send <- outboundMessage[any]{Type: "evaluation", Payload: eval}
		default:
			c.send <- errorMessage("unsupported message type")
		}
	}

	h.hub.unregister(c)
	close(c.send)
	<-writerDone
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// NewRouter wires the health and websocket endpoints.
func NewRouter(ws *WSHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	return mux
}
