package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"churn-horizon-lab/internal/domain"
)

// Stream connection timing.
const (
	streamWriteTimeout = 10 * time.Second
	streamReadTimeout  = 60 * time.Second
	streamPingPeriod   = (streamReadTimeout * 9) / 10
	streamMaxMessage   = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// stream answers each scenario message with its horizon forecast.
// Malformed messages get {"error": "..."} and the connection stays open.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		h.logger.Printf("stream upgrade: %v", err)
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.StreamConnections.Inc()
		defer h.metrics.StreamConnections.Dec()
	}

	conn.SetReadLimit(streamMaxMessage)
	conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(conn, done)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("stream read: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		reply, status := h.streamReply(msgType, msg)
		if h.metrics != nil {
			h.metrics.StreamMessages.WithLabelValues(status).Inc()
		}

		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Printf("stream write: %v", err)
			return
		}
	}
}

func (h *Handler) streamReply(msgType int, msg []byte) (any, string) {
	if msgType != websocket.TextMessage {
		return errorResponse{Error: "expected a text message"}, "error"
	}

	var in domain.ScenarioInput
	if err := json.Unmarshal(msg, &in); err != nil {
		return errorResponse{Error: err.Error()}, "error"
	}
	return h.orch.Horizons(in.Resolve()), "ok"
}

// keepAlive pings the client until done, and closes the connection on server shutdown.
func (h *Handler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-h.shutdown:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteTimeout))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				h.logger.Printf("stream close: %v", err)
			}
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		}
	}
}
