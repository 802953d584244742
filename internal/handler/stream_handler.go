package handler

import (
	"encoding/json"
	"net/http"

	"fedchat/internal/entity"
	"fedchat/internal/service"
	"fedchat/pkg/fault"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamHandler bridges broker subscriptions onto websockets. Each socket
// carries one subscription; when either side goes away the other is torn down.
type StreamHandler struct {
	chatService service.ChannelService
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

func NewStreamHandler(chatService service.ChannelService, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		chatService: chatService,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *StreamHandler) Messages(w http.ResponseWriter, r *http.Request) {
	channelUUID := mux.Vars(r)["id"]

	sub, err := h.chatService.StreamMessages(r.Context(), channelUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Cancel()
		return
	}

	go readUntilClosed(conn, sub.Cancel)

	defer conn.Close()
	defer sub.Cancel()
	for {
		select {
		case payload, ok := <-sub.Payloads():
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("message stream write failed",
					zap.String("channel", channelUUID), zap.Error(err))
				return
			}
		case <-sub.Done():
			return
		}
	}
}

func (h *StreamHandler) Presence(w http.ResponseWriter, r *http.Request) {
	groupUUID := mux.Vars(r)["id"]
	name := r.URL.Query().Get("name")
	host := r.URL.Query().Get("host")
	if name == "" || host == "" {
		writeError(w, fault.InvalidArg("name and host are required"))
		return
	}
	user := entity.Identity{Name: name, Host: host}

	stream, err := h.chatService.StreamPresence(r.Context(), groupUUID, user)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		stream.Close()
		return
	}

	go readUntilClosed(conn, stream.Close)

	defer conn.Close()
	defer stream.Close()

	// Snapshot first so the consumer starts from the full current state,
	// then live updates from the subscription.
	for _, record := range stream.Snapshot() {
		payload, err := json.Marshal(record)
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}

	for {
		select {
		case payload, ok := <-stream.Live():
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("presence stream write failed",
					zap.String("group", groupUUID), zap.String("user", user.String()), zap.Error(err))
				return
			}
		case <-stream.Done():
			return
		}
	}
}

// readUntilClosed drains control frames so close handshakes and pings are
// processed, then tears the stream down when the peer disconnects.
func readUntilClosed(conn *websocket.Conn, teardown func()) {
	defer teardown()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
