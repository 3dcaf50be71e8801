// Package handlers contains the gateway's HTTP and websocket endpoints.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/buddyvoice/buddy/pkg/gateway/live/protocol"
	"github.com/buddyvoice/buddy/pkg/gateway/live/session"
)

// Audio serves /ws/audio/{session_id}: binary frames carry raw microphone
// audio in, JSON text frames carry pipeline events out.
type Audio struct {
	streamer *session.Streamer
	reg      *session.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewAudio(streamer *session.Streamer, reg *session.Registry, logger *slog.Logger) *Audio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Audio{
		streamer: streamer,
		reg:      reg,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Audio) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	if id == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session_id", id, "error", err)
		return
	}

	out := session.NewOutbound(conn, h.logger)
	h.streamer.StartStreaming(r.Context(), id, out)
	h.logger.Info("audio session connected", "session_id", id)

	defer func() {
		h.streamer.StopStreaming(id)
		out.Close()
		conn.Close()
		h.logger.Info("audio session closed", "session_id", id)
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch mt {
		case websocket.BinaryMessage:
			h.streamer.IngestAudio(r.Context(), id, data)
		case websocket.TextMessage:
			msg, err := protocol.DecodeClientMessage(data)
			if err != nil {
				h.logger.Debug("dropping malformed client message",
					"session_id", id, "error", err)
				continue
			}
			switch m := msg.(type) {
			case protocol.ClientSetKeys:
				h.reg.SetCredentialOverrides(id, m.Keys)
				if err := out.Send(protocol.NewKeysAck()); err != nil {
					h.logger.Debug("keys ack failed", "session_id", id, "error", err)
				}
			}
		}
	}
}
