package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/buddyvoice/buddy/pkg/voice/tts"
)

// TTS serves POST /v1/tts: one-shot synthesis for clients that do not hold
// a live audio session.
type TTS struct {
	client *tts.Client
	logger *slog.Logger
}

func NewTTS(client *tts.Client, logger *slog.Logger) *TTS {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTS{client: client, logger: logger}
}

func (h *TTS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.client.Configured() {
		http.Error(w, "speech synthesis unavailable", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "missing text", http.StatusBadRequest)
		return
	}

	res, err := h.client.Generate(r.Context(), req.Text)
	if err != nil {
		h.logger.Warn("one-shot synthesis failed", "error", err)
		http.Error(w, "speech synthesis failed", http.StatusBadGateway)
		return
	}
	if res.AudioURL == "" {
		http.Error(w, "speech synthesis returned no audio", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"audio_url": res.AudioURL})
}
