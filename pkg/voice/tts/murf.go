// Package tts bridges reply text into Murf's duplex websocket speech
// endpoint and exposes the synthesized audio as a chunk stream.
package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultBaseWSURL  = "wss://api.murf.ai/v1/speech/stream-input"
	DefaultContextID  = "murf_context_global_1"
	DefaultSampleRate = 44100

	DefaultVoiceID = "en-US-amara"
	DefaultStyle   = "Conversational"

	writeTimeout = 5 * time.Second
	dialTimeout  = 10 * time.Second
)

type VoiceConfig struct {
	VoiceID   string `json:"voiceId"`
	Style     string `json:"style"`
	Rate      int    `json:"rate"`
	Pitch     int    `json:"pitch"`
	Variation int    `json:"variation"`
}

func DefaultVoice() VoiceConfig {
	return VoiceConfig{
		VoiceID:   DefaultVoiceID,
		Style:     DefaultStyle,
		Rate:      0,
		Pitch:     0,
		Variation: 1,
	}
}

type StreamConfig struct {
	APIKey      string
	BaseWSURL   string
	ContextID   string
	SampleRate  int
	ChannelType string
	Format      string
	Voice       VoiceConfig
}

// Chunk is one frame of synthesized speech. Audio stays base64 encoded so
// the gateway can forward it to browsers without a decode round trip.
// Final marks the end of the current context's audio.
type Chunk struct {
	AudioB64 string
	Final    bool
}

// Stream is a duplex synthesis connection. SendText and EndInput are safe
// for concurrent use with Close.
type Stream struct {
	conn      *websocket.Conn
	contextID string

	writeMu sync.Mutex

	chunks    chan Chunk
	done      chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

// OpenStream dials the synthesis endpoint and sends the voice configuration
// frame before any text is accepted.
func OpenStream(ctx context.Context, cfg StreamConfig) (*Stream, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tts: missing api key")
	}
	base := cfg.BaseWSURL
	if base == "" {
		base = DefaultBaseWSURL
	}
	contextID := cfg.ContextID
	if contextID == "" {
		contextID = DefaultContextID
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	channelType := cfg.ChannelType
	if channelType == "" {
		channelType = "MONO"
	}
	format := cfg.Format
	if format == "" {
		format = "WAV"
	}
	voice := cfg.Voice
	if voice.VoiceID == "" {
		voice = DefaultVoice()
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("tts: parse url: %w", err)
	}
	q := u.Query()
	q.Set("api-key", cfg.APIKey)
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	q.Set("channel_type", channelType)
	q.Set("format", format)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("tts: dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("tts: dial: %w", err)
	}

	s := &Stream{
		conn:      conn,
		contextID: contextID,
		chunks:    make(chan Chunk, 32),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}

	voiceFrame := struct {
		VoiceConfig VoiceConfig `json:"voice_config"`
		ContextID   string      `json:"context_id"`
	}{VoiceConfig: voice, ContextID: contextID}
	if err := s.writeJSON(voiceFrame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tts: send voice config: %w", err)
	}

	go s.readLoop()
	return s, nil
}

// Chunks yields synthesized audio in arrival order. The channel is closed
// when the connection ends.
func (s *Stream) Chunks() <-chan Chunk {
	return s.chunks
}

// SendText queues one piece of reply text for synthesis.
func (s *Stream) SendText(text string) error {
	frame := struct {
		Text      string `json:"text"`
		ContextID string `json:"context_id"`
	}{Text: text, ContextID: s.contextID}
	if err := s.writeJSON(frame); err != nil {
		return fmt.Errorf("tts: send text: %w", err)
	}
	return nil
}

// EndInput tells the service no more text is coming for this context, which
// makes it flush and emit the final marker.
func (s *Stream) EndInput() error {
	frame := struct {
		Text      string `json:"text"`
		End       bool   `json:"end"`
		ContextID string `json:"context_id"`
	}{Text: "", End: true, ContextID: s.contextID}
	if err := s.writeJSON(frame); err != nil {
		return fmt.Errorf("tts: end input: %w", err)
	}
	return nil
}

// Close tears the connection down. Safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
	<-s.done
	return nil
}

func (s *Stream) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.closed:
		return fmt.Errorf("stream closed")
	default:
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Stream) readLoop() {
	defer close(s.done)
	defer close(s.chunks)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame struct {
			Audio string `json:"audio"`
			Final bool   `json:"final"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Audio == "" && !frame.Final {
			continue
		}
		select {
		case s.chunks <- Chunk{AudioB64: frame.Audio, Final: frame.Final}:
		case <-s.closed:
			return
		}
	}
}
