// Package stt streams microphone audio to AssemblyAI's v3 universal
// streaming endpoint and surfaces turn events as they arrive.
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultBaseWSURL  = "wss://streaming.assemblyai.com/v3/ws"
	DefaultSampleRate = 16000

	writeTimeout = 5 * time.Second
	dialTimeout  = 10 * time.Second
)

type StreamConfig struct {
	APIKey      string
	BaseWSURL   string
	SampleRate  int
	FormatTurns bool
}

type BeginEvent struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type TurnEvent struct {
	Transcript      string `json:"transcript"`
	EndOfTurn       bool   `json:"end_of_turn"`
	TurnIsFormatted bool   `json:"turn_is_formatted"`
	TurnOrder       int    `json:"turn_order"`
}

type TerminationEvent struct {
	AudioDuration float64 `json:"audio_duration_seconds"`
	SessionDur    float64 `json:"session_duration_seconds"`
}

// Handlers receives upstream events. Callbacks fire sequentially from the
// stream's read goroutine; implementations must not block for long.
type Handlers struct {
	OnBegin       func(BeginEvent)
	OnTurn        func(TurnEvent)
	OnTermination func(TerminationEvent)
	OnError       func(error)
}

// Stream is a live transcription connection. SendAudio is safe for
// concurrent use with Disconnect.
type Stream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	handlers Handlers

	done   chan struct{}
	closed atomic.Bool
}

// Connect dials the streaming endpoint and starts the read loop.
func Connect(ctx context.Context, cfg StreamConfig, h Handlers) (*Stream, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("stt: missing api key")
	}
	base := cfg.BaseWSURL
	if base == "" {
		base = DefaultBaseWSURL
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("stt: parse url: %w", err)
	}
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("format_turns", strconv.FormatBool(cfg.FormatTurns))
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	header := http.Header{"Authorization": []string{cfg.APIKey}}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stt: dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("stt: dial: %w", err)
	}

	s := &Stream{
		conn:     conn,
		handlers: h,
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// SendAudio forwards one chunk of raw PCM audio upstream.
func (s *Stream) SendAudio(chunk []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("stt: stream closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("stt: send audio: %w", err)
	}
	return nil
}

// Disconnect closes the stream. When terminate is true a Terminate message
// is sent first so the service finalizes any pending turn.
func (s *Stream) Disconnect(terminate bool) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var sendErr error
	if terminate {
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		sendErr = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Terminate"}`))
		s.writeMu.Unlock()
	}
	closeErr := s.conn.Close()
	<-s.done
	if sendErr != nil {
		return fmt.Errorf("stt: terminate: %w", sendErr)
	}
	return closeErr
}

func (s *Stream) readLoop() {
	defer close(s.done)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && s.handlers.OnError != nil {
				s.handlers.OnError(fmt.Errorf("stt: read: %w", err))
			}
			return
		}
		s.dispatch(data)
	}
}

func (s *Stream) dispatch(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}
	switch envelope.Type {
	case "Begin":
		if s.handlers.OnBegin == nil {
			return
		}
		var ev BeginEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			s.handlers.OnBegin(ev)
		}
	case "Turn":
		if s.handlers.OnTurn == nil {
			return
		}
		var ev TurnEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			s.handlers.OnTurn(ev)
		}
	case "Termination":
		if s.handlers.OnTermination == nil {
			return
		}
		var ev TerminationEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			s.handlers.OnTermination(ev)
		}
	}
}
