// Package session owns the per-connection streaming state and the
// pipeline that turns client audio into transcripts, replies, and
// synthesized speech.
package session

import (
	"sync"
	"time"

	"github.com/buddyvoice/buddy/pkg/gateway/live/protocol"
)

// Transport delivers JSON event frames to one client. Implementations must
// be safe for concurrent use; the pipeline writes from several goroutines.
type Transport interface {
	Send(v any) error
}

type sttStream interface {
	SendAudio(chunk []byte) error
	Disconnect(terminate bool) error
}

// Entry is one conversation log record. Role is "user" or "model".
type Entry struct {
	Role string
	Text string
}

// Session is the state for one live connection. Transcript callbacks run
// on the speech-to-text client's read goroutine, so every mutation goes
// through the mutex.
type Session struct {
	ID        string
	CreatedAt time.Time

	out Transport

	mu         sync.Mutex
	stt        sttStream
	pending    []protocol.ServerTranscription
	finalText  string
	hasFinal   bool
	history    []Entry
	historyCap int
	overrides  map[string]string
}

func (s *Session) Transport() Transport {
	return s.out
}

func (s *Session) setSTT(stream sttStream) {
	s.mu.Lock()
	s.stt = stream
	s.mu.Unlock()
}

func (s *Session) takeSTT() sttStream {
	s.mu.Lock()
	stream := s.stt
	s.stt = nil
	s.mu.Unlock()
	return stream
}

func (s *Session) sendAudio(chunk []byte) error {
	s.mu.Lock()
	stream := s.stt
	s.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.SendAudio(chunk)
}

// PushTranscript appends a transcript event to the pending queue. When the
// event marks a formatted end of turn the finalized slot is overwritten,
// last write wins.
func (s *Session) PushTranscript(ev protocol.ServerTranscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, ev)
	if ev.EndOfTurn && ev.TurnIsFormatted {
		s.finalText = ev.Transcript
		s.hasFinal = true
	}
}

// DrainPending returns and clears the queued transcript events in FIFO
// order.
func (s *Session) DrainPending() []protocol.ServerTranscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	drained := s.pending
	s.pending = nil
	return drained
}

// TakeFinal consumes the finalized transcript slot if one is set.
func (s *Session) TakeFinal() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFinal {
		return "", false
	}
	text := s.finalText
	s.finalText = ""
	s.hasFinal = false
	return text, true
}

// AppendHistory records one conversation entry, evicting the oldest entries
// when a retention cap is configured.
func (s *Session) AppendHistory(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Entry{Role: role, Text: text})
	if s.historyCap > 0 && len(s.history) > s.historyCap {
		over := len(s.history) - s.historyCap
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// History returns a copy of the conversation log.
func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) setOverrides(m map[string]string) {
	s.mu.Lock()
	s.overrides = m
	s.mu.Unlock()
}

func (s *Session) override(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.overrides[name]
	return v, ok
}
