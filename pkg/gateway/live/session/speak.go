package session

import (
	"context"
	"time"

	"github.com/buddyvoice/buddy/pkg/gateway/live/protocol"
	"github.com/buddyvoice/buddy/pkg/voice/tts"
)

type ttsStream interface {
	SendText(text string) error
	EndInput() error
	Chunks() <-chan tts.Chunk
	Close() error
}

// runSpeechBridge speaks one reply. It forwards text chunks from textQ to
// the synthesis backend in order and relays audio frames back to the client
// as they arrive. After the text is exhausted it waits up to recvWait for
// the backend's final frame, then gives up on trailing audio. Errors are
// logged and swallowed; the session stays usable either way.
func (r *Responder) runSpeechBridge(ctx context.Context, sess *Session, textQ <-chan string, recvWait time.Duration) {
	apiKey := r.reg.ResolveCredential(sess.ID, CredMurf)
	if apiKey == "" {
		r.logger.Warn("no synthesis credential, reply stays text-only", "session_id", sess.ID)
		for range textQ {
		}
		return
	}

	cfg := tts.StreamConfig{
		APIKey:    apiKey,
		BaseWSURL: r.reg.ResolveCredential(sess.ID, CredMurfWSURL),
		ContextID: r.reg.ResolveCredential(sess.ID, CredMurfContextID),
	}
	stream, err := r.newTTS(ctx, cfg)
	if err != nil {
		r.logger.Warn("synthesis connect failed", "session_id", sess.ID, "error", err)
		r.upstreamError("tts")
		for range textQ {
		}
		return
	}
	defer stream.Close()

	out := sess.Transport()
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		for chunk := range stream.Chunks() {
			if chunk.AudioB64 != "" {
				out.Send(protocol.NewAudioChunk(chunk.AudioB64))
			}
			if chunk.Final {
				out.Send(protocol.NewAudioFinal())
				return
			}
		}
	}()

	for text := range textQ {
		if text == "" {
			continue
		}
		if err := stream.SendText(text); err != nil {
			r.logger.Warn("synthesis send failed", "session_id", sess.ID, "error", err)
			r.upstreamError("tts")
			for range textQ {
			}
			break
		}
	}
	if err := stream.EndInput(); err != nil {
		r.logger.Debug("synthesis end-of-input failed", "session_id", sess.ID, "error", err)
	}

	select {
	case <-recvDone:
	case <-time.After(recvWait):
		r.logger.Warn("synthesis receiver timed out, dropping trailing audio",
			"session_id", sess.ID, "wait", recvWait)
	}
}
