package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/buddyvoice/buddy/pkg/gateway/live/protocol"
	"github.com/buddyvoice/buddy/pkg/gateway/metrics"
	"github.com/buddyvoice/buddy/pkg/voice/stt"
)

// Credential names resolved through the registry. Clients may override any
// of them per session with a set_keys message.
const (
	CredAssemblyAI    = "ASSEMBLYAI_API_KEY"
	CredGemini        = "GEMINI_API_KEY"
	CredMurf          = "MURF_API_KEY"
	CredTavily        = "TAVILY_API_KEY"
	CredMurfWSURL     = "MURF_WS_URL"
	CredMurfContextID = "MURF_CONTEXT_ID"
	CredPersona       = "AGENT_PERSONA"
)

type StreamerConfig struct {
	SampleRate int
	Workers    int
	STTWSURL   string
}

// Streamer drives the audio pipeline: it opens the transcription stream on
// session start, relays transcript events on each audio frame, and spawns
// reply generation when a turn finalizes.
type Streamer struct {
	reg       *Registry
	responder *Responder
	logger    *slog.Logger
	metrics   *metrics.Metrics

	sampleRate int
	pool       *workerPool

	newSTT func(ctx context.Context, apiKey string, h stt.Handlers) (sttStream, error)
}

func NewStreamer(reg *Registry, responder *Responder, logger *slog.Logger, m *metrics.Metrics, cfg StreamerConfig) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = stt.DefaultSampleRate
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	st := &Streamer{
		reg:        reg,
		responder:  responder,
		logger:     logger,
		metrics:    m,
		sampleRate: sampleRate,
		pool:       newWorkerPool(workers),
	}
	st.newSTT = func(ctx context.Context, apiKey string, h stt.Handlers) (sttStream, error) {
		return stt.Connect(ctx, stt.StreamConfig{
			APIKey:      apiKey,
			BaseWSURL:   cfg.STTWSURL,
			SampleRate:  sampleRate,
			FormatTurns: true,
		}, h)
	}
	return st
}

// StartStreaming registers the session and opens its transcription stream.
// When no speech-to-text credential resolves the session still runs, just
// without transcripts.
func (st *Streamer) StartStreaming(ctx context.Context, id string, out Transport) *Session {
	sess := st.reg.Create(id, out)
	if st.metrics != nil {
		st.metrics.SessionsTotal.Inc()
		st.metrics.SessionsActive.Inc()
	}

	apiKey := st.reg.ResolveCredential(id, CredAssemblyAI)
	if apiKey == "" {
		st.logger.Warn("no transcription credential, session runs without transcripts", "session_id", id)
		return sess
	}

	stream, err := st.newSTT(ctx, apiKey, stt.Handlers{
		OnBegin: func(ev stt.BeginEvent) {
			st.logger.Info("transcription stream established", "session_id", id, "stream_id", ev.ID)
		},
		OnTurn: func(ev stt.TurnEvent) {
			if ev.Transcript == "" {
				return
			}
			sess.PushTranscript(protocol.NewTranscription(ev.Transcript, ev.EndOfTurn, ev.TurnIsFormatted, ev.TurnOrder))
		},
		OnTermination: func(ev stt.TerminationEvent) {
			st.logger.Info("transcription stream terminated",
				"session_id", id, "audio_seconds", ev.AudioDuration)
		},
		OnError: func(err error) {
			st.logger.Warn("transcription stream error", "session_id", id, "error", err)
			if st.metrics != nil {
				st.metrics.UpstreamErrorsTotal.WithLabelValues("stt").Inc()
			}
		},
	})
	if err != nil {
		st.logger.Warn("transcription connect failed, session runs without transcripts",
			"session_id", id, "error", err)
		if st.metrics != nil {
			st.metrics.UpstreamErrorsTotal.WithLabelValues("stt").Inc()
		}
		return sess
	}
	sess.setSTT(stream)
	return sess
}

// IngestAudio forwards one binary frame upstream, relays any queued
// transcript events to the client, and kicks off reply generation when a
// finalized transcript is waiting. Reply generation never blocks the audio
// path.
func (st *Streamer) IngestAudio(ctx context.Context, id string, chunk []byte) {
	sess := st.reg.Lookup(id)
	if sess == nil {
		st.logger.Warn("audio for unknown session", "session_id", id)
		return
	}
	if st.metrics != nil {
		st.metrics.AudioBytesTotal.Add(float64(len(chunk)))
	}

	if err := sess.sendAudio(chunk); err != nil {
		st.logger.Debug("audio forward failed", "session_id", id, "error", err)
	}

	for _, ev := range sess.DrainPending() {
		if err := sess.out.Send(ev); err != nil {
			st.logger.Debug("transcript relay failed", "session_id", id, "error", err)
		}
	}

	if text, ok := sess.TakeFinal(); ok {
		if st.metrics != nil {
			st.metrics.TurnsTotal.Inc()
		}
		// The reply outlives this audio frame's request context.
		replyCtx := context.WithoutCancel(ctx)
		st.pool.Go(func() {
			st.responder.Respond(replyCtx, id, text)
		})
	}
}

// StopStreaming destroys the session and tears down its transcription
// stream. Calling it twice is harmless.
func (st *Streamer) StopStreaming(id string) {
	sess := st.reg.Destroy(id)
	if sess == nil {
		return
	}
	if st.metrics != nil {
		st.metrics.SessionsActive.Dec()
	}
	if stream := sess.takeSTT(); stream != nil {
		if err := stream.Disconnect(true); err != nil {
			st.logger.Debug("transcription disconnect failed", "session_id", id, "error", err)
		}
	}
	st.logger.Info("session stopped", "session_id", id)
}

// Drain waits for in-flight replies to finish. Used on shutdown.
func (st *Streamer) Drain() {
	st.pool.Wait()
}

// workerPool bounds the number of concurrent reply generations.
type workerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newWorkerPool(n int) *workerPool {
	return &workerPool{sem: make(chan struct{}, n)}
}

func (p *workerPool) Go(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		fn()
	}()
}

func (p *workerPool) Wait() {
	p.wg.Wait()
}
