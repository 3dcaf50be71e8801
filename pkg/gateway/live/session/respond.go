package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buddyvoice/buddy/pkg/gateway/intent"
	"github.com/buddyvoice/buddy/pkg/gateway/live/protocol"
	"github.com/buddyvoice/buddy/pkg/gateway/metrics"
	"github.com/buddyvoice/buddy/pkg/skills/weather"
	"github.com/buddyvoice/buddy/pkg/skills/websearch"
	"github.com/buddyvoice/buddy/pkg/voice/llm"
	"github.com/buddyvoice/buddy/pkg/voice/tts"
)

const (
	searchUnavailableReply = "Web search is unavailable: missing or invalid TAVILY_API_KEY."
	searchFailedReply      = "Sorry, web search failed. Please try again later."
	cityMissingReply       = "I'd love to check the weather for you, but I couldn't catch which city you meant. Could you say the city name again?"

	// How long the synthesis receiver may keep producing audio after the
	// sender is done. Streamed replies get a shorter window because audio
	// has been flowing throughout.
	syncRecvWait     = 5 * time.Second
	streamedRecvWait = 2 * time.Second
)

type weatherClient interface {
	Lookup(ctx context.Context, city string) (*weather.Conditions, error)
}

type searchClient interface {
	Search(ctx context.Context, apiKey, query string) (*websearch.Response, error)
}

type chatGenerator interface {
	Stream(ctx context.Context, apiKey, persona string, history []llm.Turn, userText string, onChunk func(string)) (string, error)
}

// GeminiChat adapts the llm generator so the persona can differ per
// session.
type GeminiChat struct {
	Model string
}

func (g GeminiChat) Stream(ctx context.Context, apiKey, persona string, history []llm.Turn, userText string, onChunk func(string)) (string, error) {
	return llm.NewGenerator(g.Model, persona).Stream(ctx, apiKey, history, userText, onChunk)
}

// Responder turns a finalized transcript into client-visible reply events
// plus synthesized speech. All paths are single attempt; failures become
// spoken apologies or an llm_error frame, never a dead session.
type Responder struct {
	reg     *Registry
	logger  *slog.Logger
	metrics *metrics.Metrics

	weather weatherClient
	search  searchClient
	chat    chatGenerator

	newTTS func(ctx context.Context, cfg tts.StreamConfig) (ttsStream, error)
}

func NewResponder(reg *Registry, logger *slog.Logger, m *metrics.Metrics, w weatherClient, s searchClient, chat chatGenerator) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Responder{
		reg:     reg,
		logger:  logger,
		metrics: m,
		weather: w,
		search:  s,
		chat:    chat,
	}
	r.newTTS = func(ctx context.Context, cfg tts.StreamConfig) (ttsStream, error) {
		return tts.OpenStream(ctx, cfg)
	}
	return r
}

// Respond classifies the finalized text and drives the matching reply path.
func (r *Responder) Respond(ctx context.Context, id, text string) {
	sess := r.reg.Lookup(id)
	if sess == nil {
		r.logger.Warn("reply for unknown session", "session_id", id)
		return
	}
	in := intent.Classify(text)
	if r.metrics != nil {
		r.metrics.RepliesTotal.WithLabelValues(in.Kind.String()).Inc()
	}
	r.logger.Info("responding", "session_id", id, "intent", in.Kind.String())

	switch in.Kind {
	case intent.Weather:
		r.respondWeather(ctx, sess, text, in.City)
	case intent.WebSearch:
		r.respondSearch(ctx, sess, text)
	default:
		r.respondChat(ctx, sess, text)
	}
}

func (r *Responder) respondWeather(ctx context.Context, sess *Session, userText, city string) {
	var reply string
	switch {
	case city == "":
		reply = cityMissingReply
	default:
		cond, err := r.weather.Lookup(ctx, city)
		switch {
		case errors.Is(err, weather.ErrCityNotFound):
			reply = fmt.Sprintf("Sorry, I couldn't find the city '%s'. Could you check the spelling or try a different city?", city)
		case err != nil:
			r.logger.Warn("weather lookup failed", "session_id", sess.ID, "city", city, "error", err)
			r.upstreamError("weather")
			reply = fmt.Sprintf("I'm having trouble getting the weather for %s right now. Please try again later.", city)
		default:
			reply = weather.FormatConditions(cond)
		}
	}
	r.deliverSync(ctx, sess, userText, reply)
}

func (r *Responder) respondSearch(ctx context.Context, sess *Session, userText string) {
	var reply string
	apiKey := r.reg.ResolveCredential(sess.ID, CredTavily)
	if apiKey == "" {
		reply = searchUnavailableReply
	} else {
		resp, err := r.search.Search(ctx, apiKey, userText)
		if err != nil {
			r.logger.Warn("web search failed", "session_id", sess.ID, "error", err)
			r.upstreamError("websearch")
			reply = searchFailedReply
		} else {
			reply = websearch.Summary(resp)
		}
	}
	r.deliverSync(ctx, sess, userText, reply)
}

// deliverSync emits the full reply as one chunk cycle, records it in the
// conversation log, and then speaks it.
func (r *Responder) deliverSync(ctx context.Context, sess *Session, userText, reply string) {
	out := sess.Transport()
	out.Send(protocol.NewLLMStart(userText))
	out.Send(protocol.NewLLMChunk(reply, true))
	out.Send(protocol.NewLLMComplete(reply))

	sess.AppendHistory("user", userText)
	sess.AppendHistory("model", reply)

	textQ := make(chan string, 1)
	textQ <- reply
	close(textQ)
	r.runSpeechBridge(ctx, sess, textQ, syncRecvWait)
}

func (r *Responder) respondChat(ctx context.Context, sess *Session, userText string) {
	apiKey := r.reg.ResolveCredential(sess.ID, CredGemini)
	if apiKey == "" {
		r.logger.Warn("no generative credential, skipping reply", "session_id", sess.ID)
		return
	}
	persona := r.reg.ResolveCredential(sess.ID, CredPersona)

	history := sess.History()
	turns := make([]llm.Turn, len(history))
	for i, e := range history {
		turns[i] = llm.Turn{Role: e.Role, Text: e.Text}
	}
	sess.AppendHistory("user", userText)

	out := sess.Transport()
	out.Send(protocol.NewLLMStart(userText))

	textQ := make(chan string, 64)
	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		r.runSpeechBridge(ctx, sess, textQ, streamedRecvWait)
	}()

	full, err := r.chat.Stream(ctx, apiKey, persona, turns, userText, func(chunk string) {
		out.Send(protocol.NewLLMChunk(chunk, false))
		textQ <- chunk
	})
	close(textQ)
	if err != nil {
		r.logger.Warn("generation failed", "session_id", sess.ID, "error", err)
		r.upstreamError("llm")
		out.Send(protocol.NewLLMError(err.Error()))
		<-bridgeDone
		return
	}

	out.Send(protocol.NewLLMComplete(full))
	sess.AppendHistory("model", full)
	<-bridgeDone
}

func (r *Responder) upstreamError(service string) {
	if r.metrics != nil {
		r.metrics.UpstreamErrorsTotal.WithLabelValues(service).Inc()
	}
}
