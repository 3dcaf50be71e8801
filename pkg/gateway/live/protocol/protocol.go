package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// Client → server control messages. Audio arrives as binary websocket frames
// and never passes through DecodeClientMessage.

type ClientSetKeys struct {
	Type string         `json:"type"`
	Keys map[string]any `json:"keys"`
}

// DecodeClientMessage decodes a client text frame. Callers treat a returned
// error as "malformed client message": log at debug level and drop the frame.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case "set_keys":
		var msg ClientSetKeys
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid set_keys frame", "")
		}
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// Server → client event frames.

type ServerTranscription struct {
	Type            string `json:"type"`
	Transcript      string `json:"transcript"`
	EndOfTurn       bool   `json:"end_of_turn"`
	TurnIsFormatted bool   `json:"turn_is_formatted"`
	TurnOrder       int    `json:"turn_order"`
}

type ServerLLMStart struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

type ServerLLMChunk struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	IsComplete bool   `json:"is_complete"`
}

type ServerLLMComplete struct {
	Type         string `json:"type"`
	FullResponse string `json:"full_response"`
	IsComplete   bool   `json:"is_complete"`
}

type ServerLLMError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type ServerAudioChunk struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type ServerAudioFinal struct {
	Type string `json:"type"`
}

type ServerKeysAck struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
}

func NewTranscription(transcript string, endOfTurn, formatted bool, turnOrder int) ServerTranscription {
	return ServerTranscription{
		Type:            "transcription",
		Transcript:      transcript,
		EndOfTurn:       endOfTurn,
		TurnIsFormatted: formatted,
		TurnOrder:       turnOrder,
	}
}

func NewLLMStart(transcript string) ServerLLMStart {
	return ServerLLMStart{Type: "llm_start", Transcript: transcript}
}

func NewLLMChunk(text string, complete bool) ServerLLMChunk {
	return ServerLLMChunk{Type: "llm_chunk", Text: text, IsComplete: complete}
}

func NewLLMComplete(full string) ServerLLMComplete {
	return ServerLLMComplete{Type: "llm_complete", FullResponse: full, IsComplete: true}
}

func NewLLMError(message string) ServerLLMError {
	return ServerLLMError{Type: "llm_error", Error: message}
}

func NewAudioChunk(audioB64 string) ServerAudioChunk {
	return ServerAudioChunk{Type: "murf_audio_chunk", Audio: audioB64}
}

func NewAudioFinal() ServerAudioFinal {
	return ServerAudioFinal{Type: "murf_audio_final"}
}

func NewKeysAck() ServerKeysAck {
	return ServerKeysAck{Type: "keys_ack", OK: true}
}
