package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeClientMessageSetKeys(t *testing.T) {
	raw := []byte(`{"type":"set_keys","keys":{"gemini_api_key":"abc","tavily_api_key":123}}`)
	msg, err := DecodeClientMessage(raw)
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	sk, ok := msg.(ClientSetKeys)
	if !ok {
		t.Fatalf("message type=%T, want ClientSetKeys", msg)
	}
	if got := sk.Keys["gemini_api_key"]; got != "abc" {
		t.Fatalf("gemini_api_key=%v, want abc", got)
	}
	if _, ok := sk.Keys["tavily_api_key"]; !ok {
		t.Fatalf("tavily_api_key missing from decoded keys")
	}
}

func TestDecodeClientMessageRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{"type":`},
		{"missing type", `{"keys":{}}`},
		{"unknown type", `{"type":"start_recording"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeClientMessage([]byte(tc.raw)); err == nil {
				t.Fatalf("DecodeClientMessage(%q) err=nil, want error", tc.raw)
			}
		})
	}
}

func TestServerFrameShapes(t *testing.T) {
	b, err := json.Marshal(NewTranscription("hello there", true, true, 3))
	if err != nil {
		t.Fatalf("marshal transcription: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal transcription: %v", err)
	}
	if got["type"] != "transcription" {
		t.Fatalf("type=%v, want transcription", got["type"])
	}
	if got["end_of_turn"] != true || got["turn_is_formatted"] != true {
		t.Fatalf("turn flags=%v/%v, want true/true", got["end_of_turn"], got["turn_is_formatted"])
	}
	if got["turn_order"] != float64(3) {
		t.Fatalf("turn_order=%v, want 3", got["turn_order"])
	}

	b, err = json.Marshal(NewAudioFinal())
	if err != nil {
		t.Fatalf("marshal audio final: %v", err)
	}
	if string(b) != `{"type":"murf_audio_final"}` {
		t.Fatalf("audio final frame=%s", b)
	}

	b, err = json.Marshal(NewLLMComplete("all done"))
	if err != nil {
		t.Fatalf("marshal llm complete: %v", err)
	}
	var complete map[string]any
	if err := json.Unmarshal(b, &complete); err != nil {
		t.Fatalf("unmarshal llm complete: %v", err)
	}
	if complete["full_response"] != "all done" || complete["is_complete"] != true {
		t.Fatalf("llm_complete frame=%v", complete)
	}
}
