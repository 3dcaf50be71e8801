// Package llm generates conversational replies with Gemini.
package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultModel   = "gemini-1.5-flash"
	DefaultPersona = "a friendly Buddy who speaks casually and keeps answers short and helpful"
)

// Turn is one prior exchange entry. Role is "user" or "model".
type Turn struct {
	Role string
	Text string
}

type Generator struct {
	model   string
	persona string
}

func NewGenerator(model, persona string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if persona == "" {
		persona = DefaultPersona
	}
	return &Generator{model: model, persona: persona}
}

func (g *Generator) systemInstruction() string {
	return fmt.Sprintf("You are %s. Keep responses brief, natural, and easy to speak aloud. Avoid markdown unless necessary.", g.persona)
}

// Stream generates a reply to userText given the prior history, invoking
// onChunk for each token batch as it arrives. It returns the assembled
// full response. The api key is passed per call so per-session overrides
// take effect without rebuilding the generator.
func (g *Generator) Stream(ctx context.Context, apiKey string, history []Turn, userText string, onChunk func(string)) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("llm: missing api key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("llm: new client: %w", err)
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(userText, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemInstruction(), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		TopP:              genai.Ptr[float32](0.8),
		TopK:              genai.Ptr[float32](40),
		MaxOutputTokens:   2048,
	}

	var full strings.Builder
	for resp, err := range client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return "", fmt.Errorf("llm: stream: %w", err)
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		full.WriteString(text)
		if onChunk != nil {
			onChunk(text)
		}
	}
	return full.String(), nil
}
