package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiModelPrefix marks an LLM model entry served by Gemini instead of the
// OpenAI-compatible endpoint, e.g. "gemini/gemini-2.5-flash".
const GeminiModelPrefix = "gemini/"

func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

type geminiChat struct {
	client *genai.Client
}

// NewGeminiChat adapts a Gemini client to ChatCompleter.
func NewGeminiChat(client *genai.Client) ChatCompleter {
	return &geminiChat{client: client}
}

func (g *geminiChat) Complete(ctx context.Context, req ChatRequest) (string, error) {
	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}

	var prompt []string
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
			continue
		}
		prompt = append(prompt, m.Content)
	}

	model := strings.TrimPrefix(req.Model, GeminiModelPrefix)
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(strings.Join(prompt, "\n\n")), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	return text, nil
}
