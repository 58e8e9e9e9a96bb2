package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
)

// Strategy returns the adapter for the Gemini generateContent REST API.
func Strategy() provider.Strategy {
	return provider.Strategy{
		BuildBody: buildGeneratePayload,
		Headers:   headers,
		Extract:   extractText,
	}
}

type generatePayload struct {
	Model             string           `json:"model"`
	Contents          []*genai.Content `json:"contents"`
	SystemInstruction *genai.Content   `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int32   `json:"maxOutputTokens,omitempty"`
}

func buildGeneratePayload(model string, prompt models.Prompt) (any, error) {
	if strings.TrimSpace(prompt.User) == "" {
		return nil, errors.New("gemini request requires user text")
	}

	payload := generatePayload{
		Model: model,
		Contents: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{{Text: prompt.User}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.2,
			MaxOutputTokens: int32(prompt.MaxTokens),
		},
	}
	if prompt.System != "" {
		payload.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}
	return payload, nil
}

func headers(apiKey, _ string) http.Header {
	h := provider.JSONHeaders()
	h.Set("x-goog-api-key", apiKey)
	return h
}

func extractText(body []byte, _ string) (string, error) {
	var resp genai.GenerateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode gemini response: %v", provider.ErrMalformedResponse, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: gemini response did not include candidates", provider.ErrMalformedResponse)
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil {
		return "", fmt.Errorf("%w: gemini candidate has no content parts", provider.ErrMalformedResponse)
	}
	return content.Parts[0].Text, nil
}
