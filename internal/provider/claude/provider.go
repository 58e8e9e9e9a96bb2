package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
)

const apiVersion = "2023-06-01"

// Strategy returns the Anthropic Messages API adapter.
func Strategy() provider.Strategy {
	return provider.Strategy{
		BuildBody: buildMessagePayload,
		Headers:   headers,
		Extract:   extractText,
	}
}

type messagePayload struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildMessagePayload(model string, prompt models.Prompt) (any, error) {
	if strings.TrimSpace(prompt.User) == "" {
		return nil, errors.New("claude request requires a user message")
	}
	if prompt.MaxTokens <= 0 {
		return nil, errors.New("claude requests require a positive max_tokens value")
	}

	temperature := 0.2
	return messagePayload{
		Model:       model,
		System:      prompt.System,
		MaxTokens:   prompt.MaxTokens,
		Temperature: &temperature,
		Messages: []message{
			{Role: "user", Content: prompt.User},
		},
	}, nil
}

func headers(apiKey, _ string) http.Header {
	h := provider.JSONHeaders()
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", apiVersion)
	return h
}

type messageResponse struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func extractText(body []byte, _ string) (string, error) {
	var resp messageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode claude response: %v", provider.ErrMalformedResponse, err)
	}
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: claude response missing text content block", provider.ErrMalformedResponse)
}
