package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
)

const defaultTemperature = 0.2

// Strategy returns the adapter for OpenAI and every OpenAI-compatible chat completions API.
func Strategy() provider.Strategy {
	return provider.Strategy{
		BuildBody: func(model string, prompt models.Prompt) (any, error) {
			return BuildChatPayload(model, prompt)
		},
		Headers: func(apiKey, _ string) http.Header {
			return provider.BearerHeaders(apiKey)
		},
		Extract: func(body []byte, _ string) (string, error) {
			return ExtractChatText(body)
		},
	}
}

// BuildChatPayload renders a chat completions request with an optional system message.
func BuildChatPayload(model string, prompt models.Prompt) (goopenai.ChatCompletionRequest, error) {
	if strings.TrimSpace(prompt.User) == "" {
		return goopenai.ChatCompletionRequest{}, errors.New("message content must not be empty")
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	return goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   prompt.MaxTokens,
		Temperature: defaultTemperature,
	}, nil
}

// ExtractChatText returns the first choice's message content.
func ExtractChatText(body []byte) (string, error) {
	var resp goopenai.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode chat response: %v", provider.ErrMalformedResponse, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat response did not include choices", provider.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
