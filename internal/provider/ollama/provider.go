package ollama

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/tidwall/gjson"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
)

const tagsPath = "/api/tags"

// Strategy returns the adapter for a local Ollama server's /api/generate endpoint.
func Strategy() provider.Strategy {
	return provider.Strategy{
		BuildBody: func(model string, prompt models.Prompt) (any, error) {
			return BuildGeneratePayload(model, prompt, false)
		},
		Headers: func(_, _ string) http.Header {
			return provider.JSONHeaders()
		},
		Extract: extractText,
	}
}

// BuildGeneratePayload renders a generate request with family-specific options.
func BuildGeneratePayload(model string, prompt models.Prompt, stream bool) (api.GenerateRequest, error) {
	if strings.TrimSpace(prompt.User) == "" {
		return api.GenerateRequest{}, errors.New("ollama request requires a prompt")
	}
	return api.GenerateRequest{
		Model:   model,
		Prompt:  prompt.Combined(),
		Stream:  &stream,
		Options: ProfileFor(model).Options(prompt.MaxTokens),
	}, nil
}

func extractText(body []byte, model string) (string, error) {
	if reported := gjson.GetBytes(body, "model").String(); reported != "" {
		model = reported
	}
	p := ProfileFor(model)
	field := gjson.GetBytes(body, p.ResponseField)
	if !field.Exists() {
		return "", fmt.Errorf("%w: ollama response missing %q", provider.ErrMalformedResponse, p.ResponseField)
	}
	text := field.String()
	if p.RequiresRepair {
		text = Repair(p.Repair, text)
	}
	return text, nil
}

// TagsURL derives the model listing endpoint from the generate endpoint.
func TagsURL(generateEndpoint string) (string, error) {
	u, err := url.Parse(generateEndpoint)
	if err != nil {
		return "", fmt.Errorf("parse ollama endpoint: %w", err)
	}
	u.Path = tagsPath
	u.RawQuery = ""
	return u.String(), nil
}
