package custom

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
	"gocode-grader/internal/provider/openai"
)

// Strategy returns the escape-hatch adapter: OpenAI-shaped requests, caller headers,
// and best-effort response extraction.
func Strategy() provider.Strategy {
	return provider.Strategy{
		BuildBody: func(model string, prompt models.Prompt) (any, error) {
			return openai.BuildChatPayload(model, prompt)
		},
		Headers: Headers,
		Extract: func(body []byte, _ string) (string, error) {
			return ExtractText(body), nil
		},
	}
}

// Headers parses customHeaders as a JSON object. An empty or unparseable value
// degrades to bearer auth with apiKey.
func Headers(apiKey, customHeaders string) http.Header {
	parsed := gjson.Parse(customHeaders)
	if strings.TrimSpace(customHeaders) == "" || !gjson.Valid(customHeaders) || !parsed.IsObject() {
		return fallbackHeaders(apiKey)
	}

	h := make(http.Header)
	parsed.ForEach(func(key, value gjson.Result) bool {
		h.Set(key.String(), value.String())
		return true
	})
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	return h
}

func fallbackHeaders(apiKey string) http.Header {
	if apiKey == "" {
		return provider.JSONHeaders()
	}
	return provider.BearerHeaders(apiKey)
}

type shape struct {
	name string
	path string
}

// Tried in order; the first string value wins.
var shapes = []shape{
	{name: "openai-chat", path: "choices.0.message.content"},
	{name: "openai-text", path: "choices.0.text"},
	{name: "claude", path: "content.0.text"},
	{name: "gemini", path: "candidates.0.content.parts.0.text"},
	{name: "response", path: "response"},
	{name: "text", path: "text"},
	{name: "output", path: "output"},
	{name: "content", path: "content"},
	{name: "result", path: "result"},
	{name: "answer", path: "answer"},
	{name: "completion", path: "completion"},
	{name: "generated_text", path: "generated_text"},
	{name: "hf-generated_text", path: "0.generated_text"},
	{name: "message", path: "message"},
}

// ExtractText guesses the response shape. When nothing matches it returns the
// whole envelope as text; it never fails.
func ExtractText(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, s := range shapes {
			if r := gjson.GetBytes(body, s.path); r.Type == gjson.String {
				return r.String()
			}
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, body); err == nil {
			return compact.String()
		}
	}
	return strings.TrimSpace(string(body))
}
