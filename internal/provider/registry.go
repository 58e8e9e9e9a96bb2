package provider

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"gocode-grader/internal/models"
)

// CustomKey is the escape-hatch provider that defers endpoint, model and headers to the caller.
const CustomKey = "other"

// OllamaKey is the local, unauthenticated provider.
const OllamaKey = "ollama"

// LatestVersion is the version sentinel meaning "use the registry default".
const LatestVersion = "latest"

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	openAIChatURL        = "https://api.openai.com/v1/chat/completions"
	groqChatURL          = "https://api.groq.com/openai/v1/chat/completions"
	deepSeekChatURL      = "https://api.deepseek.com/chat/completions"
)

var builtinDescriptors = []models.Descriptor{
	{Key: "claude-3-5-sonnet", Endpoint: anthropicMessagesURL, DefaultModel: "claude-3-5-sonnet-20241022"},
	{Key: "claude-3-5-haiku", Endpoint: anthropicMessagesURL, DefaultModel: "claude-3-5-haiku-20241022"},
	{Key: "claude-3-opus", Endpoint: anthropicMessagesURL, DefaultModel: "claude-3-opus-20240229"},
	{Key: "gpt-4o", Endpoint: openAIChatURL, DefaultModel: "gpt-4o"},
	{Key: "gpt-4o-mini", Endpoint: openAIChatURL, DefaultModel: "gpt-4o-mini"},
	{Key: "gpt-4-turbo", Endpoint: openAIChatURL, DefaultModel: "gpt-4-turbo"},
	{Key: "gpt-3.5-turbo", Endpoint: openAIChatURL, DefaultModel: "gpt-3.5-turbo"},
	{Key: "gemini-1.5-pro", Endpoint: "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:generateContent", DefaultModel: "gemini-1.5-pro"},
	{Key: "mistral-large", Endpoint: "https://api.mistral.ai/v1/chat/completions", DefaultModel: "mistral-large-latest"},
	{Key: "codestral", Endpoint: "https://codestral.mistral.ai/v1/chat/completions", DefaultModel: "codestral-latest"},
	{Key: "deepseek-chat", Endpoint: deepSeekChatURL, DefaultModel: "deepseek-chat"},
	{Key: "deepseek-coder", Endpoint: deepSeekChatURL, DefaultModel: "deepseek-coder"},
	{Key: "llama-3.1-70b", Endpoint: groqChatURL, DefaultModel: "llama-3.1-70b-versatile"},
	{Key: "mixtral-8x7b", Endpoint: groqChatURL, DefaultModel: "mixtral-8x7b-32768"},
	{Key: "grok-beta", Endpoint: "https://api.x.ai/v1/chat/completions", DefaultModel: "grok-beta"},
	{Key: "perplexity-sonar", Endpoint: "https://api.perplexity.ai/chat/completions", DefaultModel: "llama-3.1-sonar-large-128k-online"},
	{Key: "together-llama-3", Endpoint: "https://api.together.xyz/v1/chat/completions", DefaultModel: "meta-llama/Llama-3-70b-chat-hf"},
	{Key: "openrouter", Endpoint: "https://openrouter.ai/api/v1/chat/completions", DefaultModel: "openai/gpt-4o"},
	{Key: "qwen-coder", Endpoint: "https://dashscope-intl.aliyuncs.com/compatible-mode/v1/chat/completions", DefaultModel: "qwen-coder-plus"},
	{Key: OllamaKey, Endpoint: "http://localhost:11434/api/generate", DefaultModel: "llama3"},
}

// Strategy bundles the pure functions that adapt one provider family.
type Strategy struct {
	// BuildBody renders the vendor request payload for the resolved model.
	BuildBody func(model string, prompt models.Prompt) (any, error)
	// Headers returns the auth and content headers; it never fails.
	Headers func(apiKey, customHeaders string) http.Header
	// Extract unwraps plain text from a vendor success body.
	Extract func(body []byte, model string) (string, error)
}

// Classify maps a provider key to its family using the key naming rules.
func Classify(key string) models.Family {
	switch {
	case strings.HasPrefix(key, "claude"):
		return models.FamilyClaude
	case strings.HasPrefix(key, "gpt"):
		return models.FamilyOpenAI
	case key == OllamaKey:
		return models.FamilyOllama
	case key == "gemini-1.5-pro":
		return models.FamilyGemini
	case key == CustomKey:
		return models.FamilyCustom
	default:
		return models.FamilyGeneric
	}
}

// Registry is the read-only table of known providers.
type Registry struct {
	descriptors map[string]models.Descriptor
}

// NewRegistry constructs the provider table, applying optional endpoint overrides once.
func NewRegistry(endpointOverrides map[string]string) (*Registry, error) {
	r := &Registry{descriptors: make(map[string]models.Descriptor, len(builtinDescriptors))}
	for _, d := range builtinDescriptors {
		d.Family = Classify(d.Key)
		r.descriptors[d.Key] = d
	}

	for key, endpoint := range endpointOverrides {
		d, ok := r.descriptors[key]
		if !ok {
			return nil, fmt.Errorf("%w: endpoint override for %q", ErrUnsupportedProvider, key)
		}
		if !isHTTPURL(endpoint) {
			return nil, fmt.Errorf("endpoint override for %q must be an absolute http(s) url, got %q", key, endpoint)
		}
		d.Endpoint = endpoint
		r.descriptors[key] = d
	}

	return r, nil
}

// Lookup returns the descriptor for a provider key. The custom key resolves to a
// descriptor without endpoint or model.
func (r *Registry) Lookup(key string) (models.Descriptor, error) {
	if key == CustomKey {
		return models.Descriptor{Key: CustomKey, Family: models.FamilyCustom}, nil
	}
	d, ok := r.descriptors[key]
	if !ok {
		return models.Descriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, key)
	}
	return d, nil
}

// Descriptors lists registered providers sorted by key.
func (r *Registry) Descriptors() []models.Descriptor {
	out := make([]models.Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Hosts returns the distinct endpoint hosts of registered providers.
func (r *Registry) Hosts() []string {
	seen := make(map[string]struct{})
	var hosts []string
	for _, d := range r.Descriptors() {
		u, err := url.Parse(d.Endpoint)
		if err != nil {
			continue
		}
		if _, ok := seen[u.Host]; ok {
			continue
		}
		seen[u.Host] = struct{}{}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

// ResolveEndpoint returns the URL a request for key must be sent to.
func (r *Registry) ResolveEndpoint(key, customEndpoint string) (string, error) {
	if key == CustomKey {
		endpoint := strings.TrimSpace(customEndpoint)
		if endpoint == "" {
			return "", fmt.Errorf("%w: %s requires a custom endpoint", ErrUnsupportedProvider, CustomKey)
		}
		if !isHTTPURL(endpoint) {
			return "", fmt.Errorf("%w: custom endpoint %q is not an absolute http(s) url", ErrUnsupportedProvider, endpoint)
		}
		return endpoint, nil
	}

	d, err := r.Lookup(key)
	if err != nil {
		return "", err
	}
	return d.Endpoint, nil
}

// ResolveModel applies the precedence custom model > explicit version > registry default.
func (r *Registry) ResolveModel(key, version, customModel string) (string, error) {
	if key == CustomKey {
		if m := strings.TrimSpace(customModel); m != "" {
			return m, nil
		}
		if v := strings.TrimSpace(version); v != "" && v != LatestVersion {
			return v, nil
		}
		return "", ErrMissingModel
	}

	d, err := r.Lookup(key)
	if err != nil {
		return "", err
	}
	if v := strings.TrimSpace(version); v != "" && v != LatestVersion {
		return v, nil
	}
	return d.DefaultModel, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
