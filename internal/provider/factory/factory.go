package factory

import (
	"net"
	"net/http"
	"time"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
	claudeProvider "gocode-grader/internal/provider/claude"
	customProvider "gocode-grader/internal/provider/custom"
	geminiProvider "gocode-grader/internal/provider/gemini"
	ollamaProvider "gocode-grader/internal/provider/ollama"
	openaiProvider "gocode-grader/internal/provider/openai"
)

const (
	DefaultHTTPTimeout     = 60 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// Strategies returns the adapter for every provider family.
func Strategies() map[models.Family]provider.Strategy {
	chat := openaiProvider.Strategy()
	return map[models.Family]provider.Strategy{
		models.FamilyClaude:  claudeProvider.Strategy(),
		models.FamilyOpenAI:  chat,
		models.FamilyGeneric: chat,
		models.FamilyGemini:  geminiProvider.Strategy(),
		models.FamilyOllama:  ollamaProvider.Strategy(),
		models.FamilyCustom:  customProvider.Strategy(),
	}
}

// NewHTTPClient builds the outbound client for buffered grading calls.
// Timeout bounds the whole exchange, including reading the body.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(0),
	}
}

// NewStreamingHTTPClient builds a client for responses that arrive over a long
// time, such as NDJSON generation streams and proxied bodies. Only the wait for
// response headers is bounded; the body is read until the caller's context ends.
func NewStreamingHTTPClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = DefaultHTTPTimeout
	}
	return &http.Client{Transport: newTransport(headerTimeout)}
}

func newTransport(responseHeaderTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}
}
