package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
	ollamaProvider "gocode-grader/internal/provider/ollama"
)

const maxResponseBytes = 10 << 20

// execute performs the single POST for c and returns the success body.
func (g *Grader) execute(ctx context.Context, op string, c call) ([]byte, error) {
	start := time.Now()
	defer func() { callDuration.WithLabelValues(c.key, op).Observe(time.Since(start).Seconds()) }()

	resp, err := g.send(ctx, g.client, c)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportFailure(fmt.Errorf("read response body: %w", err))
	}
	return body, nil
}

// send issues the request directly or wrapped in a proxy envelope.
func (g *Grader) send(ctx context.Context, client *http.Client, c call) (*http.Response, error) {
	target, body, headers := c.endpoint, c.body, c.headers
	if !g.direct {
		envelope := models.ProxyEnvelope{
			Target:  c.endpoint,
			Data:    json.RawMessage(c.body),
			Headers: flattenHeaders(c.headers),
		}
		wrapped, err := json.Marshal(envelope)
		if err != nil {
			return nil, fmt.Errorf("marshal proxy envelope: %w", err)
		}
		target, body, headers = g.proxyURL, wrapped, provider.JSONHeaders()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, transportFailure(fmt.Errorf("create request: %w", err))
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	g.logger.Debug().
		Str("provider", c.key).
		Str("model", c.model).
		Str("endpoint", c.endpoint).
		Bool("direct", g.direct).
		Int("body_bytes", len(c.body)).
		Msg("sending provider request")

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportFailure(err)
	}
	return resp, nil
}

// checkOllamaTags checks that the local runtime answers its model listing.
func (g *Grader) checkOllamaTags(ctx context.Context, generateEndpoint string) error {
	tagsURL, err := ollamaProvider.TagsURL(generateEndpoint)
	if err != nil {
		return transportFailure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tagsURL, nil)
	if err != nil {
		return transportFailure(fmt.Errorf("create request: %w", err))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}

// errorFromResponse normalizes a non-2xx vendor or proxy response.
func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	cause := fmt.Errorf("request failed with status code %d", resp.StatusCode)
	return &provider.TransportError{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body, cause),
		Err:        cause,
	}
}

// transportFailure wraps errors that occurred before any response arrived.
func transportFailure(err error) error {
	return &provider.TransportError{Message: errorMessage(nil, err), Err: err}
}

// errorMessage picks the most specific explanation available: the vendor's
// error.message, then message, then a string error field, then the transport error.
func errorMessage(body []byte, cause error) string {
	if len(body) > 0 && gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "message", "error"} {
			if v := gjson.GetBytes(body, path); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
				return v.String()
			}
		}
	}
	if cause != nil && strings.TrimSpace(cause.Error()) != "" {
		return cause.Error()
	}
	return provider.FallbackErrorMessage
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}
