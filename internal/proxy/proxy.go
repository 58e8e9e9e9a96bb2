package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"gocode-grader/internal/models"
)

// ErrTargetNotAllowed is returned when an envelope targets a host outside the allowlist.
var ErrTargetNotAllowed = errors.New("proxy target host is not allowed")

const (
	defaultMaxResponseBytes = 10 << 20
	relayBufferSize         = 32 << 10
)

// Forwarder relays proxy envelopes to allowlisted vendor hosts.
type Forwarder struct {
	client  *http.Client
	allowed map[string]struct{}
	logger  zerolog.Logger
}

// NewForwarder constructs a forwarder permitting the given hosts (host or host:port).
func NewForwarder(client *http.Client, hosts []string, logger zerolog.Logger) (*Forwarder, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		allowed[h] = struct{}{}
	}
	if len(allowed) == 0 {
		return nil, errors.New("proxy allowlist must not be empty")
	}
	return &Forwarder{client: client, allowed: allowed, logger: logger}, nil
}

// Allowed reports whether target may be forwarded to.
func (f *Forwarder) Allowed(target string) bool {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	if _, ok := f.allowed[host]; ok {
		return true
	}
	_, ok := f.allowed[strings.ToLower(u.Hostname())]
	return ok
}

// Forward posts the envelope payload to its target and returns the upstream
// response with its body unread. Upstream error statuses are returned as a
// response, not an error. The caller must close the body.
func (f *Forwarder) Forward(ctx context.Context, env models.ProxyEnvelope) (*http.Response, error) {
	if !f.Allowed(env.Target) {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotAllowed, env.Target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.Target, bytes.NewReader(env.Data))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	for name, value := range env.Headers {
		req.Header.Set(name, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward to %s: %w", req.URL.Host, err)
	}

	f.logger.Debug().
		Str("host", req.URL.Host).
		Int("status", resp.StatusCode).
		Msg("proxied provider request")

	return resp, nil
}

// Relay copies an upstream body to w as it arrives, flushing after every read
// when w supports it. At most defaultMaxResponseBytes are copied.
func Relay(w io.Writer, body io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	src := io.LimitReader(body, defaultMaxResponseBytes)
	buf := make([]byte, relayBufferSize)

	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, fmt.Errorf("write relayed body: %w", err)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read upstream body: %w", readErr)
		}
	}
}
