package grader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
	ollamaProvider "gocode-grader/internal/provider/ollama"
)

const (
	opGrade      = "grade"
	opConnection = "connection"
	opStream     = "stream"
)

// Options configure how a Grader reaches vendors.
type Options struct {
	// Direct sends requests straight to vendor endpoints; otherwise they go through ProxyURL.
	Direct     bool
	ProxyURL   string
	HTTPClient *http.Client

	// StreamingClient serves StreamGrading and carries no overall Timeout; the
	// caller's context bounds the stream. HTTPClient is used when nil.
	StreamingClient *http.Client
	Logger          zerolog.Logger
}

// Grader turns grading requests into exactly one vendor call each.
type Grader struct {
	registry   *provider.Registry
	strategies map[models.Family]provider.Strategy
	client     *http.Client
	streaming  *http.Client
	direct     bool
	proxyURL   string
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// New constructs a grader backed by the registry and family strategies.
func New(registry *provider.Registry, strategies map[models.Family]provider.Strategy, opts Options) (*Grader, error) {
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client must not be nil")
	}
	if !opts.Direct && strings.TrimSpace(opts.ProxyURL) == "" {
		return nil, errors.New("proxy url is required when not calling vendors directly")
	}
	for _, family := range []models.Family{
		models.FamilyClaude, models.FamilyOpenAI, models.FamilyGeneric,
		models.FamilyGemini, models.FamilyOllama, models.FamilyCustom,
	} {
		if _, ok := strategies[family]; !ok {
			return nil, fmt.Errorf("no strategy registered for family %q", family)
		}
	}

	streaming := opts.StreamingClient
	if streaming == nil {
		streaming = opts.HTTPClient
	}

	return &Grader{
		registry:   registry,
		strategies: strategies,
		client:     opts.HTTPClient,
		streaming:  streaming,
		direct:     opts.Direct,
		proxyURL:   opts.ProxyURL,
		logger:     opts.Logger,
		tracer:     otel.Tracer("gocode-grader/internal/grader"),
	}, nil
}

// Registry exposes the provider table.
func (g *Grader) Registry() *provider.Registry {
	return g.registry
}

// ResolveEndpoint returns the vendor URL for key.
func (g *Grader) ResolveEndpoint(key, customEndpoint string) (string, error) {
	return g.registry.ResolveEndpoint(key, customEndpoint)
}

// BuildRequestBody renders the vendor payload a grading call would send.
func (g *Grader) BuildRequestBody(req models.GradeRequest) (any, error) {
	d, strategy, err := g.strategyFor(req.Provider)
	if err != nil {
		return nil, err
	}
	model, err := g.registry.ResolveModel(d.Key, req.Version, req.CustomModel)
	if err != nil {
		return nil, err
	}
	return strategy.BuildBody(model, provider.GradingPrompt(req))
}

// BuildHeaders returns the headers for key. Unknown keys degrade to bearer auth.
func (g *Grader) BuildHeaders(key, apiKey, customHeaders string) http.Header {
	_, strategy, err := g.strategyFor(key)
	if err != nil {
		return provider.BearerHeaders(apiKey)
	}
	return strategy.Headers(apiKey, customHeaders)
}

// ExtractResponseText unwraps the plain text of a vendor success body.
func (g *Grader) ExtractResponseText(key string, body []byte) (string, error) {
	d, strategy, err := g.strategyFor(key)
	if err != nil {
		return "", err
	}
	return strategy.Extract(body, d.DefaultModel)
}

// ValidateAPIKey is a local format check; see provider.ValidateAPIKey.
func (g *Grader) ValidateAPIKey(key, apiKey string) bool {
	return provider.ValidateAPIKey(key, apiKey)
}

// SubmitCodeForGrading sends the submission to the selected provider and returns its feedback.
func (g *Grader) SubmitCodeForGrading(ctx context.Context, req models.GradeRequest) (feedback string, err error) {
	ctx, span := g.startSpan(ctx, opGrade, req.Provider)
	defer func() { g.finish(span, req.Provider, opGrade, err) }()

	c, err := g.prepare(req, provider.GradingPrompt(req), false)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("model", c.model))

	body, err := g.execute(ctx, opGrade, c)
	if err != nil {
		return "", err
	}
	return c.strategy.Extract(body, c.model)
}

// TestAPIConnection checks that credentials and endpoint accept a trivial request.
// For the local provider it only checks that the runtime lists its models.
func (g *Grader) TestAPIConnection(ctx context.Context, req models.ConnectionRequest) (ok bool, err error) {
	ctx, span := g.startSpan(ctx, opConnection, req.Provider)
	defer func() { g.finish(span, req.Provider, opConnection, err) }()

	c, err := g.prepare(req.AsGradeRequest(), provider.ConnectionPrompt(), false)
	if err != nil {
		return false, err
	}

	if c.family == models.FamilyOllama {
		if err := g.checkOllamaTags(ctx, c.endpoint); err != nil {
			return false, err
		}
		return true, nil
	}

	if _, err := g.execute(ctx, opConnection, c); err != nil {
		return false, err
	}
	return true, nil
}

// StreamGrading grades through the local provider's streaming API, passing each
// fragment to onChunk, and returns the repaired full text.
//
// The body is read with the streaming client, so the stream ends only when
// Ollama finishes or ctx is done. Callers serving it over HTTP must lift their
// write deadline for the response.
func (g *Grader) StreamGrading(ctx context.Context, req models.GradeRequest, onChunk func(string) error) (feedback string, err error) {
	ctx, span := g.startSpan(ctx, opStream, req.Provider)
	defer func() { g.finish(span, req.Provider, opStream, err) }()

	d, _, err := g.strategyFor(req.Provider)
	if err != nil {
		return "", err
	}
	if d.Family != models.FamilyOllama {
		return "", fmt.Errorf("streaming is only supported for %s, not %s: %w", provider.OllamaKey, d.Key, provider.ErrUnsupportedOperation)
	}

	c, err := g.prepare(req, provider.GradingPrompt(req), true)
	if err != nil {
		return "", err
	}

	start := time.Now()
	defer func() { callDuration.WithLabelValues(c.key, opStream).Observe(time.Since(start).Seconds()) }()

	resp, err := g.send(ctx, g.streaming, c)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errorFromResponse(resp)
	}

	text, err := ollamaProvider.Collect(resp.Body, c.model, onChunk)
	if err != nil {
		return "", &provider.TransportError{Message: err.Error(), Err: err}
	}
	return text, nil
}

// call is one fully prepared vendor request.
type call struct {
	key      string
	family   models.Family
	endpoint string
	model    string
	body     []byte
	headers  http.Header
	strategy provider.Strategy
}

func (g *Grader) prepare(req models.GradeRequest, prompt models.Prompt, stream bool) (call, error) {
	d, strategy, err := g.strategyFor(req.Provider)
	if err != nil {
		return call{}, err
	}

	endpoint, err := g.registry.ResolveEndpoint(d.Key, req.CustomEndpoint)
	if err != nil {
		return call{}, err
	}

	if d.Family != models.FamilyOllama && strings.TrimSpace(req.APIKey) == "" {
		return call{}, fmt.Errorf("%w: provider %s", provider.ErrMissingAPIKey, d.Key)
	}

	model, err := g.registry.ResolveModel(d.Key, req.Version, req.CustomModel)
	if err != nil {
		return call{}, err
	}

	var payload any
	if stream && d.Family == models.FamilyOllama {
		payload, err = ollamaProvider.BuildGeneratePayload(model, prompt, true)
	} else {
		payload, err = strategy.BuildBody(model, prompt)
	}
	if err != nil {
		return call{}, fmt.Errorf("build %s request body: %w", d.Key, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return call{}, fmt.Errorf("marshal payload: %w", err)
	}

	return call{
		key:      d.Key,
		family:   d.Family,
		endpoint: endpoint,
		model:    model,
		body:     body,
		headers:  strategy.Headers(req.APIKey, req.CustomHeaders),
		strategy: strategy,
	}, nil
}

func (g *Grader) strategyFor(key string) (models.Descriptor, provider.Strategy, error) {
	d, err := g.registry.Lookup(key)
	if err != nil {
		return models.Descriptor{}, provider.Strategy{}, err
	}
	strategy, ok := g.strategies[d.Family]
	if !ok {
		return models.Descriptor{}, provider.Strategy{}, fmt.Errorf("%w: no adapter for family %s", provider.ErrUnsupportedProvider, d.Family)
	}
	return d, strategy, nil
}

func (g *Grader) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, "grader."+op, trace.WithAttributes(
		attribute.String("provider", key),
	))
}

func (g *Grader) finish(span trace.Span, key, op string, err error) {
	defer span.End()

	label := key
	if _, lookupErr := g.registry.Lookup(key); lookupErr != nil {
		label = "unknown"
	}
	callsTotal.WithLabelValues(label, op, outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn().Str("provider", key).Str("operation", op).Err(err).Msg("provider call failed")
		return
	}
	g.logger.Debug().Str("provider", key).Str("operation", op).Msg("provider call succeeded")
}
