package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gocode-grader/internal/config"
	"gocode-grader/internal/grader"
	"gocode-grader/internal/proxy"
)

const (
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	// writeTimeout bounds buffered replies; streaming handlers clear it per request.
	writeTimeout        = 90 * time.Second
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg       config.Config
	grader    *grader.Grader
	forwarder *proxy.Forwarder
	app       *echo.Echo
	address   string
	logger    zerolog.Logger

	// proxyMaxBodyBytes caps the size of an incoming proxy envelope.
	proxyMaxBodyBytes int64
}

// New constructs an HTTP server wired with routing and middleware.
// A nil forwarder leaves the proxy endpoint unregistered.
func New(cfg config.Config, g *grader.Grader, fwd *proxy.Forwarder, logger zerolog.Logger) (*Server, error) {
	if g == nil {
		return nil, errors.New("grader must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Warn().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Int64("latency_ms", v.Latency.Milliseconds()).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:               cfg,
		grader:            g,
		forwarder:         fwd,
		app:               e,
		address:           fmt.Sprintf(":%d", cfg.Server.Port),
		logger:            logger,
		proxyMaxBodyBytes: cfg.Server.Proxy.MaxBodyBytes,
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed echo instance.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port, s.forwarder != nil)
	s.logger.Info().Str("addr", s.address).Msg("starting server")

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info().Msg("server shutdown complete")
		return nil
	})

	return group.Wait()
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.app.GET("/v1/providers", s.handleProviders)
	s.app.POST("/v1/grade", s.handleGrade)
	s.app.POST("/v1/grade/stream", s.handleGradeStream)
	s.app.POST("/v1/test-connection", s.handleTestConnection)
	s.app.POST("/v1/validate-key", s.handleValidateKey)
	if s.forwarder != nil {
		s.app.POST(config.ProxyPath, s.handleProxy)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func printStartupBanner(port int, proxyEnabled bool) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("gocode-grader ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /metrics")
	fmt.Println("  GET  /v1/providers")
	fmt.Println("  POST /v1/grade")
	fmt.Println("  POST /v1/grade/stream")
	fmt.Println("  POST /v1/test-connection")
	fmt.Println("  POST /v1/validate-key")
	if proxyEnabled {
		fmt.Printf("  POST %s\n", config.ProxyPath)
	}
	fmt.Printf("Example:\n  curl http://%s:%d/v1/grade -H 'Content-Type: application/json' -d '{\"provider\":\"ollama\",\"section_title\":\"Arrays\",\"challenge_description\":\"Sum an array\",\"code\":\"const sum = a => a.reduce((x, y) => x + y, 0)\"}'\n\n", host, port)
}
