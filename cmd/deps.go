package cmd

import (
	"flag"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"gocode-grader/internal/config"
	"gocode-grader/internal/grader"
	"gocode-grader/internal/logging"
	"gocode-grader/internal/provider"
	providerfactory "gocode-grader/internal/provider/factory"
)

type deps struct {
	registry  *provider.Registry
	// streaming reads bodies until the request context ends; the proxy relays with it.
	streaming *http.Client
	grader    *grader.Grader
}

func buildDeps(cfg config.Config, logger zerolog.Logger) (deps, error) {
	registry, err := provider.NewRegistry(cfg.Endpoints)
	if err != nil {
		return deps{}, err
	}

	streaming := providerfactory.NewStreamingHTTPClient(cfg.Client.Timeout)

	opts := grader.Options{
		Direct:          cfg.Client.Direct(),
		HTTPClient:      providerfactory.NewHTTPClient(cfg.Client.Timeout),
		StreamingClient: streaming,
		Logger:          logger,
	}
	if !opts.Direct {
		opts.ProxyURL = cfg.Client.ProxyURL()
	}

	g, err := grader.New(registry, providerfactory.Strategies(), opts)
	if err != nil {
		return deps{}, err
	}

	return deps{registry: registry, streaming: streaming, grader: g}, nil
}

// loadClientConfig returns the file configuration when a path is given, defaults otherwise.
func loadClientConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// cliDeps wires a grader for one-shot commands, logging to stderr.
func cliDeps(cfgPath string) (deps, error) {
	cfg, err := loadClientConfig(cfgPath)
	if err != nil {
		return deps{}, err
	}
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return deps{}, err
	}
	return buildDeps(cfg, logger)
}

// providerFlags are shared by commands that target one provider.
type providerFlags struct {
	configPath     string
	provider       string
	version        string
	customModel    string
	customEndpoint string
	customHeaders  string
}

func (p *providerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&p.configPath, "config", "", "path to configuration file")
	fs.StringVar(&p.provider, "provider", "", "provider key")
	fs.StringVar(&p.version, "version", "", "model id overriding the provider default")
	fs.StringVar(&p.customModel, "custom-model", "", "model id for the \"other\" provider")
	fs.StringVar(&p.customEndpoint, "custom-endpoint", "", "endpoint for the \"other\" provider")
	fs.StringVar(&p.customHeaders, "custom-headers", "", "JSON object of headers for the \"other\" provider")
}
