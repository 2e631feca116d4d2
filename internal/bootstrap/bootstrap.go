package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/doc-simplifier/internal/config"
	"github.com/kirillkom/doc-simplifier/internal/core/ports"
	"github.com/kirillkom/doc-simplifier/internal/core/usecase"
	"github.com/kirillkom/doc-simplifier/internal/infrastructure/extractor/document"
	"github.com/kirillkom/doc-simplifier/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/doc-simplifier/internal/infrastructure/resilience"
	"github.com/kirillkom/doc-simplifier/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/doc-simplifier/internal/observability/metrics"
	"github.com/kirillkom/doc-simplifier/internal/observability/tracing"
)

type App struct {
	Config config.Config

	SimplifyUC ports.DocumentSimplifier
	StatusUC   ports.EndpointStatusChecker
	Metrics    *metrics.HTTPServerMetrics

	closeFn func()
}

// New wires the simplifier for the given service name. The name labels
// traces and metrics so the API and the CLI stay distinguishable.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: service,
		Protocol:    cfg.TracingProtocol,
		SampleRatio: cfg.TracingSampleRatio,
	}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	storage, err := localfs.New(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	appMetrics := metrics.NewHTTPServerMetrics(service)
	policy := resilienceConfig(cfg)
	slog.Info("inference_resilience_configured", "model", cfg.OllamaModel, "policy", policy)
	executor := resilience.NewExecutor(policy, resilience.WithObserver(appMetrics))
	ollamaClient := ollama.New(ollama.Config{
		BaseURL:       cfg.OllamaURL,
		Model:         cfg.OllamaModel,
		Temperature:   cfg.OllamaTemperature,
		NumPredict:    cfg.OllamaNumPredict,
		Timeout:       cfg.OllamaTimeout(),
		StatusTimeout: cfg.OllamaStatusTimeout(),
		MaxLength:     cfg.SimplifyMaxLength,
	}, ollama.WithExecutor(executor))

	extractor := document.NewExtractor()

	simplifyUC := usecase.NewSimplifyUseCase(storage, extractor, ollamaClient, cfg.SimplifyMinLength)
	statusUC := usecase.NewStatusUseCase(ollamaClient)

	return &App{
		Config: cfg,

		SimplifyUC: simplifyUC,
		StatusUC:   statusUC,
		Metrics:    appMetrics,

		closeFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				slog.Warn("tracing_shutdown_failed", "error", err)
			}
		},
	}, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.OllamaRetryMaxAttempts
	out.RetryInitialBackoff = time.Duration(cfg.OllamaRetryInitialBackoffMS) * time.Millisecond
	out.RetryMaxBackoff = time.Duration(cfg.OllamaRetryMaxBackoffMS) * time.Millisecond
	out.BreakerEnabled = cfg.OllamaBreakerEnabled
	if cfg.OllamaBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.OllamaBreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.OllamaBreakerFailureRatio
	out.BreakerOpenTimeout = time.Duration(cfg.OllamaBreakerOpenTimeoutSecs) * time.Second
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
