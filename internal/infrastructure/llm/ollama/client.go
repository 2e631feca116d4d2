package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/doc-simplifier/internal/core/domain"
	"github.com/kirillkom/doc-simplifier/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL       string
	Model         string
	Temperature   float64
	NumPredict    int
	Timeout       time.Duration
	StatusTimeout time.Duration
	// MaxLength caps the characters of input embedded in the prompt when the caller passes no cap.
	MaxLength int
}

func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:11434",
		Model:         "deepseek-r1:70b",
		Temperature:   0.2,
		NumPredict:    2048,
		Timeout:       500 * time.Second,
		StatusTimeout: 10 * time.Second,
		MaxLength:     4000,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = def.BaseURL
	}
	if strings.TrimSpace(out.Model) == "" {
		out.Model = def.Model
	}
	if out.Temperature < 0 {
		out.Temperature = def.Temperature
	}
	if out.NumPredict <= 0 {
		out.NumPredict = def.NumPredict
	}
	if out.Timeout <= 0 {
		out.Timeout = def.Timeout
	}
	if out.StatusTimeout <= 0 {
		out.StatusTimeout = def.StatusTimeout
	}
	if out.MaxLength <= 0 {
		out.MaxLength = def.MaxLength
	}
	return out
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithExecutor routes every call through the retry and circuit breaker executor.
func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(cfg Config, opts ...Option) *Client {
	cfg = cfg.normalize()
	client := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Model() string {
	return c.cfg.Model
}

// Simplify sends one non-streaming generate request and measures its wall clock time.
func (c *Client) Simplify(ctx context.Context, text string, maxLength int) (domain.SimplificationResult, error) {
	if maxLength <= 0 {
		maxLength = c.cfg.MaxLength
	}
	prompt, truncated := buildSimplifyPrompt(text, maxLength)

	reqBody := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.NumPredict,
		},
	}

	start := time.Now()
	simplified, err := c.generate(ctx, reqBody)
	elapsed := time.Since(start)
	if err != nil {
		return domain.SimplificationResult{}, err
	}

	result := domain.NewSimplificationResult(text, simplified, elapsed, truncated, c.cfg.Model)
	result.MaxLength = maxLength
	return result, nil
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	defer cancel()

	var response struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	err := c.execute(ctx, "ollama.tags", func(ctx context.Context) error {
		return c.getJSON(ctx, "/api/tags", &response, "tags")
	})
	if err != nil {
		return nil, wrapInferenceError("ollama tags", err)
	}

	names := make([]string, 0, len(response.Models))
	for _, model := range response.Models {
		names = append(names, model.Name)
	}
	return names, nil
}

func (c *Client) CheckModel(ctx context.Context) (domain.EndpointStatus, error) {
	status := domain.EndpointStatus{
		Endpoint: c.cfg.BaseURL,
		Model:    c.cfg.Model,
	}

	models, err := c.ListModels(ctx)
	if err != nil {
		return status, err
	}
	status.Connected = true
	status.Models = models

	if !hasModel(models, c.cfg.Model) {
		return status, domain.WrapError(
			domain.ErrModelNotFound,
			"ollama tags",
			fmt.Errorf("model %q is not registered", c.cfg.Model),
		)
	}
	status.ModelAvailable = true
	return status, nil
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var text string
	err := c.execute(ctx, "ollama.generate", func(ctx context.Context) error {
		var response struct {
			Response string `json:"response"`
		}
		if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
			return err
		}
		text = response.Response
		return nil
	})
	if err != nil {
		return "", wrapInferenceError("ollama generate", err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyOllamaError)
}

// hasModel matches exact names; an untagged model also matches its ":latest" tag.
func hasModel(models []string, model string) bool {
	for _, name := range models {
		if name == model {
			return true
		}
		if !strings.Contains(model, ":") && name == model+":latest" {
			return true
		}
	}
	return false
}
