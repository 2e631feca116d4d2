package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	APIPort   string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=json text"`

	OllamaURL                  string  `validate:"required,url"`
	OllamaModel                string  `validate:"required"`
	OllamaTemperature          float64 `validate:"gte=0,lte=2"`
	OllamaNumPredict           int     `validate:"gt=0"`
	OllamaTimeoutSeconds       int     `validate:"gt=0"`
	OllamaStatusTimeoutSeconds int     `validate:"gt=0"`

	OllamaRetryMaxAttempts       int `validate:"gte=1,lte=10"`
	OllamaRetryInitialBackoffMS  int `validate:"gte=0"`
	OllamaRetryMaxBackoffMS      int `validate:"gte=0"`
	OllamaBreakerEnabled         bool
	OllamaBreakerMinRequests     int     `validate:"gte=0"`
	OllamaBreakerFailureRatio    float64 `validate:"gte=0,lte=1"`
	OllamaBreakerOpenTimeoutSecs int     `validate:"gte=0"`

	SimplifyMaxLength int `validate:"gt=0"`
	SimplifyMinLength int `validate:"gte=0"`

	UploadDir      string `validate:"required"`
	MaxUploadBytes int64  `validate:"gt=0"`

	APIRateLimitRPS       float64 `validate:"gte=0"`
	APIRateLimitBurst     int     `validate:"gte=0"`
	APIMaxInFlight        int     `validate:"gte=0"`
	APIQueueTimeoutMillis int     `validate:"gte=0"`

	TracingEnabled     bool
	TracingProtocol    string  `validate:"omitempty,oneof=grpc http/protobuf"`
	TracingSampleRatio float64 `validate:"gte=0,lte=1"`
}

func Defaults() Config {
	return Config{
		APIPort:   "8080",
		LogLevel:  "info",
		LogFormat: "json",

		OllamaURL:                  "http://localhost:11434",
		OllamaModel:                "deepseek-r1:70b",
		OllamaTemperature:          0.2,
		OllamaNumPredict:           2048,
		OllamaTimeoutSeconds:       500,
		OllamaStatusTimeoutSeconds: 10,

		OllamaRetryMaxAttempts:       1,
		OllamaRetryInitialBackoffMS:  500,
		OllamaRetryMaxBackoffMS:      5000,
		OllamaBreakerEnabled:         true,
		OllamaBreakerMinRequests:     5,
		OllamaBreakerFailureRatio:    0.6,
		OllamaBreakerOpenTimeoutSecs: 30,

		SimplifyMaxLength: 4000,
		SimplifyMinLength: 10,

		UploadDir:      "uploads",
		MaxUploadBytes: 25 << 20,

		APIRateLimitRPS:       0,
		APIRateLimitBurst:     0,
		APIMaxInFlight:        4,
		APIQueueTimeoutMillis: 250,

		TracingEnabled:     false,
		TracingProtocol:    "http/protobuf",
		TracingSampleRatio: 1,
	}
}

// Load resolves configuration from defaults, the optional CONFIG_FILE overlay
// and environment variables, in that order.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
		ApplyFile(&cfg, fc)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = mustEnv("LOG_FORMAT", cfg.LogFormat)

	cfg.OllamaURL = mustEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaModel = mustEnv("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.OllamaTemperature = mustEnvFloat("OLLAMA_TEMPERATURE", cfg.OllamaTemperature)
	cfg.OllamaNumPredict = mustEnvInt("OLLAMA_NUM_PREDICT", cfg.OllamaNumPredict)
	cfg.OllamaTimeoutSeconds = mustEnvInt("OLLAMA_TIMEOUT_SECONDS", cfg.OllamaTimeoutSeconds)
	cfg.OllamaStatusTimeoutSeconds = mustEnvInt("OLLAMA_STATUS_TIMEOUT_SECONDS", cfg.OllamaStatusTimeoutSeconds)

	cfg.OllamaRetryMaxAttempts = mustEnvInt("OLLAMA_RETRY_MAX_ATTEMPTS", cfg.OllamaRetryMaxAttempts)
	cfg.OllamaRetryInitialBackoffMS = mustEnvInt("OLLAMA_RETRY_INITIAL_BACKOFF_MS", cfg.OllamaRetryInitialBackoffMS)
	cfg.OllamaRetryMaxBackoffMS = mustEnvInt("OLLAMA_RETRY_MAX_BACKOFF_MS", cfg.OllamaRetryMaxBackoffMS)
	cfg.OllamaBreakerEnabled = mustEnvBool("OLLAMA_BREAKER_ENABLED", cfg.OllamaBreakerEnabled)
	cfg.OllamaBreakerMinRequests = mustEnvInt("OLLAMA_BREAKER_MIN_REQUESTS", cfg.OllamaBreakerMinRequests)
	cfg.OllamaBreakerFailureRatio = mustEnvFloat("OLLAMA_BREAKER_FAILURE_RATIO", cfg.OllamaBreakerFailureRatio)
	cfg.OllamaBreakerOpenTimeoutSecs = mustEnvInt("OLLAMA_BREAKER_OPEN_TIMEOUT_SECONDS", cfg.OllamaBreakerOpenTimeoutSecs)

	cfg.SimplifyMaxLength = mustEnvInt("SIMPLIFY_MAX_LENGTH", cfg.SimplifyMaxLength)
	cfg.SimplifyMinLength = mustEnvInt("SIMPLIFY_MIN_LENGTH", cfg.SimplifyMinLength)

	cfg.UploadDir = mustEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.MaxUploadBytes = int64(mustEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))

	cfg.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)
	cfg.APIQueueTimeoutMillis = mustEnvInt("API_QUEUE_TIMEOUT_MS", cfg.APIQueueTimeoutMillis)

	cfg.TracingEnabled = mustEnvBool("OTEL_ENABLED", cfg.TracingEnabled)
	cfg.TracingProtocol = mustEnv("OTEL_EXPORTER_OTLP_PROTOCOL", cfg.TracingProtocol)
	cfg.TracingSampleRatio = mustEnvFloat("OTEL_TRACES_SAMPLE_RATIO", cfg.TracingSampleRatio)

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.TracingProtocol = strings.ToLower(strings.TrimSpace(cfg.TracingProtocol))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.SimplifyMinLength > c.SimplifyMaxLength {
		return fmt.Errorf("invalid config: SIMPLIFY_MIN_LENGTH %d exceeds SIMPLIFY_MAX_LENGTH %d", c.SimplifyMinLength, c.SimplifyMaxLength)
	}
	return nil
}

func (c Config) OllamaTimeout() time.Duration {
	return time.Duration(c.OllamaTimeoutSeconds) * time.Second
}

func (c Config) OllamaStatusTimeout() time.Duration {
	return time.Duration(c.OllamaStatusTimeoutSeconds) * time.Second
}

func (c Config) APIQueueTimeout() time.Duration {
	return time.Duration(c.APIQueueTimeoutMillis) * time.Millisecond
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
