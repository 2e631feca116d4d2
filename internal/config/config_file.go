package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the YAML schema referenced by CONFIG_FILE. Pointer fields
// distinguish "unset" from an explicit zero or false.
type FileConfig struct {
	API struct {
		Port           string   `yaml:"port"`
		RateLimitRPS   *float64 `yaml:"rateLimitRPS"`
		RateLimitBurst *int     `yaml:"rateLimitBurst"`
		MaxInFlight    *int     `yaml:"maxInFlight"`
		QueueTimeoutMS *int     `yaml:"queueTimeoutMs"`
		MaxUploadBytes *int64   `yaml:"maxUploadBytes"`
		UploadDir      string   `yaml:"uploadDir"`
	} `yaml:"api"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Ollama struct {
		URL                  string   `yaml:"url"`
		Model                string   `yaml:"model"`
		Temperature          *float64 `yaml:"temperature"`
		NumPredict           *int     `yaml:"numPredict"`
		TimeoutSeconds       *int     `yaml:"timeoutSeconds"`
		StatusTimeoutSeconds *int     `yaml:"statusTimeoutSeconds"`

		Retry struct {
			MaxAttempts      *int `yaml:"maxAttempts"`
			InitialBackoffMS *int `yaml:"initialBackoffMs"`
			MaxBackoffMS     *int `yaml:"maxBackoffMs"`
		} `yaml:"retry"`

		Breaker struct {
			Enabled            *bool    `yaml:"enabled"`
			MinRequests        *int     `yaml:"minRequests"`
			FailureRatio       *float64 `yaml:"failureRatio"`
			OpenTimeoutSeconds *int     `yaml:"openTimeoutSeconds"`
		} `yaml:"breaker"`
	} `yaml:"ollama"`

	Simplify struct {
		MaxLength *int `yaml:"maxLength"`
		MinLength *int `yaml:"minLength"`
	} `yaml:"simplify"`

	Tracing struct {
		Enabled     *bool    `yaml:"enabled"`
		Protocol    string   `yaml:"protocol"`
		SampleRatio *float64 `yaml:"sampleRatio"`
	} `yaml:"tracing"`
}

func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse yaml: %w", err)
	}
	return fc, nil
}

// ApplyFile overlays every value present in fc onto cfg.
func ApplyFile(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	setString(&cfg.APIPort, fc.API.Port)
	setFloat(&cfg.APIRateLimitRPS, fc.API.RateLimitRPS)
	setInt(&cfg.APIRateLimitBurst, fc.API.RateLimitBurst)
	setInt(&cfg.APIMaxInFlight, fc.API.MaxInFlight)
	setInt(&cfg.APIQueueTimeoutMillis, fc.API.QueueTimeoutMS)
	if fc.API.MaxUploadBytes != nil {
		cfg.MaxUploadBytes = *fc.API.MaxUploadBytes
	}
	setString(&cfg.UploadDir, fc.API.UploadDir)
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)

	setString(&cfg.OllamaURL, fc.Ollama.URL)
	setString(&cfg.OllamaModel, fc.Ollama.Model)
	setFloat(&cfg.OllamaTemperature, fc.Ollama.Temperature)
	setInt(&cfg.OllamaNumPredict, fc.Ollama.NumPredict)
	setInt(&cfg.OllamaTimeoutSeconds, fc.Ollama.TimeoutSeconds)
	setInt(&cfg.OllamaStatusTimeoutSeconds, fc.Ollama.StatusTimeoutSeconds)
	setInt(&cfg.OllamaRetryMaxAttempts, fc.Ollama.Retry.MaxAttempts)
	setInt(&cfg.OllamaRetryInitialBackoffMS, fc.Ollama.Retry.InitialBackoffMS)
	setInt(&cfg.OllamaRetryMaxBackoffMS, fc.Ollama.Retry.MaxBackoffMS)
	setBool(&cfg.OllamaBreakerEnabled, fc.Ollama.Breaker.Enabled)
	setInt(&cfg.OllamaBreakerMinRequests, fc.Ollama.Breaker.MinRequests)
	setFloat(&cfg.OllamaBreakerFailureRatio, fc.Ollama.Breaker.FailureRatio)
	setInt(&cfg.OllamaBreakerOpenTimeoutSecs, fc.Ollama.Breaker.OpenTimeoutSeconds)

	setInt(&cfg.SimplifyMaxLength, fc.Simplify.MaxLength)
	setInt(&cfg.SimplifyMinLength, fc.Simplify.MinLength)

	setBool(&cfg.TracingEnabled, fc.Tracing.Enabled)
	setString(&cfg.TracingProtocol, fc.Tracing.Protocol)
	setFloat(&cfg.TracingSampleRatio, fc.Tracing.SampleRatio)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
