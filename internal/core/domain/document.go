package domain

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
	FormatNone Format = "none"
)

// FormatFromPath maps a file extension to a supported format, FormatNone otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatTXT
	default:
		return FormatNone
	}
}

type Document struct {
	Path   string `json:"path,omitempty"`
	Format Format `json:"format"`
	Text   string `json:"text"`
}

type SimplificationResult struct {
	Original         string        `json:"original"`
	Simplified       string        `json:"simplified"`
	Elapsed          time.Duration `json:"-"`
	ElapsedSeconds   float64       `json:"elapsed_seconds"`
	OriginalLength   int           `json:"original_length"`
	SimplifiedLength int           `json:"simplified_length"`
	Truncated        bool          `json:"truncated"`
	Model            string        `json:"model"`
	// MaxLength is the input cap the simplifier applied, after defaults.
	MaxLength        int           `json:"-"`
}

// NewSimplificationResult derives both lengths from the texts so they cannot drift.
func NewSimplificationResult(original, simplified string, elapsed time.Duration, truncated bool, model string) SimplificationResult {
	return SimplificationResult{
		Original:         original,
		Simplified:       simplified,
		Elapsed:          elapsed,
		ElapsedSeconds:   elapsed.Seconds(),
		OriginalLength:   CharCount(original),
		SimplifiedLength: CharCount(simplified),
		Truncated:        truncated,
		Model:            model,
	}
}

// CharCount counts characters as Unicode code points.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

type EndpointStatus struct {
	Endpoint       string   `json:"endpoint"`
	Model          string   `json:"model"`
	Connected      bool     `json:"connected"`
	ModelAvailable bool     `json:"model_available"`
	Models         []string `json:"models,omitempty"`
}
