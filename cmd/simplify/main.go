package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/kirillkom/doc-simplifier/internal/bootstrap"
	"github.com/kirillkom/doc-simplifier/internal/config"
	"github.com/kirillkom/doc-simplifier/internal/core/domain"
	"github.com/kirillkom/doc-simplifier/internal/core/ports"
	"github.com/kirillkom/doc-simplifier/internal/observability/logging"
)

const (
	serviceName = "doc-simplifier-cli"

	originalPreviewChars = 1500
)

type options struct {
	file         string
	text         string
	maxLength    int
	check        bool
	jsonOutput   bool
	showOriginal bool
}

type services struct {
	simplifier ports.DocumentSimplifier
	status     ports.EndpointStatusChecker
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the result, logs go to stderr
	slog.SetDefault(logging.New(os.Stderr, serviceName, cfg.LogLevel, cfg.LogFormat))

	opts, err := parseOptions(os.Args[1:], os.Stderr, cfg.SimplifyMaxLength)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	svc := services{simplifier: app.SimplifyUC, status: app.StatusUC}
	if err := run(ctx, opts, svc, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		app.Close()
		os.Exit(1)
	}
}

func parseOptions(args []string, output io.Writer, defaultMaxLength int) (options, error) {
	var opts options
	fs := flag.NewFlagSet("simplify", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.file, "file", "", "Path to a PDF, DOCX or TXT document to simplify")
	fs.StringVar(&opts.text, "text", "", "Technical text to simplify (stdin is read when neither -file nor -text is set)")
	fs.IntVar(&opts.maxLength, "max-length", defaultMaxLength, "Maximum characters of input sent to the model")
	fs.BoolVar(&opts.check, "check", false, "Only check that the inference endpoint and model are ready")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	fs.BoolVar(&opts.showOriginal, "show-original", false, "Append a preview of the original text")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.maxLength <= 0 {
		err := fmt.Errorf("-max-length must be positive, got %d", opts.maxLength)
		fmt.Fprintln(output, err)
		return options{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		fmt.Fprintln(output, err)
		return options{}, err
	}
	return opts, nil
}

func run(ctx context.Context, opts options, svc services, stdin io.Reader, stdout io.Writer) error {
	status, err := svc.status.Check(ctx)
	if err != nil {
		return fmt.Errorf("inference endpoint not ready: %w", err)
	}
	if opts.check {
		return printStatus(stdout, status, opts.jsonOutput)
	}

	var result *domain.SimplificationResult
	switch {
	case opts.file != "":
		result, err = svc.simplifier.SimplifyFile(ctx, opts.file, opts.maxLength)
	case opts.text != "":
		result, err = svc.simplifier.SimplifyText(ctx, opts.text, opts.maxLength)
	default:
		raw, readErr := io.ReadAll(stdin)
		if readErr != nil {
			return fmt.Errorf("read stdin: %w", readErr)
		}
		result, err = svc.simplifier.SimplifyText(ctx, string(raw), opts.maxLength)
	}
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(stdout, result, opts.showOriginal)
}

func printStatus(w io.Writer, status *domain.EndpointStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	_, err := fmt.Fprintf(w, "Connected to %s, model %s is available\n", status.Endpoint, status.Model)
	return err
}

func printResult(w io.Writer, result *domain.SimplificationResult, showOriginal bool) error {
	var b strings.Builder
	b.WriteString(result.Simplified)
	b.WriteString("\n\nStatistics\n")
	fmt.Fprintf(&b, "  Time taken:        %.2f seconds\n", result.ElapsedSeconds)
	fmt.Fprintf(&b, "  Original length:   %d characters\n", result.OriginalLength)
	fmt.Fprintf(&b, "  Simplified length: %d characters\n", result.SimplifiedLength)
	if result.Truncated {
		b.WriteString("  Note: input exceeded the length cap and was truncated before simplification\n")
	}
	if showOriginal {
		b.WriteString("\nOriginal text (preview)\n")
		b.WriteString(preview(result.Original, originalPreviewChars))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func preview(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
