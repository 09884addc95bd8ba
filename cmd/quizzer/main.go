package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/dgallion1/quizzer/internal/chunker"
	"github.com/dgallion1/quizzer/internal/config"
	"github.com/dgallion1/quizzer/internal/export"
	"github.com/dgallion1/quizzer/internal/ingest"
	"github.com/dgallion1/quizzer/internal/llm"
	"github.com/dgallion1/quizzer/internal/logging"
	"github.com/dgallion1/quizzer/internal/pipeline"
	"github.com/dgallion1/quizzer/internal/quiz"
	"github.com/dgallion1/quizzer/internal/telemetry"
)

const usage = `Usage:
  quizzer --input <path-or-data-uri> [--output <file.csv>] [--config <file.yaml>]
  quizzer serve [--config <file.yaml>]
`

func main() {
	var err error
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		err = serve(os.Args[2:])
	} else {
		err = generate(os.Args[1:])
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

type generateOptions struct {
	input      string
	output     string
	configPath string
}

func parseGenerateFlags(args []string, stderr io.Writer) (generateOptions, error) {
	var opts generateOptions
	fs := flag.NewFlagSet("quizzer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.input, "input", "", "PDF or other document path, or a base64 data URI (required)")
	fs.StringVar(&opts.output, "output", "", "CSV destination (default: <OUTPUT_DIR>/quiz_export_<timestamp>.csv)")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (default: $QUIZZER_CONFIG)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if strings.TrimSpace(opts.input) == "" {
		fs.Usage()
		return opts, errors.New("--input is required")
	}
	return opts, nil
}

// app holds the wiring shared by the CLI and server modes.
type app struct {
	cfg        config.Config
	log        *slog.Logger
	provider   llm.Provider
	checkpoint *pipeline.Checkpoint
	pipeline   *pipeline.Pipeline

	closers []func(context.Context) error
}

func newApp(ctx context.Context, configPath string, server bool) (*app, error) {
	cfg, err := config.Load(config.FilePath(configPath))
	if err != nil {
		return nil, err
	}
	validate := cfg.Validate
	if server {
		validate = cfg.ValidateServer
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, logCloser := logging.New(cfg)
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) error { return logCloser.Close() })

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTelEnabled, cfg.OTelEndpoint, log)
	if err != nil {
		log.Warn("tracing unavailable", "error", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	provider, err := llm.NewProvider(ctx, llm.Config{
		Provider:    cfg.ModelProvider,
		APIKey:      cfg.ModelAPIKey(),
		Model:       cfg.ModelName(),
		BaseURL:     cfg.GroqBaseURL,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.provider = provider
	a.closers = append(a.closers, func(context.Context) error { return provider.Close() })

	client := quiz.NewClient(provider, llm.RetryPolicy{
		MaxAttempts: cfg.LLMMaxRetries,
		BaseDelay:   cfg.LLMRetryBaseDelay,
		MaxDelay:    30 * time.Second,
	}, log)

	a.checkpoint = pipeline.NewCheckpoint(cfg.RunTTL)
	a.pipeline = pipeline.New(ingest.New(cfg.PDFFallbackPdftotext), client, client, a.checkpoint, pipeline.Options{
		Chunking: chunker.Config{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
		},
		Concurrency: cfg.MaxConcurrentUnits,
		FailFast:    cfg.FailFast,
	}, log)

	log.Info("configured",
		"environment", cfg.Environment,
		"provider", provider.Name(),
		"model", provider.Model(),
		"max_concurrent_units", cfg.MaxConcurrentUnits,
		"fail_fast", cfg.FailFast)
	return a, nil
}

// Close releases resources in reverse order of creation.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			fmt.Fprintln(os.Stderr, "shutdown:", err)
		}
	}
}

func generate(args []string) error {
	opts, err := parseGenerateFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.configPath, false)
	if err != nil {
		return err
	}
	defer a.Close()

	run := pipeline.NewRun(opts.input, displayName(opts.input))
	start := time.Now()
	res, err := a.pipeline.Run(ctx, run)
	if err != nil {
		return err
	}

	pipeline.SortCandidates(res.Candidates)
	path, err := export.WriteFile(res.Candidates, opts.output, a.cfg.OutputDir)
	if errors.Is(err, export.ErrNothingToExport) {
		a.log.Warn("no questions generated", "run_id", res.RunID, "chunks", res.Chunks)
		fmt.Println(color.YellowString("No questions generated from %d chunks; nothing exported.", res.Chunks))
		return nil
	}
	if err != nil {
		return err
	}

	a.log.Info("exported quiz", "run_id", res.RunID, "path", path, "questions", len(res.Candidates))
	fmt.Println(color.GreenString("Wrote %d questions from %d chunks to %s (%s)",
		len(res.Candidates), res.Chunks, path, time.Since(start).Round(time.Millisecond)))
	if len(res.Failures) > 0 {
		fmt.Println(color.YellowString("%d of %d chunks failed; see log for details.", len(res.Failures), res.Chunks))
	}
	return nil
}

// displayName is the short form of an input shown in logs and run status.
func displayName(input string) string {
	if strings.HasPrefix(input, "data:") {
		mime, _, _ := strings.Cut(strings.TrimPrefix(input, "data:"), ";")
		return "data-uri(" + mime + ")"
	}
	return filepath.Base(input)
}
