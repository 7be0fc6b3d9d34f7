// Command transcriptorch runs the multi-model transcription orchestrator
// over a single audio file and writes the resulting transcript and decision
// log as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"

	"github.com/MrWong99/transcriptorch/internal/config"
	"github.com/MrWong99/transcriptorch/internal/observe"
	"github.com/MrWong99/transcriptorch/internal/orchestrator"
	"github.com/MrWong99/transcriptorch/internal/orchestrator/judge"
	"github.com/MrWong99/transcriptorch/pkg/provider/llm"
	"github.com/MrWong99/transcriptorch/pkg/provider/llm/anyllm"
	llmopenai "github.com/MrWong99/transcriptorch/pkg/provider/llm/openai"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile/assemblyai"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile/deepgram"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile/whisper"
	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

// serviceVersion is overridden via -ldflags "-X main.serviceVersion=...".
var serviceVersion = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	audioPath := flag.String("audio", "", "path to the audio file to transcribe")
	outPath := flag.String("out", "", "path to write the result JSON (defaults to stdout)")
	flag.Parse()

	if *audioPath == "" {
		fmt.Fprintln(os.Stderr, "transcriptorch: -audio is required")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "transcriptorch: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "transcriptorch: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "err", err)
		}
	}()

	stopMetricsServer := startMetricsServer(cfg.Observability.MetricsAddr)
	defer stopMetricsServer()

	observe.Logger(ctx).Info("transcriptorch starting",
		"config", *configPath,
		"audio", *audioPath,
		"primary_provider", cfg.Analyzer.PrimaryProvider,
	)

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		observe.Logger(ctx).Error("failed to build STT providers", "err", err)
		return 1
	}

	j, err := buildJudge(cfg)
	if err != nil {
		observe.Logger(ctx).Error("failed to build judge", "err", err)
		return 1
	}

	o := orchestrator.New(providers, j,
		orchestrator.WithPrimaryProvider(cfg.Analyzer.PrimaryProvider),
		orchestrator.WithSegmentConcurrency(cfg.Analyzer.SegmentConcurrency),
		orchestrator.WithAnalyzer(orchestrator.NewAnalyzer(
			orchestrator.WithConfidenceThreshold(cfg.Analyzer.ConfidenceThreshold),
			orchestrator.WithMinSegmentMs(cfg.Analyzer.MinSegmentMs),
			orchestrator.WithMaxSegmentMs(cfg.Analyzer.MaxSegmentMs),
			orchestrator.WithContextWords(cfg.Analyzer.ContextWindowWords),
			orchestrator.WithMergeGapMs(cfg.Analyzer.MergeGapMs),
		)),
	)

	result, decisions, err := o.ProcessAudio(ctx, *audioPath, cfg.Vocabulary)
	if err != nil {
		observe.Logger(ctx).Error("processing failed", "err", err)
		return 1
	}

	observe.Logger(ctx).Info("processing complete",
		"segments_arbitrated", len(decisions),
		"overall_confidence", result.OverallConfidence,
	)

	return writeOutput(ctx, *outPath, output{Transcript: result, Decisions: decisions})
}

// initTelemetry wires the OpenTelemetry SDK per cfg.Observability: an OTLP
// gRPC trace exporter when otlp_endpoint is set (spans are still recorded,
// just not shipped, when it's empty), and the Prometheus metrics bridge
// [observe.InitProvider] always sets up. Returns a shutdown func to defer.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	providerCfg := observe.ProviderConfig{
		ServiceName:    "transcriptorch",
		ServiceVersion: serviceVersion,
	}

	if endpoint := cfg.Observability.OTLPEndpoint; endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("build OTLP trace exporter: %w", err)
		}
		providerCfg.TraceExporter = exporter
	}

	return observe.InitProvider(ctx, providerCfg)
}

// startMetricsServer serves the Prometheus exporter's collected metrics on
// addr's "/metrics" path when addr is non-empty, returning a func that stops
// it. When addr is empty, it is a no-op and the returned func does nothing.
func startMetricsServer(addr string) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	slog.Info("metrics server listening", "addr", addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", "err", err)
		}
	}
}

type output struct {
	Transcript *transcript.TranscriptionResult   `json:"transcript"`
	Decisions  []transcript.OrchestratorDecision `json:"decisions"`
}

func writeOutput(ctx context.Context, path string, out any) int {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		observe.Logger(ctx).Error("failed to marshal result", "err", err)
		return 1
	}

	if path == "" {
		fmt.Println(string(data))
		return 0
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		observe.Logger(ctx).Error("failed to write output", "path", path, "err", err)
		return 1
	}
	return 0
}

// buildProviders constructs every configured STT candidate provider. A
// provider with no credentials configured is simply omitted — the
// orchestrator tolerates an incomplete roster.
func buildProviders(ctx context.Context, cfg *config.Config) (map[string]sttfile.Provider, error) {
	providers := make(map[string]sttfile.Provider)

	if cfg.Providers.Deepgram.APIKey != "" {
		var opts []deepgram.Option
		if cfg.Providers.Deepgram.Model != "" {
			opts = append(opts, deepgram.WithModel(cfg.Providers.Deepgram.Model))
		}
		if cfg.Providers.Deepgram.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(cfg.Providers.Deepgram.BaseURL))
		}
		p, err := deepgram.New(cfg.Providers.Deepgram.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("build deepgram provider: %w", err)
		}
		providers["deepgram"] = p
		observe.Logger(ctx).Info("provider configured", "name", "deepgram")
	}

	if cfg.Providers.AssemblyAI.APIKey != "" {
		var opts []assemblyai.Option
		if cfg.Providers.AssemblyAI.BaseURL != "" {
			opts = append(opts, assemblyai.WithBaseURL(cfg.Providers.AssemblyAI.BaseURL))
		}
		p, err := assemblyai.New(cfg.Providers.AssemblyAI.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("build assemblyai provider: %w", err)
		}
		providers["assemblyai"] = p
		observe.Logger(ctx).Info("provider configured", "name", "assemblyai")
	}

	switch {
	case cfg.Providers.Whisper.ModelPath != "":
		p, err := whisper.NewNative(cfg.Providers.Whisper.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("build whisper (native) provider: %w", err)
		}
		providers["whisper"] = p
		observe.Logger(ctx).Info("provider configured", "name", "whisper", "mode", "native")
	case cfg.Providers.Whisper.APIKey != "":
		var opts []whisper.HostedOption
		if cfg.Providers.Whisper.BaseURL != "" {
			opts = append(opts, whisper.WithHostedBaseURL(cfg.Providers.Whisper.BaseURL))
		}
		p, err := whisper.NewHosted(cfg.Providers.Whisper.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("build whisper (hosted) provider: %w", err)
		}
		providers["whisper"] = p
		observe.Logger(ctx).Info("provider configured", "name", "whisper", "mode", "hosted")
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no STT providers configured: set at least one of providers.deepgram.api_key, providers.assemblyai.api_key, providers.whisper.model_path/api_key")
	}

	return providers, nil
}

// buildJudge constructs the LLM-backed judge from cfg.Judge, selecting
// between the direct OpenAI backend and the multi-backend any-llm-go
// backend.
func buildJudge(cfg *config.Config) (judge.Judge, error) {
	var backend llm.Provider
	var err error

	switch cfg.Judge.Provider {
	case "openai":
		var opts []llmopenai.Option
		if cfg.Judge.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(cfg.Judge.BaseURL))
		}
		backend, err = llmopenai.New(cfg.Judge.APIKey, cfg.Judge.Model, opts...)
	case "anyllm", "":
		backend, err = anyllm.NewOpenAI(cfg.Judge.Model)
	default:
		return nil, fmt.Errorf("unknown judge.provider %q", cfg.Judge.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("build judge backend: %w", err)
	}

	return judge.New(backend, judge.WithPrimaryProvider(cfg.Analyzer.PrimaryProvider)), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
