package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the STT provider names the orchestrator knows how
// to construct. Used by [Validate] to reject an unrecognised primary_provider.
var ValidProviderNames = []string{"deepgram", "assemblyai", "whisper"}

// ValidJudgeProviders lists the LLM backends [Validate] recognises for
// judge.provider.
var ValidJudgeProviders = []string{"openai", "anyllm"}

// DefaultMedicalVocabulary is the term list seeded into the analyzer when a
// config omits medical_vocabulary.
var DefaultMedicalVocabulary = []string{
	"hypertension", "diabetes", "cholesterol", "hemoglobin", "prescription",
	"medication", "diagnosis", "symptoms", "blood pressure", "heart rate",
	"temperature", "oxygen", "milligrams", "milliliters", "units", "dosage",
}

// Load reads the YAML configuration file at path, applies defaults, and
// returns a validated [Config]. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields of cfg with the orchestrator's
// documented defaults. Called automatically by [LoadFromReader]; exported so
// callers constructing a [Config] programmatically (e.g., in tests) can reuse
// it.
func ApplyDefaults(cfg *Config) {
	a := &cfg.Analyzer
	if a.ConfidenceThreshold == 0 {
		a.ConfidenceThreshold = 0.75
	}
	if a.MinSegmentMs == 0 {
		a.MinSegmentMs = 500
	}
	if a.MaxSegmentMs == 0 {
		a.MaxSegmentMs = 10000
	}
	if a.ContextWindowWords == 0 {
		a.ContextWindowWords = 50
	}
	if a.MergeGapMs == 0 {
		a.MergeGapMs = 1000
	}
	if a.SegmentPaddingMs == 0 {
		a.SegmentPaddingMs = 100
	}
	if a.PrimaryProvider == "" {
		a.PrimaryProvider = "deepgram"
	}
	if a.SegmentConcurrency == 0 {
		a.SegmentConcurrency = 1
	}
	if len(cfg.Vocabulary) == 0 {
		cfg.Vocabulary = slices.Clone(DefaultMedicalVocabulary)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !validLogLevel(cfg.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	a := cfg.Analyzer
	if a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("analyzer.confidence_threshold %.2f is out of range [0, 1]", a.ConfidenceThreshold))
	}
	if a.MinSegmentMs < 0 {
		errs = append(errs, fmt.Errorf("analyzer.min_segment_ms must be non-negative, got %d", a.MinSegmentMs))
	}
	if a.MaxSegmentMs > 0 && a.MinSegmentMs > 0 && a.MaxSegmentMs < a.MinSegmentMs {
		errs = append(errs, fmt.Errorf("analyzer.max_segment_ms (%d) must be >= analyzer.min_segment_ms (%d)", a.MaxSegmentMs, a.MinSegmentMs))
	}
	if a.ContextWindowWords < 0 {
		errs = append(errs, fmt.Errorf("analyzer.context_window_words must be non-negative, got %d", a.ContextWindowWords))
	}
	if a.MergeGapMs < 0 {
		errs = append(errs, fmt.Errorf("analyzer.merge_gap_ms must be non-negative, got %d", a.MergeGapMs))
	}
	if a.SegmentPaddingMs < 0 {
		errs = append(errs, fmt.Errorf("analyzer.segment_padding_ms must be non-negative, got %d", a.SegmentPaddingMs))
	}
	if a.SegmentConcurrency < 0 {
		errs = append(errs, fmt.Errorf("analyzer.segment_concurrency must be non-negative, got %d", a.SegmentConcurrency))
	}
	if a.PrimaryProvider != "" && !slices.Contains(ValidProviderNames, a.PrimaryProvider) {
		errs = append(errs, fmt.Errorf("analyzer.primary_provider %q is invalid; valid values: %v", a.PrimaryProvider, ValidProviderNames))
	}

	if cfg.Providers.Deepgram.APIKey == "" && a.PrimaryProvider == "deepgram" {
		slog.Warn("analyzer.primary_provider is deepgram but providers.deepgram.api_key is empty")
	}
	if cfg.Providers.Whisper.ModelPath == "" && cfg.Providers.Whisper.APIKey == "" {
		slog.Warn("providers.whisper has neither model_path nor api_key set; the whisper candidate will be unavailable")
	}

	if cfg.Judge.Provider != "" && !slices.Contains(ValidJudgeProviders, cfg.Judge.Provider) {
		errs = append(errs, fmt.Errorf("judge.provider %q is invalid; valid values: %v", cfg.Judge.Provider, ValidJudgeProviders))
	}
	if cfg.Judge.Provider != "" && cfg.Judge.APIKey == "" {
		errs = append(errs, fmt.Errorf("judge.api_key is required when judge.provider is set"))
	}
	if cfg.Judge.Provider != "" && cfg.Judge.Model == "" {
		errs = append(errs, fmt.Errorf("judge.model is required when judge.provider is set"))
	}

	return errors.Join(errs...)
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
