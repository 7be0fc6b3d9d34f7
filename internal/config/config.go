// Package config provides the configuration schema, loader, and validation
// for the transcription orchestrator.
package config

// Config is the root configuration structure for the orchestrator.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Analyzer      AnalyzerConfig      `yaml:"analyzer"`
	Providers     STTProvidersConfig  `yaml:"providers"`
	Judge         JudgeConfig         `yaml:"judge"`
	Vocabulary    []string            `yaml:"medical_vocabulary"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds logging settings for the orchestrator process.
type ServerConfig struct {
	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// AnalyzerConfig tunes the confidence analyzer and the orchestrator's
// provider fan-out.
type AnalyzerConfig struct {
	// ConfidenceThreshold is the minimum per-word confidence considered
	// acceptable. Words below this are candidates for the uncertain-segment
	// pass. Default: 0.75.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// MinSegmentMs is the minimum duration an uncertain segment must span to
	// be emitted; shorter runs are discarded as noise. Default: 500.
	MinSegmentMs int `yaml:"min_segment_ms"`

	// MaxSegmentMs is the maximum duration of a single uncertain segment;
	// longer runs are split into chunks of at most this size. Default: 10000.
	MaxSegmentMs int `yaml:"max_segment_ms"`

	// ContextWindowWords is how many words of surrounding primary transcript
	// are attached to a segment (before and after) for judge context.
	// Default: 50.
	ContextWindowWords int `yaml:"context_window_words"`

	// MergeGapMs is the maximum gap between two adjacent uncertain segments
	// for them to be merged into one. Default: 1000.
	MergeGapMs int `yaml:"merge_gap_ms"`

	// SegmentPaddingMs is the amount of audio padding added on either side of
	// an extracted segment before re-transcription. Default: 100.
	SegmentPaddingMs int `yaml:"segment_padding_ms"`

	// PrimaryProvider names the STT provider used for the initial full-file
	// pass. Must match a key in Providers. Default: "deepgram".
	PrimaryProvider string `yaml:"primary_provider"`

	// SegmentConcurrency bounds how many uncertain segments are processed
	// concurrently. Default: 1 (strictly sequential).
	SegmentConcurrency int `yaml:"segment_concurrency"`
}

// STTProvidersConfig declares credentials for each speech-to-text vendor the
// orchestrator can call as a candidate provider.
type STTProvidersConfig struct {
	Deepgram   DeepgramConfig   `yaml:"deepgram"`
	AssemblyAI AssemblyAIConfig `yaml:"assemblyai"`
	Whisper    WhisperConfig    `yaml:"whisper"`
}

// DeepgramConfig holds Deepgram's batch transcription credentials.
type DeepgramConfig struct {
	// APIKey authenticates requests. Sent as "Authorization: Token <key>".
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the default REST endpoint. Leave empty for the
	// Deepgram default.
	BaseURL string `yaml:"base_url"`

	// Model selects the Deepgram model (e.g., "nova-2-medical").
	Model string `yaml:"model"`
}

// AssemblyAIConfig holds AssemblyAI's submit/poll transcription credentials.
type AssemblyAIConfig struct {
	// APIKey authenticates requests.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the default REST endpoint.
	BaseURL string `yaml:"base_url"`
}

// WhisperConfig selects between a local whisper.cpp model and a hosted
// OpenAI-compatible Whisper endpoint. Exactly one of ModelPath or APIKey
// should be set.
type WhisperConfig struct {
	// ModelPath is the path to a local whisper.cpp GGML model file. When set,
	// transcription runs locally via CGo bindings.
	ModelPath string `yaml:"model_path"`

	// APIKey authenticates a hosted Whisper endpoint (e.g., OpenAI's audio
	// transcription API) when ModelPath is empty.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the hosted endpoint's default base URL.
	BaseURL string `yaml:"base_url"`

	// Model names a hosted model (e.g., "whisper-1"). It is parsed but not
	// read when providers are built; the hosted provider always requests
	// "whisper-1".
	Model string `yaml:"model"`
}

// JudgeConfig selects the LLM backend that arbitrates between candidate
// transcriptions for uncertain segments.
type JudgeConfig struct {
	// Provider names the LLM backend ("openai" or "anyllm").
	Provider string `yaml:"provider"`

	// Model is the model identifier passed to the backend.
	Model string `yaml:"model"`

	// APIKey authenticates requests to the backend.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string `yaml:"base_url"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	// OTLPEndpoint is the OTLP collector address for trace export. Empty
	// disables trace export (spans are still recorded, just not shipped).
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// MetricsAddr is the address the Prometheus /metrics handler listens on.
	MetricsAddr string `yaml:"metrics_addr"`
}
