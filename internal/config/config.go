// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrManifestRequired is returned when MANIFEST_PATH is not set.
	ErrManifestRequired = errors.New("config: MANIFEST_PATH is required")
)

// Config holds all configuration for the generator. Silence, overlap, and
// margin values are in samples; they must describe a usable distribution
// (see the validate tags), which is checked up front rather than at
// sampling time.
type Config struct {
	// Corpus and output settings
	ManifestPath string `env:"MANIFEST_PATH, required" json:"manifest_path"`
	OutputDir    string `env:"OUTPUT_DIR, default=/tmp/meetmix" json:"output_dir"`

	// Run settings
	NumExamples           int  `env:"NUM_EXAMPLES, default=100" json:"num_examples" validate:"min=1"`
	MaxConcurrentExamples int  `env:"MAX_CONCURRENT_EXAMPLES, default=4" json:"max_concurrent_examples" validate:"min=1"`
	WriteComponents       bool `env:"WRITE_COMPONENTS, default=false" json:"write_components"`

	// Meeting settings
	NumSpeakers     int     `env:"NUM_SPEAKERS, default=4" json:"num_speakers" validate:"min=1"`
	TargetLengthSec float64 `env:"TARGET_LENGTH_SEC, default=120" json:"target_length_sec" validate:"gt=0"`
	MinLogWeight    float64 `env:"MIN_LOG_WEIGHT, default=-3" json:"min_log_weight"`
	MaxLogWeight    float64 `env:"MAX_LOG_WEIGHT, default=3" json:"max_log_weight" validate:"gtefield=MinLogWeight"`

	// Offset sampler settings (samples)
	MaxConcurrentSpeakers int     `env:"MAX_CONCURRENT_SPK, default=2" json:"max_concurrent_spk" validate:"min=1"`
	PSilence              float64 `env:"P_SILENCE, default=0.1" json:"p_silence" validate:"gte=0,lte=1"`
	MinimumSilence        int     `env:"MINIMUM_SILENCE, default=0" json:"minimum_silence" validate:"gtefield=Margin"`
	MaximumSilence        int     `env:"MAXIMUM_SILENCE, default=16000" json:"maximum_silence" validate:"gtfield=MinimumSilence"`
	SoftMinimumOverlap    int     `env:"SOFT_MINIMUM_OVERLAP, default=0" json:"soft_minimum_overlap" validate:"ltefield=MaximumOverlap"`
	HardMinimumOverlap    int     `env:"HARD_MINIMUM_OVERLAP, default=0" json:"hard_minimum_overlap" validate:"ltefield=MaximumOverlap"`
	MaximumOverlap        int     `env:"MAXIMUM_OVERLAP, default=32000" json:"maximum_overlap"`
	Margin                int     `env:"MARGIN, default=0" json:"margin"`

	// Synthesizer settings
	NormalizeSources       bool   `env:"NORMALIZE_SOURCES, default=true" json:"normalize_sources"`
	AddReverberationEarly  bool   `env:"ADD_REVERBERATION_EARLY, default=true" json:"add_reverberation_early"`
	AddReverberationTail   bool   `env:"ADD_REVERBERATION_TAIL, default=true" json:"add_reverberation_tail"`
	CompensateTimeOfFlight bool   `env:"COMPENSATE_TIME_OF_FLIGHT, default=true" json:"compensate_time_of_flight"`
	EarlyRIRMs             int    `env:"EARLY_RIR_MS, default=50" json:"early_rir_ms" validate:"min=0"`
	Details                bool   `env:"DETAILS, default=false" json:"details"`
	ChannelSlice           string `env:"CHANNEL_SLICE, default=all" json:"channel_slice"`

	// Noise settings
	NoiseEnabled bool    `env:"NOISE, default=false" json:"noise"`
	MinSNR       float64 `env:"MIN_SNR, default=20" json:"min_snr"`
	MaxSNR       float64 `env:"MAX_SNR, default=30" json:"max_snr" validate:"gtefield=MinSNR"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it. It returns an error if required variables are not set
// or parameter combinations are invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "MANIFEST_PATH") {
			return nil, ErrManifestRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and cross-field parameter invariants.
func (c *Config) Validate() error {
	if c.ManifestPath == "" {
		return ErrManifestRequired
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{ManifestPath: %s, OutputDir: %s, NumExamples: %d, NumSpeakers: %d, MaxConcurrentSpk: %d, PSilence: %g, ChannelSlice: %s, S3Bucket: %s, LogFormat: %s, LogLevel: %s}",
		c.ManifestPath,
		c.OutputDir,
		c.NumExamples,
		c.NumSpeakers,
		c.MaxConcurrentSpeakers,
		c.PSilence,
		c.ChannelSlice,
		c.S3Bucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
