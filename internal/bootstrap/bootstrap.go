// Package bootstrap provides dependency initialization for the meetmix
// generator: it loads the corpus, builds the sampler and synthesizer from
// configuration, selects the storage backend, and assembles the pipeline.
package bootstrap

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/soundscene/meetmix/internal/config"
	"github.com/soundscene/meetmix/internal/dataset"
	"github.com/soundscene/meetmix/internal/meeting"
	"github.com/soundscene/meetmix/internal/pipeline"
	"github.com/soundscene/meetmix/internal/rir"
	"github.com/soundscene/meetmix/internal/sampling"
	"github.com/soundscene/meetmix/internal/scenario"
	"github.com/soundscene/meetmix/internal/storage"
)

// Dependencies holds all initialized dependencies for a generation run.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
	Corpus   *dataset.Corpus
}

// NewDependencies creates and initializes all dependencies for the
// application. Configuration errors surface here, before any example is
// generated.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	manifest, err := dataset.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	corpus, err := dataset.Load(manifest, filepath.Dir(cfg.ManifestPath))
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	logger.Info("corpus loaded",
		slog.Int("speakers", len(corpus.SpeakerIDs())),
		slog.Int("rirs", len(corpus.RIRs)),
		slog.Int("sample_rate", corpus.SampleRate),
	)

	sampler, err := sampling.NewUniformSampler(sampling.Config{
		MaxConcurrentSpeakers: cfg.MaxConcurrentSpeakers,
		PSilence:              cfg.PSilence,
		MinimumSilence:        cfg.MinimumSilence,
		MaximumSilence:        cfg.MaximumSilence,
		SoftMinimumOverlap:    cfg.SoftMinimumOverlap,
		HardMinimumOverlap:    cfg.HardMinimumOverlap,
		MaximumOverlap:        cfg.MaximumOverlap,
		Margin:                cfg.Margin,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	generator, err := meeting.New(corpus, sampler, meeting.Config{
		NumSpeakers:   cfg.NumSpeakers,
		TargetSamples: int(cfg.TargetLengthSec * float64(corpus.SampleRate)),
		MinLogWeight:  cfg.MinLogWeight,
		MaxLogWeight:  cfg.MaxLogWeight,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create meeting generator: %w", err)
	}

	channelSlice, err := rir.ParseSlice(cfg.ChannelSlice)
	if err != nil {
		return nil, fmt.Errorf("parse channel slice: %w", err)
	}

	synthesizer := scenario.New(scenario.Options{
		NormalizeSources:       cfg.NormalizeSources,
		AddReverberationEarly:  cfg.AddReverberationEarly,
		AddReverberationTail:   cfg.AddReverberationTail,
		CompensateTimeOfFlight: cfg.CompensateTimeOfFlight,
		EarlyRIRSamples:        corpus.SampleRate * cfg.EarlyRIRMs / 1000,
		Details:                cfg.Details,
		ChannelSlice:           channelSlice,
		Noise: scenario.NoiseOptions{
			Enabled: cfg.NoiseEnabled,
			MinSNR:  cfg.MinSNR,
			MaxSNR:  cfg.MaxSNR,
		},
	}, logger)

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(generator, synthesizer, store, corpus.SampleRate, pipeline.Options{
		MaxConcurrentExamples: cfg.MaxConcurrentExamples,
		WriteComponents:       cfg.WriteComponents,
		PushToS3:              cfg.S3Enabled(),
	}, logger)

	return &Dependencies{
		Pipeline: pipe,
		Corpus:   corpus,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.OutputDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("output_dir", cfg.OutputDir),
	)
	return localStore, nil
}
