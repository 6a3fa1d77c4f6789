// Package dataset indexes and loads the source corpus: per-speaker
// utterance recordings and a pool of room impulse responses, described by
// a JSON manifest. All audio is decoded once up front; generation itself
// never touches the filesystem.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/soundscene/meetmix/internal/rir"
)

// Static errors for manifest validation.
var (
	// ErrNoSpeakers is returned when the manifest lists no speakers.
	ErrNoSpeakers = errors.New("dataset: manifest lists no speakers")
	// ErrNoRIRs is returned when the manifest lists no impulse responses.
	ErrNoRIRs = errors.New("dataset: manifest lists no RIRs")
	// ErrNoUtterances is returned when a speaker has no utterances.
	ErrNoUtterances = errors.New("dataset: speaker has no utterances")
	// ErrSampleRateMismatch is returned when a decoded file disagrees with
	// the manifest sample rate.
	ErrSampleRateMismatch = errors.New("dataset: sample rate mismatch")
)

// Manifest describes the source corpus on disk. Paths are relative to the
// manifest file unless absolute.
type Manifest struct {
	// SampleRate is the corpus sample rate in Hz; every listed file must
	// match it.
	SampleRate int `json:"sample_rate"`
	// Speakers maps a speaker ID to its utterance WAV files (mono).
	Speakers map[string][]string `json:"speakers"`
	// RIRs lists the room impulse response WAV files (any channel count,
	// but all files must agree).
	RIRs []string `json:"rirs"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for structural problems.
func (m *Manifest) Validate() error {
	if m.SampleRate <= 0 {
		return fmt.Errorf("dataset: invalid sample rate %d", m.SampleRate)
	}
	if len(m.Speakers) == 0 {
		return ErrNoSpeakers
	}
	for id, utts := range m.Speakers {
		if len(utts) == 0 {
			return fmt.Errorf("%w: %s", ErrNoUtterances, id)
		}
	}
	if len(m.RIRs) == 0 {
		return ErrNoRIRs
	}
	return nil
}

// Corpus holds the fully decoded source material for meeting generation.
type Corpus struct {
	// SampleRate is the corpus sample rate in Hz.
	SampleRate int
	// Utterances maps a speaker ID to its decoded mono utterances.
	Utterances map[string][][]float64
	// RIRs is the decoded impulse response pool.
	RIRs []rir.Impulse

	speakerIDs []string
}

// Load decodes every file the manifest references. baseDir anchors
// relative paths, typically the manifest's directory.
func Load(m *Manifest, baseDir string) (*Corpus, error) {
	c := &Corpus{
		SampleRate: m.SampleRate,
		Utterances: make(map[string][][]float64, len(m.Speakers)),
	}

	for id, paths := range m.Speakers {
		utts := make([][]float64, len(paths))
		for i, p := range paths {
			channels, rate, err := ReadWAV(resolve(baseDir, p))
			if err != nil {
				return nil, fmt.Errorf("speaker %s: %w", id, err)
			}
			if rate != m.SampleRate {
				return nil, fmt.Errorf("%w: %s has %d Hz, manifest says %d", ErrSampleRateMismatch, p, rate, m.SampleRate)
			}
			// Utterances are mono; extra channels are dropped.
			utts[i] = channels[0]
		}
		c.Utterances[id] = utts
		c.speakerIDs = append(c.speakerIDs, id)
	}
	// Map iteration order is random; keep speaker order deterministic.
	sort.Strings(c.speakerIDs)

	c.RIRs = make([]rir.Impulse, len(m.RIRs))
	for i, p := range m.RIRs {
		channels, rate, err := ReadWAV(resolve(baseDir, p))
		if err != nil {
			return nil, fmt.Errorf("rir: %w", err)
		}
		if rate != m.SampleRate {
			return nil, fmt.Errorf("%w: %s has %d Hz, manifest says %d", ErrSampleRateMismatch, p, rate, m.SampleRate)
		}
		c.RIRs[i] = rir.Impulse{Data: channels}
	}

	return c, nil
}

// SpeakerIDs returns the speaker identifiers in sorted order.
func (c *Corpus) SpeakerIDs() []string {
	return c.speakerIDs
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
