package sampling

import (
	"bytes"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxConcurrentSpeakers: 2,
		PSilence:              0.3,
		MinimumSilence:        100,
		MaximumSilence:        2000,
		SoftMinimumOverlap:    200,
		HardMinimumOverlap:    50,
		MaximumOverlap:        4000,
		Margin:                50,
	}
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(42, 1337))
}

func TestNewUniformSampler_Validation(t *testing.T) {
	t.Run("valid config succeeds", func(t *testing.T) {
		_, err := NewUniformSampler(testConfig(), nil)
		require.NoError(t, err)
	})

	t.Run("minimum silence below margin fails", func(t *testing.T) {
		cfg := testConfig()
		cfg.MinimumSilence = 10
		cfg.Margin = 20
		_, err := NewUniformSampler(cfg, nil)
		require.Error(t, err)
	})

	t.Run("minimum silence not below maximum fails", func(t *testing.T) {
		cfg := testConfig()
		cfg.MinimumSilence = 2000
		cfg.MaximumSilence = 2000
		_, err := NewUniformSampler(cfg, nil)
		require.Error(t, err)
	})

	t.Run("soft minimum overlap above maximum fails", func(t *testing.T) {
		cfg := testConfig()
		cfg.SoftMinimumOverlap = 5000
		_, err := NewUniformSampler(cfg, nil)
		require.Error(t, err)
	})

	t.Run("hard minimum overlap above maximum fails", func(t *testing.T) {
		cfg := testConfig()
		cfg.HardMinimumOverlap = 5000
		_, err := NewUniformSampler(cfg, nil)
		require.Error(t, err)
	})

	t.Run("zero concurrency bound fails", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxConcurrentSpeakers = 0
		_, err := NewUniformSampler(cfg, nil)
		require.Error(t, err)
	})
}

func TestSampleShift_RespectsOverlapBound(t *testing.T) {
	cfg := testConfig()
	s, err := NewUniformSampler(cfg, nil)
	require.NoError(t, err)

	rng := testRNG()

	// Tight window: rejection kicks in, the bound still holds.
	for i := 0; i < 10000; i++ {
		shift := s.SampleShift(1500, rng)
		assert.Greater(t, shift, -1500+cfg.Margin)
	}

	// Wide window: every overlap draw is accepted, so the silence
	// fraction approaches PSilence.
	silence := 0
	for i := 0; i < 10000; i++ {
		shift := s.SampleShift(5000, rng)
		assert.Greater(t, shift, -5000+cfg.Margin)
		if shift >= 0 {
			silence++
		}
	}
	frac := float64(silence) / 10000
	assert.InDelta(t, cfg.PSilence, frac, 0.05)
}

func TestSampleShift_DegenerateWindow(t *testing.T) {
	cfg := testConfig()
	s, err := NewUniformSampler(cfg, nil)
	require.NoError(t, err)

	rng := testRNG()
	for i := 0; i < 1000; i++ {
		// Window at or below the hard minimum: silence only.
		shift := s.SampleShift(cfg.HardMinimumOverlap, rng)
		assert.GreaterOrEqual(t, shift, cfg.Margin)
		assert.GreaterOrEqual(t, shift, cfg.MinimumSilence)
		assert.Less(t, shift, cfg.MaximumSilence)
	}
}

func TestSampleShift_SoftMinimumReturnsMaximumOverlap(t *testing.T) {
	cfg := testConfig()
	s, err := NewUniformSampler(cfg, nil)
	require.NoError(t, err)

	// Between the hard and soft minimum the shift is deterministic.
	shift := s.SampleShift(150, testRNG())
	assert.Equal(t, -150+cfg.Margin, shift)
}

func TestSampleShift_FallbackWarns(t *testing.T) {
	// A sampler whose overlap draws can never satisfy the acceptance
	// criterion: silence is impossible (PSilence=0) and every overlap draw
	// is at least 1000, while the window only allows shifts > -300+50.
	cfg := Config{
		MaxConcurrentSpeakers: 2,
		PSilence:              0,
		MinimumSilence:        100,
		MaximumSilence:        2000,
		SoftMinimumOverlap:    200,
		HardMinimumOverlap:    1000,
		MaximumOverlap:        4000,
		Margin:                50,
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s, err := NewUniformSampler(cfg, logger)
	require.NoError(t, err)

	shift := s.SampleShift(300, testRNG())

	// Fallback samples pure silence.
	assert.GreaterOrEqual(t, shift, cfg.MinimumSilence)
	assert.Less(t, shift, cfg.MaximumSilence)
	assert.Contains(t, buf.String(), "sampling silence")
}

func TestSampleOffset(t *testing.T) {
	cfg := testConfig()
	s, err := NewUniformSampler(cfg, nil)
	require.NoError(t, err)

	t.Run("first utterance is shifted from zero", func(t *testing.T) {
		offset := s.SampleOffset(nil, nil, nil, "a", testRNG())
		assert.GreaterOrEqual(t, offset, cfg.Margin)
	})

	t.Run("offset is relative to the latest end", func(t *testing.T) {
		offsets := []int{0, 5000}
		lengths := []int{8000, 9000}
		ids := []string{"a", "b"}
		rng := testRNG()
		for i := 0; i < 100; i++ {
			offset := s.SampleOffset(offsets, lengths, ids, "c", rng)
			// Latest end is 14000; the allowed overlap reaches back to
			// the second-latest end at 8000.
			assert.Greater(t, offset, 8000+cfg.Margin)
		}
	})
}
