package dataset

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file into per-channel float64 samples scaled
// to [-1, 1) and returns the sample rate.
func ReadWAV(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("dataset: %s is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read PCM buffer: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("dataset: %s has no channels", path)
	}
	if buf.SourceBitDepth < 1 {
		return nil, 0, fmt.Errorf("dataset: %s reports bit depth %d", path, buf.SourceBitDepth)
	}
	frames := len(buf.Data) / channels
	fullScale := float64(int(1) << (buf.SourceBitDepth - 1))

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
		for i := 0; i < frames; i++ {
			out[ch][i] = float64(buf.Data[i*channels+ch]) / fullScale
		}
	}
	return out, buf.Format.SampleRate, nil
}

// WriteWAV encodes per-channel float64 samples as 16-bit PCM. Samples are
// clipped to full scale.
func WriteWAV(w io.WriteSeeker, data [][]float64, sampleRate int) error {
	if len(data) == 0 {
		return fmt.Errorf("dataset: no channels to write")
	}
	channels := len(data)
	frames := len(data[0])

	const bitDepth = 16
	enc := wav.NewEncoder(w, sampleRate, bitDepth, channels, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, frames*channels),
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			buf.Data[i*channels+ch] = quantize16(data[ch][i])
		}
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write PCM buffer: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile encodes data into a new file at path.
func WriteWAVFile(path string, data [][]float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := WriteWAV(f, data, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// quantize16 converts a [-1, 1) sample to a clipped 16-bit integer.
func quantize16(v float64) int {
	s := math.Round(v * 32768)
	if s > 32767 {
		s = 32767
	}
	if s < -32768 {
		s = -32768
	}
	return int(s)
}
