package signal

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Convolve computes the linear (non-circular) convolution of a mono source
// with each channel of an impulse response. The result has one slice per
// impulse-response channel, each of length len(src)+len(h[ch])-1. The
// convolution is computed in the frequency domain; the source spectrum is
// transformed once and reused across channels.
func Convolve(src []float64, h [][]float64) [][]float64 {
	if len(src) == 0 || len(h) == 0 || len(h[0]) == 0 {
		return nil
	}

	n := len(src) + len(h[0]) - 1
	fft := fourier.NewFFT(n)

	padded := make([]float64, n)
	copy(padded, src)
	srcCoeff := fft.Coefficients(nil, padded)

	out := make([][]float64, len(h))
	var coeff []complex128
	for ch := range h {
		for i := range padded {
			padded[i] = 0
		}
		copy(padded, h[ch])
		coeff = fft.Coefficients(coeff, padded)
		for i := range coeff {
			coeff[i] *= srcCoeff[i]
		}
		out[ch] = fft.Sequence(nil, coeff)
		// The inverse transform is unnormalized.
		floats.Scale(1/float64(n), out[ch])
	}
	return out
}

// RemoveMean returns a copy of src with its sample mean subtracted.
// Non-zero-mean utterances produce jumps when padded with zero silence,
// so sources are mean-normalized before convolution.
func RemoveMean(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	floats.AddConst(-stat.Mean(src, nil), out)
	return out
}
