package signal

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// smallestStd guards against division by zero for all-zero signals.
const smallestStd = 1e-300

// Power returns the mean squared amplitude of a multi-channel signal.
func Power(x [][]float64) float64 {
	var sum float64
	var n int
	for ch := range x {
		for _, v := range x[ch] {
			sum += v * v
		}
		n += len(x[ch])
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Scales converts per-speaker log-domain mixing weights (in dB) into linear
// scale factors relative to the power of each speaker's reverberated signal,
// so that relative loudness across speakers matches the requested weights
// independent of RIR gain. The two slices are parallel.
func Scales(logWeights []float64, signals [][][]float64) []float64 {
	scales := make([]float64, len(signals))
	for k := range signals {
		std := math.Sqrt(Power(signals[k]))
		if std < smallestStd {
			std = smallestStd
		}
		scales[k] = math.Pow(10, logWeights[k]/20) / std
	}
	return scales
}

// ApplyScale multiplies every sample of a multi-channel signal in place.
func ApplyScale(x [][]float64, scale float64) {
	for ch := range x {
		floats.Scale(scale, x[ch])
	}
}
