package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/dsputils"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns the magnitude of the first half of the discrete
// Fourier transform of data after removing its mean. data is zero padded to
// the next power of two n, so bin k sits at k*sampleRate/n.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}

	n := dsputils.NextPowerOf2(len(data))
	padded := make([]float64, n)
	copy(padded, data)
	mean := floats.Sum(data) / float64(len(data))
	floats.AddConst(-mean, padded[:len(data)])

	coeffs := fft.FFTReal(padded)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// DominantFrequency is the frequency in Hz of the strongest non-constant bin
// of data sampled at sampleRate. It returns 0 when there is nothing to find.
func DominantFrequency(data []float64, sampleRate float64) float64 {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || !(sampleRate > 0) {
		return 0
	}
	k := floats.MaxIdx(ps[1:]) + 1
	if ps[k] == 0 {
		return 0
	}
	return float64(k) * sampleRate / float64(2*len(ps))
}
