// Package analysis turns engine output into visualization data: a magnitude
// spectrum of the analyser tap and per-pitch-class gain shares.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// MinDecibels is the floor reported for silent bins.
const MinDecibels = -100.0

// Spectrum is a magnitude spectrum in dBFS.
type Spectrum struct {
	SampleRate int       `json:"sample_rate" msgpack:"sample_rate"`
	BinHz      float64   `json:"bin_hz" msgpack:"bin_hz"`
	Decibels   []float64 `json:"decibels" msgpack:"decibels"`
}

// ComputeSpectrum applies a Blackman window to samples and returns the
// magnitudes of the first len(samples)/2 bins.
func ComputeSpectrum(samples []float32, sampleRate int) Spectrum {
	n := len(samples)
	out := Spectrum{SampleRate: sampleRate}
	if n < 2 {
		return out
	}

	x := make([]float64, n)
	for i, s := range samples {
		x[i] = float64(s)
	}
	window.Apply(x, window.Blackman)

	bins := fft.FFTReal(x)
	out.BinHz = float64(sampleRate) / float64(n)
	out.Decibels = make([]float64, n/2)
	for i := range out.Decibels {
		mag := cmplx.Abs(bins[i]) / float64(n)
		if mag <= 0 {
			out.Decibels[i] = MinDecibels
			continue
		}
		out.Decibels[i] = math.Max(20*math.Log10(mag), MinDecibels)
	}
	return out
}

// PeakHz returns the center frequency of the loudest bin, or 0 for an empty
// spectrum.
func (s Spectrum) PeakHz() float64 {
	if len(s.Decibels) == 0 {
		return 0
	}
	return float64(floats.MaxIdx(s.Decibels)) * s.BinHz
}

// PitchClassWeight is one voice's contribution to the pitch-class
// distribution.
type PitchClassWeight struct {
	PitchClass int
	Gain       float64
}

// PitchClassDistribution sums gains per pitch class.
type PitchClassDistribution struct {
	Gains  [12]float64 `json:"gains" msgpack:"gains"`
	Shares [12]float64 `json:"shares" msgpack:"shares"`
	Total  float64     `json:"total" msgpack:"total"`
}

// pitchClassEpsilon keeps shares finite when everything is silent.
const pitchClassEpsilon = 0.0001

// PitchClasses aggregates weights into a 12-bin distribution. Shares are the
// gains divided by their total, so they sum to slightly less than one.
func PitchClasses(weights []PitchClassWeight) PitchClassDistribution {
	var d PitchClassDistribution
	for _, w := range weights {
		if w.PitchClass < 0 || w.PitchClass >= 12 {
			continue
		}
		d.Gains[w.PitchClass] += w.Gain
	}
	d.Total = floats.Sum(d.Gains[:])
	copy(d.Shares[:], d.Gains[:])
	floats.Scale(1/(d.Total+pitchClassEpsilon), d.Shares[:])
	return d
}

// Dominant returns the pitch class with the largest gain and whether any
// gain was present.
func (d PitchClassDistribution) Dominant() (int, bool) {
	if d.Total <= 0 {
		return 0, false
	}
	return floats.MaxIdx(d.Gains[:]), true
}
