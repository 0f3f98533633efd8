package synth

import "math"

// lowpass is an RBJ cookbook biquad lowpass filter in direct form II.
type lowpass struct {
	b0, b1, b2 float64
	a1, a2     float64
	w1, w2     float64
}

func newLowpass(sampleRate int, cutoff, q float64) *lowpass {
	if q <= 0 {
		q = math.Sqrt2 / 2
	}
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	return &lowpass{
		b0: (1 - cosW0) / 2 / a0,
		b1: (1 - cosW0) / a0,
		b2: (1 - cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *lowpass) process(x float64) float64 {
	w := x - f.a1*f.w1 - f.a2*f.w2
	y := f.b0*w + f.b1*f.w1 + f.b2*f.w2
	f.w2 = f.w1
	f.w1 = w
	return y
}
