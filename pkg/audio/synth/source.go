package synth

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTooManySources is returned by Schedule when the engine is full.
	ErrTooManySources = errors.New("synth: too many sources")
	// ErrInvalidSource is returned by Schedule for malformed sources.
	ErrInvalidSource = errors.New("synth: invalid source")
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	}
	return fmt.Sprintf("waveform(%d)", int(w))
}

// MarshalText implements encoding.TextMarshaler.
func (w Waveform) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w Waveform) sample(phase float64) float64 {
	s := math.Sin(2 * math.Pi * phase)
	if w == Triangle {
		return 2 / math.Pi * math.Asin(s)
	}
	return s
}

// Bus is a mix group with its own gain. Only BusChords feeds the analyser.
type Bus int

const (
	BusChords Bus = iota
	BusNoise
	BusLead
	numBuses
)

func (b Bus) String() string {
	switch b {
	case BusChords:
		return "chords"
	case BusNoise:
		return "noise"
	case BusLead:
		return "lead"
	}
	return fmt.Sprintf("bus(%d)", int(b))
}

// ParseBus parses a bus name.
func ParseBus(s string) (Bus, error) {
	for b := Bus(0); b < numBuses; b++ {
		if b.String() == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("synth: unknown bus %q", s)
}

// Source describes one scheduled sound. Either Freq (oscillator) or Buffer
// (mono samples at the engine rate) must be set.
type Source struct {
	Label string
	Bus   Bus

	// Start and Stop are in seconds on the engine clock. A Start already in
	// the past starts immediately.
	Start, Stop float64

	Waveform Waveform
	Freq     float64
	Buffer   []float32

	// Cutoff is the lowpass cutoff in Hz; zero bypasses the filter.
	Cutoff float64
	Q      float64

	// Gain automates the amplitude. A nil Gain means unity.
	Gain *Param

	// Pan in [-1, 1] through an equal-power panner. Upmix bypasses the
	// panner and copies the signal to both channels.
	Pan   float64
	Upmix bool

	// Echo, if positive, adds one repeat of the post-gain signal after Echo
	// seconds.
	Echo float64
}

func (s *Source) validate() error {
	switch {
	case s.Stop <= s.Start:
		return fmt.Errorf("%w: stop %.3f not after start %.3f", ErrInvalidSource, s.Stop, s.Start)
	case s.Buffer == nil && s.Freq <= 0:
		return fmt.Errorf("%w: no oscillator frequency or buffer", ErrInvalidSource)
	case s.Pan < -1 || s.Pan > 1:
		return fmt.Errorf("%w: pan %.3f out of range", ErrInvalidSource, s.Pan)
	case s.Bus < 0 || s.Bus >= numBuses:
		return fmt.Errorf("%w: %v", ErrInvalidSource, s.Bus)
	}
	return nil
}

// panGains returns equal-power left/right gains for a mono input.
func panGains(pan float64) (float64, float64) {
	x := (pan + 1) / 2 * math.Pi / 2
	return math.Cos(x), math.Sin(x)
}

// voice is the engine's running state for a Source.
type voice struct {
	src        *Source
	startFrame int64
	stopFrame  int64
	endFrame   int64

	phase  float64
	step   float64
	filter *lowpass
	gl, gr float64

	delay    []float64
	delayPos int
}

func (v *voice) next(frame int64, t float64) float64 {
	var x float64
	if frame < v.stopFrame {
		if v.src.Buffer != nil {
			if i := frame - v.startFrame; i < int64(len(v.src.Buffer)) {
				x = float64(v.src.Buffer[i])
			}
		} else {
			x = v.src.Waveform.sample(v.phase)
			v.phase += v.step
			if v.phase >= 1 {
				v.phase -= 1
			}
		}
		if v.filter != nil {
			x = v.filter.process(x)
		}
		if v.src.Gain != nil {
			x *= v.src.Gain.ValueAt(t)
		}
	}

	if v.delay != nil {
		d := v.delay[v.delayPos]
		v.delay[v.delayPos] = x
		v.delayPos = (v.delayPos + 1) % len(v.delay)
		x += d
	}
	return x
}
