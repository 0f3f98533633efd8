package synth

import (
	"errors"
	"math"
	"testing"

	"github.com/haivivi/ambient/pkg/audio/pcm"
)

const testRate = 48000

func peak(buf []float32, ch int) float64 {
	var p float64
	for i := ch; i < len(buf); i += 2 {
		p = math.Max(p, math.Abs(float64(buf[i])))
	}
	return p
}

func render(e *Engine, seconds float64) []float32 {
	buf := make([]float32, 2*int(seconds*testRate))
	e.Render(buf)
	return buf
}

func TestScheduleValidation(t *testing.T) {
	e := NewEngine(testRate)
	tests := []struct {
		name string
		src  Source
	}{
		{"stop before start", Source{Start: 1, Stop: 1, Freq: 440}},
		{"no signal", Source{Start: 0, Stop: 1}},
		{"pan out of range", Source{Start: 0, Stop: 1, Freq: 440, Pan: 2}},
		{"bad bus", Source{Start: 0, Stop: 1, Freq: 440, Bus: numBuses}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Schedule(&tt.src)
			if !errors.Is(err, ErrInvalidSource) {
				t.Errorf("Schedule() = %v, want ErrInvalidSource", err)
			}
		})
	}
}

func TestScheduleLimit(t *testing.T) {
	e := NewEngine(testRate, WithMaxSources(2))
	for i := 0; i < 2; i++ {
		if err := e.Schedule(&Source{Start: 0, Stop: 1, Freq: 440}); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Schedule(&Source{Start: 0, Stop: 1, Freq: 440}); !errors.Is(err, ErrTooManySources) {
		t.Fatalf("Schedule() = %v, want ErrTooManySources", err)
	}
	render(e, 1)
	if n := e.ActiveSources(); n != 0 {
		t.Errorf("ActiveSources() = %d after expiry, want 0", n)
	}
	if err := e.Schedule(&Source{Start: 1, Stop: 2, Freq: 440}); err != nil {
		t.Errorf("Schedule() after expiry = %v", err)
	}
}

func TestRenderTiming(t *testing.T) {
	e := NewEngine(testRate)
	if err := e.Schedule(&Source{Start: 0.1, Stop: 0.2, Freq: 440, Upmix: true}); err != nil {
		t.Fatal(err)
	}

	if p := peak(render(e, 0.1), 0); p != 0 {
		t.Errorf("peak before start = %v, want 0", p)
	}
	if p := peak(render(e, 0.1), 0); p < 0.9 {
		t.Errorf("peak while playing = %v, want ~1", p)
	}
	if p := peak(render(e, 0.1), 0); p != 0 {
		t.Errorf("peak after stop = %v, want 0", p)
	}
	if got := e.CurrentTime(); !approx(got, 0.3, 1e-9) {
		t.Errorf("CurrentTime() = %v, want 0.3", got)
	}
}

func TestRenderPan(t *testing.T) {
	e := NewEngine(testRate)
	e.Schedule(&Source{Start: 0, Stop: 0.1, Freq: 440, Pan: -1})
	buf := render(e, 0.1)
	if l, r := peak(buf, 0), peak(buf, 1); l < 0.9 || r > 1e-6 {
		t.Errorf("hard left: L=%v R=%v", l, r)
	}

	e.Schedule(&Source{Start: 0.1, Stop: 0.2, Freq: 440})
	buf = render(e, 0.1)
	if l, r := peak(buf, 0), peak(buf, 1); !approx(l, r, 1e-6) || !approx(l, math.Sqrt2/2, 0.01) {
		t.Errorf("center: L=%v R=%v", l, r)
	}
}

func TestRenderGainAndBus(t *testing.T) {
	e := NewEngine(testRate, WithBusGain(BusNoise, 0))
	e.Schedule(&Source{Bus: BusNoise, Start: 0, Stop: 0.1, Freq: 440})
	if p := peak(render(e, 0.1), 0); p != 0 {
		t.Errorf("muted bus peak = %v", p)
	}

	e.SetBusGain(BusNoise, 1)
	e.Schedule(&Source{Bus: BusNoise, Start: 0.1, Stop: 0.2, Freq: 440, Upmix: true, Gain: NewParam(0.25)})
	if p := peak(render(e, 0.1), 0); !approx(p, 0.25, 0.01) {
		t.Errorf("gain 0.25 peak = %v", p)
	}
	if err := e.SetBusGain(numBuses, 1); err == nil {
		t.Error("SetBusGain(unknown) should fail")
	}
}

func TestRenderEcho(t *testing.T) {
	e := NewEngine(testRate)
	e.Schedule(&Source{Start: 0, Stop: 0.05, Freq: 440, Upmix: true, Echo: 0.1})

	first := render(e, 0.05)
	gap := render(e, 0.05)
	echo := render(e, 0.05)
	tail := render(e, 0.05)

	if peak(first, 0) < 0.9 {
		t.Errorf("direct peak = %v", peak(first, 0))
	}
	if p := peak(gap, 0); p != 0 {
		t.Errorf("gap peak = %v, want 0", p)
	}
	if peak(echo, 0) < 0.9 {
		t.Errorf("echo peak = %v", peak(echo, 0))
	}
	if p := peak(tail, 0); p != 0 {
		t.Errorf("tail peak = %v", p)
	}
	if n := e.ActiveSources(); n != 0 {
		t.Errorf("ActiveSources() = %d", n)
	}
}

func TestRenderBuffer(t *testing.T) {
	e := NewEngine(testRate)
	buf := make([]float32, testRate/10)
	for i := range buf {
		buf[i] = 0.5
	}
	e.Schedule(&Source{Start: 0, Stop: 1, Buffer: buf, Upmix: true})
	out := render(e, 0.2)
	if got := out[0]; got != 0.5 {
		t.Errorf("first sample = %v, want 0.5", got)
	}
	if got := out[2*(testRate/10+10)]; got != 0 {
		t.Errorf("sample past buffer end = %v, want 0", got)
	}
}

func TestLowpassAttenuates(t *testing.T) {
	open := NewEngine(testRate)
	open.Schedule(&Source{Start: 0, Stop: 0.5, Freq: 8000, Upmix: true})
	filtered := NewEngine(testRate)
	filtered.Schedule(&Source{Start: 0, Stop: 0.5, Freq: 8000, Upmix: true, Cutoff: 800, Q: 1.5})

	a := peak(render(open, 0.5)[testRate/2:], 0)
	b := peak(render(filtered, 0.5)[testRate/2:], 0)
	if b > a/10 {
		t.Errorf("8kHz through 800Hz lowpass: %v vs open %v", b, a)
	}
}

func TestPastStart(t *testing.T) {
	e := NewEngine(testRate)
	render(e, 0.5)
	if err := e.Schedule(&Source{Start: 0.1, Stop: 0.8, Freq: 440, Upmix: true}); err != nil {
		t.Fatal(err)
	}
	if p := peak(render(e, 0.1), 0); p < 0.9 {
		t.Errorf("late source peak = %v", p)
	}
}

func TestAnalyser(t *testing.T) {
	e := NewEngine(testRate, WithAnalyserSize(256))
	e.Schedule(&Source{Bus: BusLead, Start: 0, Stop: 0.1, Freq: 440})
	render(e, 0.05)
	for _, s := range e.Analyser() {
		if s != 0 {
			t.Fatal("analyser picked up lead bus")
		}
	}
	e.Schedule(&Source{Bus: BusChords, Start: 0, Stop: 0.1, Freq: 440})
	render(e, 0.05)
	a := e.Analyser()
	if len(a) != 256 {
		t.Fatalf("len(Analyser()) = %d", len(a))
	}
	var nonzero bool
	for _, s := range a {
		nonzero = nonzero || s != 0
	}
	if !nonzero {
		t.Error("analyser is silent")
	}
}

func TestRenderChunk(t *testing.T) {
	e := NewEngine(testRate)
	c, err := e.RenderChunk(pcm.L16Stereo48K, 960)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 960*4 {
		t.Errorf("Len() = %d", c.Len())
	}
	if _, err := e.RenderChunk(pcm.L16Stereo44K1, 960); err == nil {
		t.Error("RenderChunk at wrong rate should fail")
	}
}

func TestParseBus(t *testing.T) {
	for b := Bus(0); b < numBuses; b++ {
		got, err := ParseBus(b.String())
		if err != nil || got != b {
			t.Errorf("ParseBus(%q) = %v, %v", b.String(), got, err)
		}
	}
	if _, err := ParseBus("drums"); err == nil {
		t.Error("ParseBus(drums) should fail")
	}
}
