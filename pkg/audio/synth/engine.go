package synth

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/haivivi/ambient/pkg/audio/pcm"
	"github.com/haivivi/ambient/pkg/buffer"
)

const (
	// DefaultMaxSources bounds the number of concurrently scheduled sources.
	DefaultMaxSources = 512
	// DefaultAnalyserSize matches a 2048-point FFT.
	DefaultAnalyserSize = 2048
)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSources sets the source limit.
func WithMaxSources(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSources = n
		}
	}
}

// WithBusGain sets the initial gain of a bus.
func WithBusGain(b Bus, gain float64) Option {
	return func(e *Engine) {
		if b >= 0 && b < numBuses {
			e.busGain[b] = gain
		}
	}
}

// WithAnalyserSize sets how many recent chord-bus samples the analyser keeps.
func WithAnalyserSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.analyserSize = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine mixes scheduled sources into interleaved stereo float32 frames. Its
// clock starts at zero and advances by the number of frames rendered.
//
// All methods are safe for concurrent use.
type Engine struct {
	rate         int
	maxSources   int
	analyserSize int
	logger       *slog.Logger

	analyser *buffer.Window[float32]

	mu      sync.Mutex
	frame   int64
	voices  []*voice
	busGain [numBuses]float64
	tap     []float32
}

// NewEngine creates an engine at the given sample rate.
func NewEngine(sampleRate int, opts ...Option) *Engine {
	e := &Engine{
		rate:         sampleRate,
		maxSources:   DefaultMaxSources,
		analyserSize: DefaultAnalyserSize,
		logger:       slog.Default(),
	}
	for b := range e.busGain {
		e.busGain[b] = 1
	}
	for _, opt := range opts {
		opt(e)
	}
	e.analyser = buffer.WindowN[float32](e.analyserSize)
	return e
}

// SampleRate returns the engine sample rate in Hz.
func (e *Engine) SampleRate() int {
	return e.rate
}

// CurrentTime returns the engine clock in seconds.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeLocked()
}

func (e *Engine) timeLocked() float64 {
	return float64(e.frame) / float64(e.rate)
}

// ActiveSources returns the number of scheduled sources that have not yet
// finished.
func (e *Engine) ActiveSources() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// SetBusGain changes the gain of a bus.
func (e *Engine) SetBusGain(b Bus, gain float64) error {
	if b < 0 || b >= numBuses {
		return fmt.Errorf("synth: set gain: unknown %v", b)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busGain[b] = gain
	return nil
}

// BusGain returns the gain of a bus.
func (e *Engine) BusGain(b Bus) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busGain[b]
}

// Schedule adds a source. The source and its Gain param must not be modified
// afterwards.
func (e *Engine) Schedule(src *Source) error {
	if err := src.validate(); err != nil {
		return err
	}

	v := &voice{
		src:        src,
		startFrame: int64(math.Round(src.Start * float64(e.rate))),
		stopFrame:  int64(math.Round(src.Stop * float64(e.rate))),
	}
	v.endFrame = v.stopFrame
	if src.Buffer == nil {
		v.step = src.Freq / float64(e.rate)
	}
	if src.Cutoff > 0 {
		v.filter = newLowpass(e.rate, src.Cutoff, src.Q)
	}
	if src.Upmix {
		v.gl, v.gr = 1, 1
	} else {
		v.gl, v.gr = panGains(src.Pan)
	}
	if src.Echo > 0 {
		n := int(math.Round(src.Echo * float64(e.rate)))
		if n > 0 {
			v.delay = make([]float64, n)
			v.endFrame += int64(n)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.voices) >= e.maxSources {
		return fmt.Errorf("%w: limit %d", ErrTooManySources, e.maxSources)
	}
	if v.startFrame < e.frame {
		shift := e.frame - v.startFrame
		v.startFrame += shift
		if v.stopFrame <= v.startFrame {
			// Entirely in the past: accept and let it expire unheard.
			v.stopFrame = v.startFrame
		}
		v.endFrame = max(v.endFrame, v.stopFrame)
	}
	e.voices = append(e.voices, v)
	return nil
}

// Render mixes the next len(out)/2 frames into out (interleaved L/R) and
// advances the clock. out is overwritten.
func (e *Engine) Render(out []float32) {
	frames := len(out) / 2
	clear(out)

	e.mu.Lock()
	defer e.mu.Unlock()

	if cap(e.tap) < frames {
		e.tap = make([]float32, frames)
	}
	tap := e.tap[:frames]
	clear(tap)

	base := e.frame
	rate := float64(e.rate)
	for _, v := range e.voices {
		bus := v.src.Bus
		g := e.busGain[bus]
		from := max(v.startFrame-base, 0)
		to := min(v.endFrame-base, int64(frames))
		for i := from; i < to; i++ {
			f := base + i
			x := v.next(f, float64(f)/rate) * g
			l, r := float32(x*v.gl), float32(x*v.gr)
			out[2*i] += l
			out[2*i+1] += r
			if bus == BusChords {
				tap[i] += (l + r) / 2
			}
		}
	}

	e.frame += int64(frames)
	end := e.frame
	kept := e.voices[:0]
	for _, v := range e.voices {
		if v.endFrame > end {
			kept = append(kept, v)
		}
	}
	clear(e.voices[len(kept):])
	e.voices = kept

	e.analyser.Write(tap)
}

// RenderChunk renders frames and encodes them in a stereo pcm format at the
// engine rate.
func (e *Engine) RenderChunk(f pcm.Format, frames int) (pcm.Chunk, error) {
	if f.SampleRate() != e.rate || f.Channels() != 2 {
		return nil, fmt.Errorf("synth: render %v: engine runs at %d Hz stereo", f, e.rate)
	}
	buf := make([]float32, frames*2)
	e.Render(buf)
	return f.FloatChunk(buf), nil
}

// Analyser returns the most recent chord-bus samples, oldest first.
func (e *Engine) Analyser() []float32 {
	return e.analyser.Snapshot(make([]float32, 0, e.analyser.Cap()))
}
