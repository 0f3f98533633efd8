package ambient

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"

	"github.com/haivivi/ambient/pkg/audio/synth"
	"github.com/haivivi/ambient/pkg/theory"
)

// ChordOptions tunes one ScheduleChord call. Zero values take the configured
// defaults.
type ChordOptions struct {
	// Duration is the measure length in seconds
	Duration float64

	// Density is the number of notes per pass
	Density int

	// Next is the upcoming chord; when set, the last note of the arpeggio
	// is replaced by a tone resolving into it
	Next *theory.ChordSpec
}

// ChordPlayer is what the phrase scheduler drives. VoiceScheduler implements
// it.
type ChordPlayer interface {
	ScheduleChord(chord theory.ChordSpec, opts ChordOptions) []float64
	MelodicLead(at float64, chord theory.ChordSpec)
	SweepExpired(now float64) int
}

// VoiceScheduler turns chords into scheduled engine sources and tracks the
// resulting voices in the sustain and display registries.
type VoiceScheduler struct {
	cfg      Config
	engine   *synth.Engine
	rand     Rand
	sustain  *SustainRegistry
	display  *DisplayRegistry
	timeline *Timeline
	observer VoiceObserver
	logger   *slog.Logger

	warn func(func())

	mu       sync.Mutex
	dropped  int
	lastDrop error
}

var _ ChordPlayer = (*VoiceScheduler)(nil)

// NewVoiceScheduler wires a scheduler to an engine and its registries.
// Display evictions are queued on timeline. observer may be nil.
func NewVoiceScheduler(cfg Config, engine *synth.Engine, r Rand, sustain *SustainRegistry, display *DisplayRegistry, timeline *Timeline, observer VoiceObserver, logger *slog.Logger) *VoiceScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceScheduler{
		cfg:      cfg,
		engine:   engine,
		rand:     r,
		sustain:  sustain,
		display:  display,
		timeline: timeline,
		observer: observer,
		logger:   logger,
		warn:     debounce.New(time.Second),
	}
}

// ScheduleChord arpeggiates chord over one measure starting at the current
// audio time, adds one noise bed, and returns the frequencies it used.
func (s *VoiceScheduler) ScheduleChord(chord theory.ChordSpec, opts ChordOptions) []float64 {
	now := s.engine.CurrentTime()
	vc := s.cfg.Voice
	if opts.Duration <= 0 {
		opts.Duration = s.cfg.Phrase.Measure
	}
	if opts.Density <= 0 {
		opts.Density = s.cfg.Arpeggio.Density
	}

	ctx := theory.DefaultVoicing()
	ctx.Drop3rd = s.rand.Float64() < vc.DropThird
	freqs := theory.ChordFrequencies(chord.Root, chord.Quality, ctx)

	total := opts.Density * s.cfg.Arpeggio.Passes
	onsets := make([]float64, total)
	for i := range onsets {
		onsets[i] = float64(i)*(opts.Duration/float64(total)) + s.rand.Float64()*s.cfg.Arpeggio.Jitter
	}
	s.rand.Shuffle(len(onsets), func(i, j int) {
		onsets[i], onsets[j] = onsets[j], onsets[i]
	})

	var cadence float64
	if opts.Next != nil {
		cadence = theory.CadentialNote(opts.Next.Root, opts.Next.Quality)
	}

	used := make([]float64, 0, total)
	for i := 0; i < total; i++ {
		v := &Voice{ID: uuid.New()}
		if i == total-1 && cadence > 0 {
			v.Frequency = cadence
			v.Cadential = true
		} else {
			v.Frequency = freqs[i%len(freqs)] + uniformSym(s.rand, vc.Detune)
		}
		v.Start = now + onsets[i]
		v.Stop = v.Start + opts.Duration + vc.Tail + s.rand.Float64()*vc.TailJitter
		if s.rand.Float64() < vc.TriangleChance {
			v.Waveform = synth.Triangle
		}
		v.Cutoff = vc.Cutoff.Sample(s.rand)
		v.Peak = vc.Peak.Sample(s.rand)
		v.Envelope = synth.NewParam(0).
			SetValueAtTime(0, v.Start).
			LinearRampToValueAtTime(v.Peak, v.Start+vc.Attack).
			ExponentialRampToValueAtTime(vc.Floor, v.Stop+vc.Release)
		v.Pan = uniformSym(s.rand, vc.Pan)

		err := s.engine.Schedule(&synth.Source{
			Label:    "chord",
			Bus:      synth.BusChords,
			Start:    v.Start,
			Stop:     v.Stop,
			Waveform: v.Waveform,
			Freq:     v.Frequency,
			Cutoff:   v.Cutoff,
			Q:        vc.Q,
			Gain:     v.Envelope,
			Pan:      v.Pan,
		})
		if err != nil {
			s.drop(err)
			continue
		}

		s.sustain.Add(v)
		key := s.display.Put(v)
		s.timeline.At(v.Stop+vc.DisplayLinger, "evict", func(float64) {
			s.display.Evict(key)
		})
		if s.observer != nil {
			s.observer.VoiceScheduled(now, v)
		}
		used = append(used, v.Frequency)
	}

	s.AmbientNoiseBed(now, opts.Duration)
	return used
}

// AmbientNoiseBed schedules two filtered colored-noise layers, panned to
// either side, that swell in and settle out over the measure. The layers are
// not tracked by either registry.
func (s *VoiceScheduler) AmbientNoiseBed(now, duration float64) {
	nc := s.cfg.Noise
	rate := float64(s.engine.SampleRate())
	for _, side := range []float64{-1, 1} {
		buf := make([]float32, int((duration+nc.Tail)*rate))
		var last float64
		for i := range buf {
			white := s.rand.Float64()*2 - 1
			last = (last + nc.Leak*white) / (1 + nc.Leak)
			buf[i] = float32(last * nc.Attenuation)
		}

		cutoff := nc.Cutoff.Sample(s.rand)
		pan := side * nc.Pan.Sample(s.rand)
		start := now + nc.StartOffset
		end := now + duration + nc.ReleaseOffset
		gain := synth.NewParam(nc.Floor).
			SetValueAtTime(nc.Floor, now).
			ExponentialRampToValueAtTime(nc.Peak.Sample(s.rand), start+nc.FadeIn).
			SetTargetAtTime(nc.Floor, end, nc.ReleaseTau)

		err := s.engine.Schedule(&synth.Source{
			Label:  "noise",
			Bus:    synth.BusNoise,
			Start:  start,
			Stop:   end + nc.ReleaseTau,
			Buffer: buf,
			Cutoff: cutoff,
			Q:      nc.Q,
			Gain:   gain,
			Pan:    pan,
		})
		if err != nil {
			s.drop(err)
		}
	}
}

// MelodicLead plays the lowest tones of chord as short staggered triangle
// blips with a single echo, starting at at.
func (s *VoiceScheduler) MelodicLead(at float64, chord theory.ChordSpec) {
	lc := s.cfg.Lead
	freqs := theory.ChordFrequencies(chord.Root, chord.Quality, theory.DefaultVoicing())
	slices.Sort(freqs)
	if len(freqs) > lc.Notes {
		freqs = freqs[:lc.Notes]
	}
	for i, f := range freqs {
		t := at + float64(i)*lc.Stagger
		err := s.engine.Schedule(&synth.Source{
			Label:    "lead",
			Bus:      synth.BusLead,
			Start:    t,
			Stop:     t + lc.Length,
			Waveform: synth.Triangle,
			Freq:     f,
			Cutoff:   lc.Cutoff,
			Gain: synth.NewParam(lc.Peak).
				SetValueAtTime(lc.Peak, t).
				LinearRampToValueAtTime(0, t+lc.Decay),
			Upmix: true,
			Echo:  lc.Echo,
		})
		if err != nil {
			s.drop(err)
		}
	}
	s.logger.Debug("melodic lead", "chord", chord.String(), "at", at, "notes", len(freqs))
}

// SweepExpired removes sustained voices that stopped before now.
func (s *VoiceScheduler) SweepExpired(now float64) int {
	return s.sustain.Sweep(now)
}

// Dropped returns how many sources failed to schedule.
func (s *VoiceScheduler) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// drop records a source that could not be scheduled. One warning carrying
// the running total is logged after a second without drops.
func (s *VoiceScheduler) drop(err error) {
	s.mu.Lock()
	s.dropped++
	s.lastDrop = err
	s.mu.Unlock()
	s.warn(func() {
		s.mu.Lock()
		n, last := s.dropped, s.lastDrop
		s.mu.Unlock()
		s.logger.Warn("voices dropped", "total", n, "error", fmt.Sprint(last))
	})
}
