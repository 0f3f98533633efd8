package ambient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haivivi/ambient/pkg/audio/analysis"
	"github.com/haivivi/ambient/pkg/audio/pcm"
	"github.com/haivivi/ambient/pkg/audio/synth"
	"github.com/haivivi/ambient/pkg/theory"
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRand replaces the random source.
func WithRand(r Rand) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.rand = r
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDevice sets the output device resumed by Trigger and written by Run.
func WithDevice(d Device) SessionOption {
	return func(s *Session) {
		s.device = d
	}
}

// WithObserver receives every scheduled chord voice.
func WithObserver(o VoiceObserver) SessionOption {
	return func(s *Session) {
		s.observer = o
	}
}

// Session owns one performance: the engine, the registries, the key cycle
// and both schedulers. Bookkeeping runs on the audio clock inside Process,
// so all scheduling happens on whichever goroutine renders. The query
// methods are safe to call from any goroutine.
type Session struct {
	cfg      Config
	format   pcm.Format
	frames   int
	rand     Rand
	logger   *slog.Logger
	device   Device
	observer VoiceObserver

	engine   *synth.Engine
	sustain  *SustainRegistry
	display  *DisplayRegistry
	keys     *theory.KeyCycle
	timeline Timeline
	voices   *VoiceScheduler
	phrases  *PhraseScheduler

	mu      sync.Mutex
	started bool
	wake    chan struct{}
}

// NewSession validates cfg and builds an idle session.
func NewSession(cfg Config, opts ...SessionOption) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := cfg.Format()
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:    cfg,
		format: format,
		frames: int(format.FramesInDuration(cfg.Block())),
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rand == nil {
		s.rand = NewRand(cfg.Seed)
	}
	if s.device == nil {
		s.device = NewNullDevice(format)
	}

	engineOpts := []synth.Option{
		synth.WithMaxSources(cfg.Engine.MaxSources),
		synth.WithLogger(s.logger),
	}
	for name, gain := range cfg.Engine.BusGains {
		bus, err := synth.ParseBus(name)
		if err != nil {
			return nil, fmt.Errorf("ambient: bus gains: %w", err)
		}
		engineOpts = append(engineOpts, synth.WithBusGain(bus, gain))
	}
	s.engine = synth.NewEngine(cfg.Engine.SampleRate, engineOpts...)

	s.sustain = NewSustainRegistry(s.rand)
	s.display = NewDisplayRegistry(cfg.Voice.DisplayKey)
	s.keys = theory.NewKeyCycle(cfg.Keys())
	s.voices = NewVoiceScheduler(cfg, s.engine, s.rand, s.sustain, s.display, &s.timeline, s.observer, s.logger)
	s.phrases = NewPhraseScheduler(cfg, s.voices, s.keys, &s.timeline, s.logger)
	return s, nil
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Format returns the output format of Process.
func (s *Session) Format() pcm.Format {
	return s.format
}

// Engine returns the underlying engine.
func (s *Session) Engine() *synth.Engine {
	return s.engine
}

// Voices returns the voice scheduler.
func (s *Session) Voices() *VoiceScheduler {
	return s.voices
}

// Trigger is the start signal. It resumes the device and, the first time
// only, starts the phrases at the current audio time. A device failure is
// returned but does not prevent the phrases from starting; the next Trigger
// retries the device.
func (s *Session) Trigger() error {
	resumeErr := s.device.Resume()
	if resumeErr != nil {
		s.logger.Warn("resume audio device", "error", resumeErr)
		resumeErr = fmt.Errorf("ambient: resume device: %w", resumeErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify()
	if s.started {
		return resumeErr
	}
	s.started = true
	if err := s.phrases.Start(s.engine.CurrentTime()); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		return err
	}
	if every := s.cfg.Voice.SweepInterval; every > 0 {
		s.sweepEvery(s.engine.CurrentTime()+every, every)
	}
	key, _ := s.phrases.Key()
	s.logger.Info("performance started", "key", key.String())
	return resumeErr
}

// sweepEvery keeps one sweep pending on the timeline so expired voices leave
// the sustain registry after the phrases stop.
func (s *Session) sweepEvery(at, every float64) {
	s.timeline.At(at, "sweep", func(now float64) {
		if n := s.voices.SweepExpired(now); n > 0 {
			s.logger.Debug("swept expired voices", "count", n, "time", now)
		}
		s.sweepEvery(now+every, every)
	})
}

// Started reports whether Trigger has started the phrases.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Stop cancels the phrase chain. Sounding voices ring out.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phrases.Stop()
}

// Process runs the bookkeeping due at the current audio time, then renders
// the next block of frames.
func (s *Session) Process(frames int) pcm.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline.RunDue(s.engine.CurrentTime())
	buf := make([]float32, 2*frames)
	s.engine.Render(buf)
	return s.format.FloatChunk(buf)
}

// BlockFrames returns the number of frames Run renders per block.
func (s *Session) BlockFrames() int {
	return s.frames
}

// Run renders blocks into the device until ctx is done. While the device is
// inactive nothing is rendered and the audio clock stands still.
func (s *Session) Run(ctx context.Context) error {
	idle := time.NewTicker(100 * time.Millisecond)
	defer idle.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if !s.device.Active() {
			select {
			case <-ctx.Done():
				return nil
			case <-s.wake:
			case <-idle.C:
			}
			continue
		}
		if err := s.device.Write(s.Process(s.frames)); err != nil {
			return fmt.Errorf("ambient: write device: %w", err)
		}
	}
}

func (s *Session) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// KeyInfo describes a key for the feed.
type KeyInfo struct {
	Name  string   `json:"name" msgpack:"name"`
	Root  int      `json:"root" msgpack:"root"`
	Mode  string   `json:"mode" msgpack:"mode"`
	Index int      `json:"index" msgpack:"index"`
	Scale []string `json:"scale" msgpack:"scale"`

	// Next is the key of the following phrase once phrases are running
	Next string `json:"next,omitempty" msgpack:"next,omitempty"`
}

// keyInfo describes the sounding key.
func (s *Session) keyInfo() KeyInfo {
	k, index := s.phrases.Key()
	info := describeKey(k, index)
	if s.phrases.State() == PhraseRunning {
		info.Next = s.keys.Current().String()
	}
	return info
}

func describeKey(k theory.Key, index int) KeyInfo {
	scale := k.Scale()
	names := make([]string, len(scale))
	for i, pc := range scale {
		names[i] = theory.NoteNames[pc]
	}
	return KeyInfo{
		Name:  k.String(),
		Root:  k.Root,
		Mode:  string(k.Mode),
		Index: index,
		Scale: names,
	}
}

// Snapshot is the pull-based voice-state feed.
type Snapshot struct {
	Time    float64      `json:"time" msgpack:"time"`
	State   string       `json:"state" msgpack:"state"`
	Key     KeyInfo      `json:"key" msgpack:"key"`
	Phrases int          `json:"phrases" msgpack:"phrases"`
	Voices  []VoiceState `json:"voices" msgpack:"voices"`
}

// Snapshot returns every displayed voice, longest remaining first.
func (s *Session) Snapshot() Snapshot {
	now := s.engine.CurrentTime()
	return Snapshot{
		Time:    now,
		State:   s.phrases.State().String(),
		Key:     s.keyInfo(),
		Phrases: s.phrases.Phrases(),
		Voices:  s.display.States(now),
	}
}

// PitchClasses sums the instantaneous gain of displayed voices that are still
// sounding, per pitch class.
func (s *Session) PitchClasses() analysis.PitchClassDistribution {
	now := s.engine.CurrentTime()
	states := s.display.States(now)
	weights := make([]analysis.PitchClassWeight, 0, len(states))
	for _, st := range states {
		if st.TimeRemaining <= 0 {
			continue
		}
		weights = append(weights, analysis.PitchClassWeight{
			PitchClass: theory.PitchClass(st.Frequency),
			Gain:       st.Gain,
		})
	}
	return analysis.PitchClasses(weights)
}

// Spectrum returns the magnitude spectrum of the recent chord voices.
func (s *Session) Spectrum() analysis.Spectrum {
	return analysis.ComputeSpectrum(s.engine.Analyser(), s.engine.SampleRate())
}

// Status summarizes the session.
type Status struct {
	Time          float64 `json:"time" msgpack:"time"`
	State         string  `json:"state" msgpack:"state"`
	Started       bool    `json:"started" msgpack:"started"`
	DeviceActive  bool    `json:"device_active" msgpack:"device_active"`
	Key           KeyInfo `json:"key" msgpack:"key"`
	Phrases       int     `json:"phrases" msgpack:"phrases"`
	ActiveSources int     `json:"active_sources" msgpack:"active_sources"`
	Sustained     int     `json:"sustained" msgpack:"sustained"`
	Displayed     int     `json:"displayed" msgpack:"displayed"`
	Dropped       int     `json:"dropped" msgpack:"dropped"`
}

// Status returns counters for monitoring.
func (s *Session) Status() Status {
	return Status{
		Time:          s.engine.CurrentTime(),
		State:         s.phrases.State().String(),
		Started:       s.Started(),
		DeviceActive:  s.device.Active(),
		Key:           s.keyInfo(),
		Phrases:       s.phrases.Phrases(),
		ActiveSources: s.engine.ActiveSources(),
		Sustained:     s.sustain.Len(),
		Displayed:     s.display.Len(),
		Dropped:       s.voices.Dropped(),
	}
}
