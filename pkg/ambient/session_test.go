package ambient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/haivivi/ambient/pkg/audio/pcm"
)

type fakeDevice struct {
	mu      sync.Mutex
	fail    int
	resumes int
	active  bool
	writes  int
	bytes   int64
	onWrite func(n int)
}

func (d *fakeDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	if d.fail > 0 {
		d.fail--
		return errors.New("device busy")
	}
	d.active = true
	return nil
}

func (d *fakeDevice) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *fakeDevice) Write(c pcm.Chunk) error {
	d.mu.Lock()
	d.writes++
	d.bytes += c.Len()
	n, fn := d.writes, d.onWrite
	d.mu.Unlock()
	if fn != nil {
		fn(n)
	}
	return nil
}

// fastConfig shortens measures and tails so tests render whole phrases
// quickly.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Phrase.Measure = 0.25
	cfg.Voice.Tail = 0.2
	cfg.Voice.TailJitter = 0.1
	cfg.Voice.Release = 0.1
	cfg.Voice.DisplayLinger = 0.1
	cfg.Noise.Tail = 0.2
	cfg.Noise.ReleaseOffset = 0.1
	cfg.Noise.ReleaseTau = 0.1
	cfg.Lead.LeadIn = 0.1
	cfg.Seed = 3
	return cfg
}

func TestSessionTriggerOnce(t *testing.T) {
	dev := &fakeDevice{}
	s, err := NewSession(fastConfig(), WithDevice(dev), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Started() {
		t.Fatal("session started before trigger")
	}
	for i := 0; i < 3; i++ {
		if err := s.Trigger(); err != nil {
			t.Fatalf("Trigger %d: %v", i, err)
		}
	}
	st := s.Status()
	if !st.Started || st.State != "running" {
		t.Errorf("status = %+v, want started and running", st)
	}
	if st.Phrases != 1 {
		t.Errorf("Phrases = %d, want 1", st.Phrases)
	}
	if dev.resumes != 3 {
		t.Errorf("resumes = %d, want 3", dev.resumes)
	}
}

func TestSessionTriggerRetriesDevice(t *testing.T) {
	dev := &fakeDevice{fail: 1}
	s, err := NewSession(fastConfig(), WithDevice(dev), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Trigger(); err == nil {
		t.Error("first Trigger succeeded on a failing device")
	}
	if !s.Started() {
		t.Error("device failure prevented the phrases from starting")
	}
	if dev.Active() {
		t.Error("device active after failed resume")
	}
	if err := s.Trigger(); err != nil {
		t.Errorf("second Trigger: %v", err)
	}
	if !dev.Active() {
		t.Error("device inactive after retry")
	}
	if n := s.Status().Phrases; n != 1 {
		t.Errorf("Phrases = %d, want 1", n)
	}
}

func TestSessionProcess(t *testing.T) {
	s, err := NewSession(fastConfig(), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	frames := s.BlockFrames()
	if frames != 960 {
		t.Fatalf("BlockFrames() = %d, want 960", frames)
	}

	// Nothing is scheduled before the trigger.
	s.Process(frames)
	if n := s.Engine().ActiveSources(); n != 0 {
		t.Errorf("ActiveSources() before trigger = %d", n)
	}

	if err := s.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	first := s.Snapshot().Key
	if first.Name != "C major" || first.Index != 0 || first.Next != "C minor" {
		t.Errorf("key after trigger = %+v, want C major at 0, next C minor", first)
	}

	var total int64
	blocks := 0
	for s.Engine().CurrentTime() < 1 {
		c := s.Process(frames)
		total += c.Len()
		blocks++
	}
	if want := int64(blocks * frames * 4); total != want {
		t.Errorf("rendered %d bytes in %d blocks, want %d", total, blocks, want)
	}

	snap := s.Snapshot()
	if len(snap.Voices) == 0 {
		t.Fatal("no voices in snapshot")
	}
	for i := 1; i < len(snap.Voices); i++ {
		if snap.Voices[i].TimeRemaining > snap.Voices[i-1].TimeRemaining {
			t.Errorf("voices not sorted by time remaining at %d", i)
		}
	}
	if snap.State != "running" {
		t.Errorf("State = %q, want running", snap.State)
	}

	if k := s.Snapshot().Key; k.Name != "C major" {
		t.Errorf("key during the first phrase = %q, want C major", k.Name)
	}

	// One phrase lasts 2 s; by 2.5 s the second phrase sounds in the second key.
	for s.Engine().CurrentTime() < 2.5 {
		s.Process(frames)
	}
	snap = s.Snapshot()
	if snap.Phrases != 2 {
		t.Errorf("Phrases = %d, want 2", snap.Phrases)
	}
	if snap.Key.Index != 1 || snap.Key.Name != "C minor" || snap.Key.Next != "C# major" {
		t.Errorf("key = %+v, want C minor at 1, next C# major", snap.Key)
	}

	pcs := s.PitchClasses()
	if pcs.Total <= 0 {
		t.Errorf("pitch-class total = %v, want > 0", pcs.Total)
	}
	spec := s.Spectrum()
	if len(spec.Decibels) != 1024 {
		t.Errorf("spectrum bins = %d, want 1024", len(spec.Decibels))
	}

	// Sustained voices from the first measures have been swept.
	if st := s.Status(); st.Sustained >= 2*8*10 {
		t.Errorf("sustained = %d, expected sweeps to remove expired voices", st.Sustained)
	}
}

func TestSessionStop(t *testing.T) {
	s, err := NewSession(fastConfig(), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	s.Process(s.BlockFrames())
	s.Stop()
	for s.Engine().CurrentTime() < 5 {
		s.Process(s.BlockFrames())
	}
	st := s.Status()
	if st.State != "idle" || st.Phrases != 1 {
		t.Errorf("status after stop = %+v", st)
	}
	if st.ActiveSources != 0 {
		t.Errorf("ActiveSources = %d after ring-out, want 0", st.ActiveSources)
	}
	// Stopped sessions ignore further triggers.
	if err := s.Trigger(); err != nil {
		t.Errorf("Trigger after stop: %v", err)
	}
	if s.Status().State != "idle" {
		t.Error("trigger restarted a stopped session")
	}
}

func TestSessionSweepAfterStop(t *testing.T) {
	tests := []struct {
		name      string
		interval  float64
		wantEmpty bool
	}{
		{"periodic", 0.5, true},
		{"disabled", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastConfig()
			cfg.Voice.SweepInterval = tt.interval
			s, err := NewSession(cfg, WithLogger(discardLogger()))
			if err != nil {
				t.Fatalf("NewSession: %v", err)
			}
			if err := s.Trigger(); err != nil {
				t.Fatalf("Trigger: %v", err)
			}
			// The first chord is scheduled, then the chain stops before
			// any later measure can sweep.
			s.Process(s.BlockFrames())
			s.Stop()
			if n := s.Status().Sustained; n == 0 {
				t.Fatal("no sustained voices after the first measure")
			}
			for s.Engine().CurrentTime() < 3 {
				s.Process(s.BlockFrames())
			}
			if got := s.Status().Sustained == 0; got != tt.wantEmpty {
				t.Errorf("Sustained = %d after ring-out, want empty %v", s.Status().Sustained, tt.wantEmpty)
			}
		})
	}
}

func TestSessionRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev := &fakeDevice{onWrite: func(n int) {
		if n == 10 {
			cancel()
		}
	}}
	s, err := NewSession(fastConfig(), WithDevice(dev), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if err := s.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.writes < 10 {
		t.Errorf("writes = %d, want at least 10", dev.writes)
	}
	if dev.bytes != int64(dev.writes*960*4) {
		t.Errorf("bytes = %d for %d writes", dev.bytes, dev.writes)
	}
}

func TestNewSessionRejectsConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.BusGains = map[string]float64{"drums": 1}
	if _, err := NewSession(cfg); err == nil {
		t.Error("NewSession accepted an unknown bus")
	}
	cfg = DefaultConfig()
	cfg.Phrase.Progression = nil
	if _, err := NewSession(cfg); err == nil {
		t.Error("NewSession accepted an empty progression")
	}
}
