package ambient

import (
	"testing"

	"github.com/google/uuid"

	"github.com/haivivi/ambient/pkg/audio/synth"
)

// seqRand replays a fixed sequence of values and never shuffles.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func (r *seqRand) Shuffle(int, func(i, j int)) {}

func testVoice(freq, start, stop float64) *Voice {
	return &Voice{
		ID:        uuid.New(),
		Frequency: freq,
		Start:     start,
		Stop:      stop,
		Envelope:  synth.NewParam(0).SetValueAtTime(0, start).LinearRampToValueAtTime(0.1, start+0.3),
	}
}

func TestSustainSweepSafety(t *testing.T) {
	r := NewSustainRegistry(NewRand(1))
	for i := 1; i <= 10; i++ {
		r.Add(testVoice(440, 0, float64(i)))
	}

	if n := r.Sweep(5); n != 4 {
		t.Errorf("Sweep(5) removed %d, want 4", n)
	}
	for _, v := range r.Voices() {
		if v.Stop < 5 {
			t.Errorf("voice stopping at %v survived Sweep(5)", v.Stop)
		}
	}
	// A voice stopping exactly at the sweep time is still sounding.
	if r.Len() != 6 {
		t.Errorf("Len() = %d, want 6", r.Len())
	}

	if n := r.Sweep(5); n != 0 {
		t.Errorf("second Sweep(5) removed %d, want 0", n)
	}
	if n := r.Sweep(10.5); n != 6 {
		t.Errorf("Sweep(10.5) removed %d, want 6", n)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after final sweep, want 0", r.Len())
	}
}

func TestSustainSweepLiveness(t *testing.T) {
	rnd := NewRand(7)
	r := NewSustainRegistry(rnd)
	for i := 0; i < 200; i++ {
		r.Add(testVoice(100+rnd.Float64()*900, 0, rnd.Float64()*20))
	}
	for now := 0.0; now <= 21; now += 0.37 {
		r.Sweep(now)
		for _, v := range r.Voices() {
			if now > v.Stop {
				t.Fatalf("voice stopping at %v still registered at %v", v.Stop, now)
			}
		}
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestSustainKeyCollision(t *testing.T) {
	r := NewSustainRegistry(&seqRand{vals: []float64{0.5, 0.5, 0.25}})
	k1 := r.Add(testVoice(440, 0, 1))
	k2 := r.Add(testVoice(440, 0, 1))
	if k1 != 440.5 {
		t.Errorf("first key = %v, want 440.5", k1)
	}
	if k2 != 440.25 {
		t.Errorf("second key = %v, want 440.25", k2)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestDisplayRegistryKeys(t *testing.T) {
	tests := []struct {
		mode DisplayKeyMode
		want int
	}{
		{DisplayKeyFrequency, 1},
		{DisplayKeyVoiceID, 2},
		{"", 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := NewDisplayRegistry(tt.mode)
			a := testVoice(329.63, 0, 5)
			b := testVoice(329.63, 1, 6)
			ka := r.Put(a)
			r.Put(b)
			if r.Len() != tt.want {
				t.Fatalf("Len() = %d, want %d", r.Len(), tt.want)
			}
			// Evicting the first voice's key removes whatever record it
			// names now.
			if !r.Evict(ka) {
				t.Errorf("Evict(%q) = false", ka)
			}
			if r.Len() != tt.want-1 {
				t.Errorf("Len() after evict = %d, want %d", r.Len(), tt.want-1)
			}
			if r.Evict(ka) {
				t.Errorf("second Evict(%q) = true", ka)
			}
		})
	}
}

func TestDisplayStates(t *testing.T) {
	r := NewDisplayRegistry(DisplayKeyFrequency)
	r.Put(testVoice(261.63, 0, 3))
	r.Put(testVoice(440, 0, 9))
	r.Put(testVoice(329.63, 0, 6))
	r.Put(testVoice(392, 0, 1))

	states := r.States(2)
	if len(states) != 4 {
		t.Fatalf("len(States) = %d, want 4", len(states))
	}
	wantNames := []string{"A", "E", "C", "G"}
	wantRemaining := []float64{7, 4, 1, 0}
	for i, st := range states {
		if st.PitchClass != wantNames[i] {
			t.Errorf("states[%d].PitchClass = %q, want %q", i, st.PitchClass, wantNames[i])
		}
		if st.TimeRemaining != wantRemaining[i] {
			t.Errorf("states[%d].TimeRemaining = %v, want %v", i, st.TimeRemaining, wantRemaining[i])
		}
		if st.Gain <= 0 {
			t.Errorf("states[%d].Gain = %v, want > 0", i, st.Gain)
		}
		if _, err := uuid.Parse(st.ID); err != nil {
			t.Errorf("states[%d].ID = %q: %v", i, st.ID, err)
		}
	}
}
