package midiout

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/haivivi/ambient/pkg/ambient"
)

const (
	// TicksPerQuarter is the file resolution.
	TicksPerQuarter = 960
	// Tempo is the file tempo in BPM; with TicksPerQuarter it fixes
	// 1920 ticks per second of audio time.
	Tempo = 120
)

const ticksPerSecond = TicksPerQuarter * Tempo / 60

type noteEvent struct {
	tick int64
	on   bool
	key  uint8
	vel  uint8
	seq  int
}

// Recorder collects chord voices and writes them as a Standard MIDI File
// with one track, on the audio clock.
type Recorder struct {
	channel uint8

	mu     sync.Mutex
	events []noteEvent
	notes  int
}

var _ ambient.VoiceObserver = (*Recorder)(nil)

// NewRecorder creates an empty recorder writing on channel.
func NewRecorder(channel uint8) *Recorder {
	return &Recorder{channel: channel}
}

// VoiceScheduled records the voice's note.
func (r *Recorder) VoiceScheduled(_ float64, v *ambient.Voice) {
	key := Note(v)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes++
	n := len(r.events)
	r.events = append(r.events,
		noteEvent{tick: toTicks(v.Start), on: true, key: key, vel: Velocity(v.Peak), seq: n},
		noteEvent{tick: toTicks(v.Stop), key: key, seq: n + 1},
	)
}

// Notes returns how many notes have been recorded.
func (r *Recorder) Notes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes
}

func toTicks(seconds float64) int64 {
	return int64(math.Round(max(seconds, 0) * ticksPerSecond))
}

// SMF builds the file. Events at the same tick put note-offs first.
func (r *Recorder) SMF() (*smf.SMF, error) {
	r.mu.Lock()
	events := slices.Clone(r.events)
	r.mu.Unlock()

	slices.SortFunc(events, func(a, b noteEvent) int {
		if c := cmp.Compare(a.tick, b.tick); c != 0 {
			return c
		}
		if a.on != b.on {
			if a.on {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.seq, b.seq)
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTempo(Tempo))
	var last int64
	for _, e := range events {
		delta := uint32(e.tick - last)
		last = e.tick
		if e.on {
			track.Add(delta, midi.NoteOn(r.channel, e.key, e.vel))
		} else {
			track.Add(delta, midi.NoteOff(r.channel, e.key))
		}
	}
	track.Close(0)
	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("midiout: add track: %w", err)
	}
	return s, nil
}

// WriteTo writes the file to w.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	s, err := r.SMF()
	if err != nil {
		return 0, err
	}
	n, err := s.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("midiout: write: %w", err)
	}
	return n, nil
}

// WriteFile writes the file to path.
func (r *Recorder) WriteFile(path string) error {
	s, err := r.SMF()
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("midiout: write %s: %w", path, err)
	}
	return nil
}
