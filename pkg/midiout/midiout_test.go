package midiout

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/theory"
)

func voice(note int, start, stop, peak float64) *ambient.Voice {
	return &ambient.Voice{
		Frequency: theory.MidiToFreq(note) + 0.15,
		Start:     start,
		Stop:      stop,
		Peak:      peak,
	}
}

func TestVelocity(t *testing.T) {
	tests := []struct {
		peak float64
		want uint8
	}{
		{0, 1},
		{0.1, 64},
		{0.2, 127},
		{0.5, 127},
	}
	for _, tt := range tests {
		if got := Velocity(tt.peak); got != tt.want {
			t.Errorf("Velocity(%v) = %d, want %d", tt.peak, got, tt.want)
		}
	}
	if got := Note(voice(69, 0, 1, 0.1)); got != 69 {
		t.Errorf("Note = %d, want 69", got)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(0)
	r.VoiceScheduled(0, voice(60, 0.5, 2, 0.15))
	r.VoiceScheduled(0, voice(64, 0.25, 2, 0.12))
	r.VoiceScheduled(0, voice(60, 2, 3, 0.12))
	if r.Notes() != 3 {
		t.Fatalf("Notes() = %d, want 3", r.Notes())
	}

	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(s.Tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(s.Tracks))
	}

	type hit struct {
		tick int64
		on   bool
		key  uint8
	}
	var got []hit
	var tick int64
	for _, ev := range s.Tracks[0] {
		tick += int64(ev.Delta)
		msg := midi.Message(ev.Message)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			got = append(got, hit{tick, true, key})
		case msg.GetNoteEnd(&ch, &key):
			got = append(got, hit{tick, false, key})
		}
	}
	want := []hit{
		{480, true, 64},
		{960, true, 60},
		{3840, false, 60},
		{3840, false, 64},
		{3840, true, 60},
		{5760, false, 60},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	path := filepath.Join(t.TempDir(), "take.mid")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, buf.Bytes()) {
		t.Error("WriteFile and WriteTo produced different files")
	}
}

func TestPort(t *testing.T) {
	sent := make(chan midi.Message, 8)
	p := newPort(func(msg midi.Message) error {
		sent <- msg
		return nil
	}, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	p.VoiceScheduled(10, voice(67, 10.01, 10.05, 0.2))

	var ch, key, vel uint8
	select {
	case msg := <-sent:
		if !msg.GetNoteStart(&ch, &key, &vel) || ch != 2 || key != 67 || vel != 127 {
			t.Errorf("first message = %v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no note-on")
	}
	select {
	case msg := <-sent:
		if !msg.GetNoteEnd(&ch, &key) || key != 67 {
			t.Errorf("second message = %v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no note-off")
	}

	// Close releases held notes and drops pending ones.
	p.VoiceScheduled(0, voice(72, 0, 5, 0.1))
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("no note-on before close")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case msg := <-sent:
		if !msg.GetNoteEnd(&ch, &key) || key != 72 {
			t.Errorf("close message = %v", msg)
		}
	default:
		t.Error("Close did not release the held note")
	}
	p.VoiceScheduled(0, voice(74, 0, 0.01, 0.1))
	time.Sleep(50 * time.Millisecond)
	if len(sent) != 0 {
		t.Errorf("%d messages sent after close", len(sent))
	}
}
