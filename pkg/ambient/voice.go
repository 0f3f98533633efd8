package ambient

import (
	"github.com/google/uuid"

	"github.com/haivivi/ambient/pkg/audio/synth"
	"github.com/haivivi/ambient/pkg/theory"
)

// Voice is one scheduled arpeggio note. It is never modified after it has
// been scheduled.
type Voice struct {
	ID        uuid.UUID
	Frequency float64
	Start     float64
	Stop      float64
	Waveform  synth.Waveform
	Pan       float64
	Cutoff    float64
	Peak      float64
	Envelope  *synth.Param

	// Cadential marks the voice-leading note that anticipates the next chord.
	Cadential bool
}

// Gain returns the envelope value at t. The envelope keeps decaying after
// Stop even though the oscillator is silent.
func (v *Voice) Gain(t float64) float64 {
	return v.Envelope.ValueAt(t)
}

// State projects the voice for display at time now.
func (v *Voice) State(now float64) VoiceState {
	return VoiceState{
		ID:            v.ID.String(),
		Frequency:     v.Frequency,
		PitchClass:    theory.PitchClassName(v.Frequency),
		Gain:          v.Gain(now),
		Pan:           v.Pan,
		Waveform:      v.Waveform.String(),
		TimeRemaining: max(v.Stop-now, 0),
		Cadential:     v.Cadential,
	}
}

// VoiceState is the display record of a voice as served by the feed.
type VoiceState struct {
	ID            string  `json:"id" msgpack:"id"`
	Frequency     float64 `json:"frequency_hz" msgpack:"frequency_hz"`
	PitchClass    string  `json:"pitch_class" msgpack:"pitch_class"`
	Gain          float64 `json:"gain" msgpack:"gain"`
	Pan           float64 `json:"pan" msgpack:"pan"`
	Waveform      string  `json:"waveform" msgpack:"waveform"`
	TimeRemaining float64 `json:"time_remaining_s" msgpack:"time_remaining_s"`
	Cadential     bool    `json:"cadential,omitempty" msgpack:"cadential,omitempty"`
}

// VoiceObserver is notified of every chord voice that reaches the engine.
// now is the audio time at which the voice was scheduled.
type VoiceObserver interface {
	VoiceScheduled(now float64, v *Voice)
}
