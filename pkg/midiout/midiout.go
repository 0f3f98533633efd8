package midiout

import (
	"math"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/theory"
)

// fullScalePeak is the envelope peak mapped to velocity 127.
const fullScalePeak = 0.2

// Note returns the MIDI key nearest to v's frequency.
func Note(v *ambient.Voice) uint8 {
	return uint8(min(max(theory.FreqToMidi(v.Frequency), 0), 127))
}

// Velocity maps an envelope peak to a note-on velocity in [1, 127].
func Velocity(peak float64) uint8 {
	return uint8(min(max(math.Round(peak/fullScalePeak*127), 1), 127))
}
