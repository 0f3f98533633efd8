package theory

import "strings"

// VoicingContext selects which tones a chord voicing carries.
type VoicingContext struct {
	Drop3rd  bool `json:"drop_3rd" yaml:"drop_3rd"`
	Include7 bool `json:"include_7" yaml:"include_7"`
	Include9 bool `json:"include_9" yaml:"include_9"`
}

// DefaultVoicing keeps the third and adds the seventh and ninth.
func DefaultVoicing() VoicingContext {
	return VoicingContext{Include7: true, Include9: true}
}

var chordBase = map[Quality][]int{
	QualityMajor: {0, 4, 7},
	QualityMinor: {0, 3, 7},
	QualityDom:   {0, 4, 7, 10},
	QualitySus2:  {0, 2, 7},
	QualitySus4:  {0, 5, 7},
}

// ChordIntervals returns the semitone offsets of a voicing in table order,
// followed by the appended seventh and ninth.
func ChordIntervals(q Quality, ctx VoicingContext) []int {
	base, ok := chordBase[q.Base()]
	if !ok {
		base = chordBase[QualityMajor]
	}

	intervals := make([]int, 0, len(base)+2)
	for _, iv := range base {
		if ctx.Drop3rd && (iv == 3 || iv == 4) {
			continue
		}
		intervals = append(intervals, iv)
	}
	if ctx.Include7 && q.HasSeventh() {
		if strings.Contains(string(q), "major") {
			intervals = append(intervals, 11)
		} else {
			intervals = append(intervals, 10)
		}
	}
	// The ninth is always added when requested, regardless of quality.
	if ctx.Include9 {
		intervals = append(intervals, 14)
	}
	return intervals
}

// ChordNotes returns the MIDI notes of a voicing.
func ChordNotes(root int, q Quality, ctx VoicingContext) []int {
	intervals := ChordIntervals(q, ctx)
	notes := make([]int, len(intervals))
	for i, iv := range intervals {
		notes[i] = root + iv
	}
	return notes
}

// ChordFrequencies returns the frequencies of a voicing, in the same order
// as ChordNotes.
func ChordFrequencies(root int, q Quality, ctx VoicingContext) []float64 {
	notes := ChordNotes(root, q, ctx)
	freqs := make([]float64, len(notes))
	for i, n := range notes {
		freqs[i] = MidiToFreq(n)
	}
	return freqs
}

// DefaultCadentialIntervals are the intervals CadentialNote prefers when the
// caller passes none.
var DefaultCadentialIntervals = []int{4, 9}

// CadentialNote returns the resolution tone for a chord: the major third above
// the root when 4 is preferred, otherwise the major sixth. With the default
// preference this is always the major third; the quality is not consulted.
func CadentialNote(root int, q Quality, preferred ...int) float64 {
	if len(preferred) == 0 {
		preferred = DefaultCadentialIntervals
	}
	for _, iv := range preferred {
		if iv == 4 {
			return MidiToFreq(root + 4)
		}
	}
	return MidiToFreq(root + 9)
}
