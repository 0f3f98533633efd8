package theory

import (
	"fmt"
	"math"
	"strings"
)

// NoteNames are the pitch class names, spelled with sharps.
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// MidiToFreq converts a MIDI note number to its equal-tempered frequency in
// Hz, with A4 (69) at 440 Hz.
func MidiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// FreqToMidi returns the nearest MIDI note number for a frequency.
func FreqToMidi(freq float64) int {
	return int(math.Round(12*math.Log2(freq/440))) + 69
}

// PitchClass returns the pitch class (0-11) nearest to a frequency.
func PitchClass(freq float64) int {
	return mod12(FreqToMidi(freq))
}

// PitchClassName returns the sharp-spelled name of the pitch class nearest to
// a frequency.
func PitchClassName(freq float64) string {
	return NoteNames[PitchClass(freq)]
}

// NoteName returns a note name with octave, e.g. "C4" for 60.
func NoteName(note int) string {
	return fmt.Sprintf("%s%d", NoteNames[mod12(note)], floorDiv(note, 12)-1)
}

// Mode is a diatonic mode.
type Mode string

const (
	Major Mode = "major"
	Minor Mode = "minor"
)

var (
	majorIntervals = [7]int{0, 2, 4, 5, 7, 9, 11}
	minorIntervals = [7]int{0, 2, 3, 5, 7, 8, 10}
)

// Intervals returns the semitone offsets of the mode's seven degrees. Any
// mode other than Minor is treated as Major.
func (m Mode) Intervals() [7]int {
	if m == Minor {
		return minorIntervals
	}
	return majorIntervals
}

// ParseMode parses "major" or "minor", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case Major:
		return Major, nil
	case Minor:
		return Minor, nil
	}
	return "", fmt.Errorf("theory: unknown mode %q", s)
}

// Scale returns the pitch classes of the diatonic scale on root, in degree
// order.
func Scale(root int, mode Mode) []int {
	intervals := mode.Intervals()
	out := make([]int, len(intervals))
	for i, iv := range intervals {
		out[i] = mod12(root + iv)
	}
	return out
}

// InScale reports whether the pitch class of note belongs to the scale.
func InScale(note int, scale []int) bool {
	pc := mod12(note)
	for _, s := range scale {
		if s == pc {
			return true
		}
	}
	return false
}

// Quality is a chord quality: one of major, minor, dom, sus2, sus4,
// optionally suffixed with "7".
type Quality string

const (
	QualityMajor Quality = "major"
	QualityMinor Quality = "minor"
	QualityDom   Quality = "dom"
	QualitySus2  Quality = "sus2"
	QualitySus4  Quality = "sus4"
)

// Base strips the seventh suffix.
func (q Quality) Base() Quality {
	return Quality(strings.Replace(string(q), "7", "", 1))
}

// HasSeventh reports whether the quality carries the seventh flag.
func (q Quality) HasSeventh() bool {
	return strings.Contains(string(q), "7")
}

// WithSeventh returns the quality with the seventh flag appended.
func (q Quality) WithSeventh() Quality {
	return q + "7"
}

// ChordSpec is a chord rooted on a MIDI note.
type ChordSpec struct {
	Root    int     `json:"root" yaml:"root"`
	Quality Quality `json:"quality" yaml:"quality"`
}

// String returns e.g. "G4 dom7".
func (c ChordSpec) String() string {
	return NoteName(c.Root) + " " + string(c.Quality)
}

// ChordFromDegree derives the diatonic chord on a scale degree. The root is
// picked with degree mod 7; the quality table is keyed by the degree itself.
// A cadence appends the seventh flag.
func ChordFromDegree(degree, root int, isCadence bool, mode Mode) ChordSpec {
	intervals := mode.Intervals()
	spec := ChordSpec{Root: root + intervals[mod7(degree)]}

	if mode == Minor {
		switch degree {
		case 0, 5:
			spec.Quality = QualityMinor
		case 3:
			spec.Quality = QualityMajor
		case 4:
			spec.Quality = QualityDom
		default:
			spec.Quality = QualityMinor
		}
	} else {
		switch degree {
		case 0, 3:
			spec.Quality = QualityMajor
		case 4:
			spec.Quality = QualityDom
		default:
			spec.Quality = QualityMinor
		}
	}

	if isCadence {
		spec.Quality = spec.Quality.WithSeventh()
	}
	return spec
}

func mod12(n int) int {
	return ((n % 12) + 12) % 12
}

func mod7(n int) int {
	return ((n % 7) + 7) % 7
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
