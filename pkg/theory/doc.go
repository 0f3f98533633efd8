// Package theory implements the harmonic vocabulary of the ambient engine:
// pitch/frequency conversion, diatonic scales, degree-to-chord mapping, chord
// voicing and the 24-key rotation.
//
// Everything here is pure and fail-soft. Unknown chord qualities fall back to
// a major triad rather than returning an error.
//
// Example usage:
//
//	key := theory.Key{Root: 60, Mode: theory.Major}
//	chord := theory.ChordFromDegree(4, key.Root, false, key.Mode) // G dom
//	freqs := theory.ChordFrequencies(chord.Root, chord.Quality, theory.DefaultVoicing())
package theory
