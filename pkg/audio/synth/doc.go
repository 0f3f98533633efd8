// Package synth is a small sample-accurate synthesis engine.
//
// Callers describe a sound as a Source: an oscillator or a sample buffer, a
// lowpass filter, a gain automation timeline (Param), a stereo pan and an
// optional echo tap. Sources are scheduled against the engine's audio clock,
// which only advances when Render is called. Finished sources are dropped
// automatically.
//
// Example usage:
//
//	e := synth.NewEngine(48000)
//	gain := synth.NewParam(0).
//		SetValueAtTime(0, 1).
//		LinearRampToValueAtTime(0.15, 1.3).
//		ExponentialRampToValueAtTime(0.001, 6)
//	err := e.Schedule(&synth.Source{
//		Bus:      synth.BusChords,
//		Start:    1,
//		Stop:     4,
//		Waveform: synth.Triangle,
//		Freq:     440,
//		Cutoff:   1000,
//		Q:        1.5,
//		Gain:     gain,
//	})
//
//	frames := make([]float32, 2*960) // interleaved stereo
//	e.Render(frames)
package synth
