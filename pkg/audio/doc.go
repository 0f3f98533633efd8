// Package audio is an umbrella for the audio sub-packages:
//
//   - pcm: 16-bit PCM formats and chunks
//   - synth: the sample-accurate voice engine
//   - analysis: spectrum and pitch-class summaries of the engine output
//   - codec/wav, codec/mp3: file encoders for offline renders
//   - resampler: sample rate conversion
//   - portaudio: the live output device
//
// Example usage:
//
//	import (
//	    "github.com/haivivi/ambient/pkg/audio/pcm"
//	    "github.com/haivivi/ambient/pkg/audio/synth"
//	)
//
//	engine := synth.NewEngine(48000)
//	buf := make([]float32, 2*960)
//	engine.Render(buf)
//	chunk := pcm.L16Stereo48K.FloatChunk(buf)
package audio
