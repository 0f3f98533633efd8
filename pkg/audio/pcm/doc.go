// Package pcm provides types and utilities for working with PCM (Pulse Code Modulation) audio data.
//
// The engine renders interleaved float32 frames; this package turns them into
// 16-bit little-endian chunks for devices and encoders.
//
// Key types:
//   - Format: Represents audio format (sample rate, channels, bit depth)
//   - Chunk: Interface for audio data chunks
//   - DataChunk: Concrete implementation of Chunk for raw audio data
//   - SilenceChunk: Chunk that produces silence of a specified duration
//   - Writer: Interface for writing audio chunks
//
// Example usage:
//
//	format := pcm.L16Stereo48K
//
//	// Bytes needed for 20ms of audio
//	bytes := format.BytesInDuration(20 * time.Millisecond)
//
//	// Encode rendered float frames
//	chunk := format.FloatChunk(frames)
package pcm
