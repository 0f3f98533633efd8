package pcm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

const (
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K Format = iota
	// L16Stereo44K1 represents audio/L16; rate=44100; channels=2
	L16Stereo44K1
	// L16Stereo48K represents audio/L16; rate=48000; channels=2
	L16Stereo48K
)

// Chunk is a chunk of audio data.
type Chunk interface {
	Len() int64
	Format() Format
	WriteTo(w io.Writer) (int64, error)
}

// Format represents an audio format configuration.
type Format int

// StereoFormat returns the 16-bit stereo format for the given sample rate.
func StereoFormat(sampleRate int) (Format, error) {
	switch sampleRate {
	case 44100:
		return L16Stereo44K1, nil
	case 48000:
		return L16Stereo48K, nil
	}
	return 0, fmt.Errorf("pcm: unsupported stereo sample rate %d", sampleRate)
}

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono48K, L16Stereo48K:
		return 48000
	case L16Stereo44K1:
		return 44100
	}
	panic("pcm: invalid audio type")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	switch f {
	case L16Mono48K:
		return 1
	case L16Stereo44K1, L16Stereo48K:
		return 2
	}
	panic("pcm: invalid audio type")
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	switch f {
	case L16Mono48K, L16Stereo44K1, L16Stereo48K:
		return 16
	}
	panic("pcm: invalid audio type")
}

// FrameBytes returns the size of one frame (one sample per channel) in bytes.
func (f Format) FrameBytes() int {
	return f.Channels() * f.Depth() / 8
}

// Frames returns the number of frames in the given number of bytes.
func (f Format) Frames(bytes int64) int64 {
	return bytes / int64(f.FrameBytes())
}

// FramesInDuration returns the number of frames in the given duration.
func (f Format) FramesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.FramesInDuration(d) * int64(f.FrameBytes())
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Frames(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.FrameBytes()
}

// SilenceChunk returns a silence chunk of the given duration.
func (f Format) SilenceChunk(duration time.Duration) Chunk {
	return &SilenceChunk{
		Duration: duration,
		len:      f.BytesInDuration(duration),
		fmt:      f,
	}
}

// DataChunk returns a chunk of audio data.
func (f Format) DataChunk(data []byte) Chunk {
	return &DataChunk{
		Data: data,
		fmt:  f,
	}
}

// FloatChunk encodes interleaved float samples in [-1, 1] as little-endian
// 16-bit PCM. Samples outside the range are clipped.
func (f Format) FloatChunk(samples []float32) Chunk {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(FloatToInt16(s)))
	}
	return f.DataChunk(data)
}

// FloatToInt16 converts a float sample to a clipped 16-bit sample.
func FloatToInt16(s float32) int16 {
	v := math.Round(float64(s) * math.MaxInt16)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < -math.MaxInt16 {
		return -math.MaxInt16
	}
	return int16(v)
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	case L16Stereo44K1:
		return "audio/L16; rate=44100; channels=2"
	case L16Stereo48K:
		return "audio/L16; rate=48000; channels=2"
	}
	panic("pcm: invalid audio type")
}

// DataChunk is a chunk of audio data.
type DataChunk struct {
	Data []byte
	fmt  Format
}

// Len returns the length of the audio data in bytes.
func (c *DataChunk) Len() int64 {
	return int64(len(c.Data))
}

// Format returns the audio format of this chunk.
func (c *DataChunk) Format() Format {
	return c.fmt
}

// WriteTo writes the audio data to the writer.
func (c *DataChunk) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Data)
	return int64(n), err
}

// SilenceChunk is a chunk of silence.
type SilenceChunk struct {
	Duration time.Duration
	len      int64
	fmt      Format
}

// Len returns the length of the silence in bytes.
func (c *SilenceChunk) Len() int64 {
	return c.len
}

// Format returns the audio format of this chunk.
func (c *SilenceChunk) Format() Format {
	return c.fmt
}

var emptyBytes [19200]byte

// WriteTo writes silence (zero bytes) to the writer.
func (c *SilenceChunk) WriteTo(w io.Writer) (int64, error) {
	tw := c.len
	wn := int64(0)
	for tw > 0 {
		var silence []byte
		if tw > int64(len(emptyBytes)) {
			silence = emptyBytes[:]
			tw -= int64(len(silence))
		} else {
			silence = emptyBytes[:tw]
			tw = 0
		}
		n, err := w.Write(silence)
		if err != nil {
			return 0, err
		}
		wn += int64(n)
	}
	return wn, nil
}
