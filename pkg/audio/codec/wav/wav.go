// Package wav writes pcm chunks to RIFF/WAVE files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/haivivi/ambient/pkg/audio/pcm"
)

// wavePCM is the WAVE_FORMAT_PCM format tag.
const wavePCM = 1

// Writer encodes chunks of a single pcm.Format into a WAV file. The header is
// finalized on Close, so the destination must be seekable.
type Writer struct {
	format pcm.Format

	mu     sync.Mutex
	enc    *gowav.Encoder
	buf    audio.IntBuffer
	closed bool
}

var _ pcm.WriteCloser = (*Writer)(nil)

// NewWriter returns a Writer for chunks in format f.
func NewWriter(ws io.WriteSeeker, f pcm.Format) *Writer {
	return &Writer{
		format: f,
		enc:    gowav.NewEncoder(ws, f.SampleRate(), f.Depth(), f.Channels(), wavePCM),
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: f.Channels(), SampleRate: f.SampleRate()},
			SourceBitDepth: f.Depth(),
		},
	}
}

// Write appends a chunk. Its format must match the writer's.
func (w *Writer) Write(c pcm.Chunk) error {
	if c.Format() != w.format {
		return fmt.Errorf("wav: chunk format %v, want %v", c.Format(), w.format)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("wav: writer is closed")
	}

	raw := chunkBytes(c)
	n := len(raw) / 2
	if cap(w.buf.Data) < n {
		w.buf.Data = make([]int, n)
	}
	w.buf.Data = w.buf.Data[:n]
	for i := range n {
		w.buf.Data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	if err := w.enc.Write(&w.buf); err != nil {
		return fmt.Errorf("wav: write: %w", err)
	}
	return nil
}

// Close writes the final header sizes.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("wav: close: %w", err)
	}
	return nil
}

func chunkBytes(c pcm.Chunk) []byte {
	if dc, ok := c.(*pcm.DataChunk); ok {
		return dc.Data
	}
	var b byteSink
	c.WriteTo(&b)
	return b
}

type byteSink []byte

func (b *byteSink) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
