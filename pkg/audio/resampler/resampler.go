package resampler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/haivivi/ambient/pkg/audio/pcm"
)

// Writer resamples chunks from srcFmt to dstFmt and forwards them to the
// destination writer. Both formats must have the same channel count.
// Writer is safe for concurrent use.
type Writer struct {
	dst    pcm.Writer
	srcFmt pcm.Format
	dstFmt pcm.Format

	mu        sync.Mutex
	resampler resampling.Resampler
	scratch   bytes.Buffer
	input     []float64
	closed    bool
}

var _ pcm.WriteCloser = (*Writer)(nil)

// NewWriter creates a Writer. When the sample rates match, chunks are
// forwarded unchanged.
func NewWriter(dst pcm.Writer, srcFmt, dstFmt pcm.Format) (*Writer, error) {
	if srcFmt.Channels() != dstFmt.Channels() {
		return nil, fmt.Errorf("resampler: channel count %d -> %d not supported", srcFmt.Channels(), dstFmt.Channels())
	}

	w := &Writer{dst: dst, srcFmt: srcFmt, dstFmt: dstFmt}
	if srcFmt.SampleRate() != dstFmt.SampleRate() {
		config := &resampling.Config{
			InputRate:  float64(srcFmt.SampleRate()),
			OutputRate: float64(dstFmt.SampleRate()),
			Channels:   srcFmt.Channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
		r, err := resampling.New(config)
		if err != nil {
			return nil, fmt.Errorf("resampler: failed to create resampler: %w", err)
		}
		w.resampler = r
	}
	return w, nil
}

// Write converts one chunk in srcFmt.
func (w *Writer) Write(c pcm.Chunk) error {
	if c.Format() != w.srcFmt {
		return fmt.Errorf("resampler: chunk format %v, want %v", c.Format(), w.srcFmt)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("resampler: write to closed writer")
	}
	if w.resampler == nil {
		return w.dst.Write(c)
	}

	w.scratch.Reset()
	if _, err := c.WriteTo(&w.scratch); err != nil {
		return fmt.Errorf("resampler: read chunk: %w", err)
	}
	data := w.scratch.Bytes()

	// Convert bytes to float64 samples (normalized to -1.0 to 1.0)
	n := len(data) / 2
	if cap(w.input) < n {
		w.input = make([]float64, n)
	}
	input := w.input[:n]
	for i := range input {
		input[i] = float64(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768.0
	}

	output, err := w.resampler.Process(input)
	if err != nil {
		return fmt.Errorf("resampler: resample error: %w", err)
	}
	if len(output) == 0 {
		return nil
	}

	// Keep whole frames only.
	ch := w.dstFmt.Channels()
	output = output[:len(output)/ch*ch]

	out := make([]byte, len(output)*2)
	for i, s := range output {
		var sample int16
		switch {
		case s >= 1.0:
			sample = 32767
		case s <= -1.0:
			sample = -32768
		default:
			sample = int16(s * 32767.0)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return w.dst.Write(w.dstFmt.DataChunk(out))
}

// Close releases the resampler. It does not close the destination.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.resampler = nil
	return nil
}
