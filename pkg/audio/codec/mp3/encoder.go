package mp3

/*
#cgo darwin CFLAGS: -I/opt/homebrew/include
#cgo darwin LDFLAGS: -L/opt/homebrew/lib -lmp3lame
#cgo linux pkg-config: mp3lame
#include <lame/lame.h>
#include <stdlib.h>

// Wrapper to handle lame_encode_buffer_interleaved with proper typing
static int lame_encode_interleaved(lame_global_flags* gf, const short* pcm, int num_samples, unsigned char* mp3buf, int mp3buf_size) {
    return lame_encode_buffer_interleaved(gf, (short*)pcm, num_samples, mp3buf, mp3buf_size);
}
*/
import "C"
import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"unsafe"

	"github.com/haivivi/ambient/pkg/audio/pcm"
)

// Quality presets for encoding
type Quality int

const (
	QualityBest   Quality = 0 // ~245 kbps
	QualityHigh   Quality = 2 // ~190 kbps
	QualityMedium Quality = 5 // ~130 kbps
	QualityLow    Quality = 7 // ~100 kbps
	QualityWorst  Quality = 9 // ~65 kbps
)

// Encoder encodes 16-bit pcm chunks to MP3. It implements pcm.WriteCloser;
// Close flushes the final frames.
type Encoder struct {
	w      io.Writer
	format pcm.Format

	mu      sync.Mutex
	lame    *C.lame_global_flags // Use pointer for incomplete C type
	quality Quality
	bitrate int // 0 = use VBR quality
	inited  bool
	closed  bool

	scratch bytes.Buffer
	mp3buf  []byte
}

var _ pcm.WriteCloser = (*Encoder)(nil)

// EncoderOption configures the encoder.
type EncoderOption func(*Encoder)

// WithQuality sets the VBR quality (0=best, 9=worst).
func WithQuality(q Quality) EncoderOption {
	return func(e *Encoder) {
		e.quality = q
	}
}

// WithBitrate sets constant bitrate mode (in kbps).
// Common values: 128, 192, 256, 320
func WithBitrate(kbps int) EncoderOption {
	return func(e *Encoder) {
		e.bitrate = kbps
	}
}

// NewEncoder creates a new MP3 encoder writing to w for chunks in format f.
func NewEncoder(w io.Writer, f pcm.Format, opts ...EncoderOption) (*Encoder, error) {
	if f.Depth() != 16 {
		return nil, fmt.Errorf("mp3: unsupported bit depth %d", f.Depth())
	}

	e := &Encoder{
		w:       w,
		format:  f,
		quality: QualityMedium,
		mp3buf:  make([]byte, 8192),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// init initializes LAME encoder (called on first write)
func (e *Encoder) init() error {
	if e.inited {
		return nil
	}

	lame := C.lame_init()
	if lame == nil {
		return errors.New("mp3: failed to initialize LAME")
	}

	C.lame_set_in_samplerate(lame, C.int(e.format.SampleRate()))
	C.lame_set_num_channels(lame, C.int(e.format.Channels()))

	if e.format.Channels() == 1 {
		C.lame_set_mode(lame, C.MONO)
	} else {
		C.lame_set_mode(lame, C.JOINT_STEREO)
	}

	if e.bitrate > 0 {
		// Constant bitrate mode
		C.lame_set_VBR(lame, C.vbr_off)
		C.lame_set_brate(lame, C.int(e.bitrate))
	} else {
		// VBR mode
		C.lame_set_VBR(lame, C.vbr_default)
		C.lame_set_VBR_quality(lame, C.float(e.quality))
	}

	if C.lame_init_params(lame) < 0 {
		C.lame_close(lame)
		return errors.New("mp3: failed to set LAME parameters")
	}

	e.lame = lame
	e.inited = true
	return nil
}

// Write encodes a chunk. The chunk format must match the encoder's.
func (e *Encoder) Write(c pcm.Chunk) error {
	if c.Format() != e.format {
		return fmt.Errorf("mp3: chunk format %v, want %v", c.Format(), e.format)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.New("mp3: encoder is closed")
	}

	if err := e.init(); err != nil {
		return err
	}

	e.scratch.Reset()
	if _, err := c.WriteTo(&e.scratch); err != nil {
		return fmt.Errorf("mp3: read chunk: %w", err)
	}
	data := e.scratch.Bytes()

	numSamples := len(data) / e.format.FrameBytes() // samples per channel
	if numSamples == 0 {
		return nil
	}

	// LAME recommends 1.25*num_samples + 7200
	requiredSize := numSamples*5/4 + 7200
	if len(e.mp3buf) < requiredSize {
		e.mp3buf = make([]byte, requiredSize)
	}

	var encoded C.int
	if e.format.Channels() == 2 {
		encoded = C.lame_encode_interleaved(
			e.lame,
			(*C.short)(unsafe.Pointer(&data[0])),
			C.int(numSamples),
			(*C.uchar)(unsafe.Pointer(&e.mp3buf[0])),
			C.int(len(e.mp3buf)),
		)
	} else {
		encoded = C.lame_encode_buffer(
			e.lame,
			(*C.short)(unsafe.Pointer(&data[0])),
			nil,
			C.int(numSamples),
			(*C.uchar)(unsafe.Pointer(&e.mp3buf[0])),
			C.int(len(e.mp3buf)),
		)
	}

	if encoded < 0 {
		return fmt.Errorf("mp3: encode failed: %d", int(encoded))
	}
	if encoded > 0 {
		if _, err := e.w.Write(e.mp3buf[:encoded]); err != nil {
			return fmt.Errorf("mp3: write: %w", err)
		}
	}
	return nil
}

// flushLocked drains LAME's internal buffers.
func (e *Encoder) flushLocked() error {
	if !e.inited {
		return nil
	}
	encoded := C.lame_encode_flush(
		e.lame,
		(*C.uchar)(unsafe.Pointer(&e.mp3buf[0])),
		C.int(len(e.mp3buf)),
	)
	if encoded > 0 {
		if _, err := e.w.Write(e.mp3buf[:encoded]); err != nil {
			return fmt.Errorf("mp3: flush: %w", err)
		}
	}
	return nil
}

// Close flushes remaining frames and releases encoder resources.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	err := e.flushLocked()
	if e.inited && e.lame != nil {
		C.lame_close(e.lame)
		e.lame = nil
	}
	return err
}
