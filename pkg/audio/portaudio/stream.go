package portaudio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/haivivi/ambient/pkg/audio/pcm"
)

// Output plays chunks on the default output device. The device is opened
// lazily by the first Resume, so constructing an Output never touches the
// hardware.
type Output struct {
	format         pcm.Format
	bufferDuration time.Duration

	mu      sync.Mutex
	stream  *stream
	active  bool
	closed  bool
	scratch bytes.Buffer
}

// NewOutput creates an output for the given stereo or mono format.
// bufferDuration sets the PortAudio buffer size (e.g., 20ms).
func NewOutput(format pcm.Format, bufferDuration time.Duration) *Output {
	return &Output{format: format, bufferDuration: bufferDuration}
}

// Format returns the output format.
func (o *Output) Format() pcm.Format {
	return o.format
}

// Resume opens and starts the device if needed. It is idempotent; after a
// failure a later call retries from scratch.
func (o *Output) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return errors.New("portaudio: output closed")
	}
	if o.active {
		return nil
	}
	if o.stream == nil {
		frames := int(o.format.FramesInDuration(o.bufferDuration))
		s, err := openOutput(o.format.Channels(), float64(o.format.SampleRate()), frames)
		if err != nil {
			return err
		}
		o.stream = s
	}
	if err := o.stream.start(); err != nil {
		o.stream.close()
		o.stream = nil
		return err
	}
	o.active = true
	return nil
}

// Suspend stops playback without releasing the device.
func (o *Output) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		return nil
	}
	o.active = false
	return o.stream.stop()
}

// Active reports whether the device is playing.
func (o *Output) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Write plays a chunk, blocking until PortAudio has queued it.
func (o *Output) Write(c pcm.Chunk) error {
	if c.Format() != o.format {
		return fmt.Errorf("portaudio: chunk format %v, want %v", c.Format(), o.format)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		return errors.New("portaudio: output not active")
	}
	o.scratch.Reset()
	if _, err := c.WriteTo(&o.scratch); err != nil {
		return err
	}
	return o.stream.write(o.scratch.Bytes())
}

// Close releases the device.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.active = false
	if o.stream == nil {
		return nil
	}
	return o.stream.close()
}
