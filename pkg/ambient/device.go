package ambient

import (
	"sync"
	"time"

	"github.com/haivivi/ambient/pkg/audio/pcm"
)

// Device is an audio output. Resume must be idempotent and may be retried
// after a failure. Write blocks until the device has room for the chunk.
type Device interface {
	Resume() error
	Active() bool
	Write(pcm.Chunk) error
}

// NullDevice discards audio, pacing writes to the wall clock so the session
// runs in real time without a sound card.
type NullDevice struct {
	format pcm.Format

	mu       sync.Mutex
	active   bool
	deadline time.Time
}

// NewNullDevice returns an inactive device for chunks of format f.
func NewNullDevice(f pcm.Format) *NullDevice {
	return &NullDevice{format: f}
}

// Resume activates the device.
func (d *NullDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		d.active = true
		d.deadline = time.Now()
	}
	return nil
}

// Active reports whether Resume has been called.
func (d *NullDevice) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Write sleeps until the wall clock catches up with the audio written so far.
func (d *NullDevice) Write(c pcm.Chunk) error {
	d.mu.Lock()
	d.deadline = d.deadline.Add(d.format.Duration(c.Len()))
	wait := time.Until(d.deadline)
	d.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
	return nil
}
