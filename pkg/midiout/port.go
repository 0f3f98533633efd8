package midiout

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/haivivi/ambient/pkg/ambient"
)

// Port mirrors chord voices to a MIDI output as they sound. A driver must be
// registered by the caller, e.g. by importing
// gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
type Port struct {
	send    func(midi.Message) error
	channel uint8
	logger  *slog.Logger

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	held   map[uint8]int
	closed bool
}

// OpenPort opens the output port whose name contains name, or the first
// port if name is empty.
func OpenPort(name string, channel uint8, logger *slog.Logger) (*Port, error) {
	var (
		out drivers.Out
		err error
	)
	if name == "" {
		out, err = midi.OutPort(0)
	} else {
		out, err = midi.FindOutPort(name)
	}
	if err != nil {
		return nil, fmt.Errorf("midiout: find port %q: %w", name, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midiout: open %s: %w", out, err)
	}
	return newPort(send, channel, logger), nil
}

func newPort(send func(midi.Message) error, channel uint8, logger *slog.Logger) *Port {
	if logger == nil {
		logger = slog.Default()
	}
	return &Port{
		send:    send,
		channel: channel,
		logger:  logger,
		timers:  make(map[*time.Timer]struct{}),
		held:    make(map[uint8]int),
	}
}

var _ ambient.VoiceObserver = (*Port)(nil)

// VoiceScheduled sends note-on at the voice's start and note-off at its stop,
// measured from now on the wall clock.
func (p *Port) VoiceScheduled(now float64, v *ambient.Voice) {
	key := Note(v)
	p.at(v.Start-now, func() {
		p.held[key]++
		p.write(midi.NoteOn(p.channel, key, Velocity(v.Peak)))
	})
	p.at(v.Stop-now, func() {
		if p.held[key] > 0 {
			p.held[key]--
		}
		p.write(midi.NoteOff(p.channel, key))
	})
}

func (p *Port) at(delay float64, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(time.Duration(max(delay, 0)*float64(time.Second)), func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.timers, t)
		if !p.closed {
			fn()
		}
	})
	p.timers[t] = struct{}{}
}

// write must be called with p.mu held.
func (p *Port) write(msg midi.Message) {
	if err := p.send(msg); err != nil {
		p.logger.Warn("midi send", "msg", msg.String(), "error", err)
	}
}

// Close cancels pending notes and releases every held key. It does not
// close the driver.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for t := range p.timers {
		t.Stop()
	}
	clear(p.timers)
	for key, n := range p.held {
		if n > 0 {
			p.write(midi.NoteOff(p.channel, key))
		}
	}
	clear(p.held)
	return nil
}
