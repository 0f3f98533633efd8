package theory

import (
	"fmt"
	"sync"
)

// KeyRootBase is the MIDI root of the first key in AllKeys (middle C).
const KeyRootBase = 60

// Key is a tonal center: a MIDI root and a mode.
type Key struct {
	Root int  `json:"root" yaml:"root"`
	Mode Mode `json:"mode" yaml:"mode"`
}

// PitchClass returns the key's root pitch class.
func (k Key) PitchClass() int {
	return mod12(k.Root)
}

// Scale returns the key's diatonic pitch classes.
func (k Key) Scale() []int {
	return Scale(k.PitchClass(), k.Mode)
}

// String returns e.g. "C# minor".
func (k Key) String() string {
	return fmt.Sprintf("%s %s", NoteNames[k.PitchClass()], k.Mode)
}

// AllKeys returns the 24-key rotation: each of the 12 roots from base upward,
// major then minor.
func AllKeys(base int) []Key {
	keys := make([]Key, 0, 24)
	for i := 0; i < 12; i++ {
		keys = append(keys, Key{Root: base + i, Mode: Major}, Key{Root: base + i, Mode: Minor})
	}
	return keys
}

// KeyCycle is a round-robin over a fixed key list. It is safe for concurrent
// use.
type KeyCycle struct {
	mu    sync.Mutex
	keys  []Key
	index int
}

// NewKeyCycle returns a cycle positioned at the first key. It panics if keys
// is empty.
func NewKeyCycle(keys []Key) *KeyCycle {
	if len(keys) == 0 {
		panic("theory: empty key list")
	}
	return &KeyCycle{keys: append([]Key(nil), keys...)}
}

// Current returns the active key.
func (c *KeyCycle) Current() Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[c.index]
}

// Index returns the position of the active key.
func (c *KeyCycle) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Len returns the number of keys in the cycle.
func (c *KeyCycle) Len() int {
	return len(c.keys)
}

// Advance moves to the next key, wrapping around, and returns it.
func (c *KeyCycle) Advance() Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = (c.index + 1) % len(c.keys)
	return c.keys[c.index]
}
