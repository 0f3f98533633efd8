package ambient

import (
	"cmp"
	"slices"
	"strconv"
	"sync"
)

// SustainRegistry tracks every chord voice until a sweep finds it expired.
// Keys are the voice frequency plus a random fraction so unison voices do
// not collide. It is safe for concurrent use.
type SustainRegistry struct {
	rand Rand

	mu      sync.Mutex
	entries map[float64]*Voice
}

// NewSustainRegistry creates an empty registry perturbing keys with r.
func NewSustainRegistry(r Rand) *SustainRegistry {
	return &SustainRegistry{
		rand:    r,
		entries: make(map[float64]*Voice),
	}
}

// Add registers v and returns its key.
func (r *SustainRegistry) Add(v *Voice) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := v.Frequency + r.rand.Float64()
	for {
		if _, ok := r.entries[key]; !ok {
			break
		}
		key = v.Frequency + r.rand.Float64()
	}
	r.entries[key] = v
	return key
}

// Sweep removes every voice whose stop time is before now and returns how
// many were removed. A voice still sounding at now is never removed.
func (r *SustainRegistry) Sweep(now float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, v := range r.entries {
		if now > v.Stop {
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of registered voices.
func (r *SustainRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Voices returns the registered voices ordered by start time.
func (r *SustainRegistry) Voices() []*Voice {
	r.mu.Lock()
	vs := make([]*Voice, 0, len(r.entries))
	for _, v := range r.entries {
		vs = append(vs, v)
	}
	r.mu.Unlock()
	slices.SortFunc(vs, func(a, b *Voice) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return vs
}

// DisplayRegistry holds the voices shown by the feed. Records are evicted
// explicitly, shortly after their voice stops. It is safe for concurrent use.
type DisplayRegistry struct {
	mode DisplayKeyMode

	mu      sync.Mutex
	records map[string]*Voice
}

// NewDisplayRegistry creates an empty registry keyed by mode.
func NewDisplayRegistry(mode DisplayKeyMode) *DisplayRegistry {
	if mode == "" {
		mode = DisplayKeyFrequency
	}
	return &DisplayRegistry{
		mode:    mode,
		records: make(map[string]*Voice),
	}
}

// Key returns the key v is stored under.
func (r *DisplayRegistry) Key(v *Voice) string {
	if r.mode == DisplayKeyVoiceID {
		return v.ID.String()
	}
	return strconv.FormatFloat(v.Frequency, 'g', -1, 64)
}

// Put stores v, replacing any record under the same key, and returns the key.
func (r *DisplayRegistry) Put(v *Voice) string {
	key := r.Key(v)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = v
	return key
}

// Evict removes the record under key, whichever voice it currently holds.
func (r *DisplayRegistry) Evict(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[key]
	delete(r.records, key)
	return ok
}

// Len returns the number of records.
func (r *DisplayRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// States projects every record at time now, longest remaining first.
func (r *DisplayRegistry) States(now float64) []VoiceState {
	r.mu.Lock()
	states := make([]VoiceState, 0, len(r.records))
	for _, v := range r.records {
		states = append(states, v.State(now))
	}
	r.mu.Unlock()
	slices.SortFunc(states, func(a, b VoiceState) int {
		if c := cmp.Compare(b.TimeRemaining, a.TimeRemaining); c != 0 {
			return c
		}
		return cmp.Compare(a.Frequency, b.Frequency)
	})
	return states
}
