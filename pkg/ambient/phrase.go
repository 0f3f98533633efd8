package ambient

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haivivi/ambient/pkg/theory"
)

// ErrAlreadyRunning is returned by Start when phrases are already playing.
var ErrAlreadyRunning = errors.New("ambient: phrases already running")

// PhraseState is the phrase scheduler state.
type PhraseState int

const (
	Idle PhraseState = iota
	PhraseRunning
)

func (s PhraseState) String() string {
	switch s {
	case Idle:
		return "idle"
	case PhraseRunning:
		return "running"
	}
	return fmt.Sprintf("phrase_state(%d)", int(s))
}

// Measure is one resolved measure of a phrase.
type Measure struct {
	Index   int
	At      float64
	Degree  int
	Cadence bool
	Chord   theory.ChordSpec
	Next    theory.ChordSpec
	Density int
	Final   bool
}

// PhraseScheduler plays the progression one phrase per key, back to back.
// Each phrase queues its measures on the timeline, advances the key, and
// queues the next phrase one phrase duration after its own start.
type PhraseScheduler struct {
	cfg      Config
	player   ChordPlayer
	keys     *theory.KeyCycle
	timeline *Timeline
	logger   *slog.Logger

	mu       sync.Mutex
	state    PhraseState
	gen      uint64
	phrases  int
	key      theory.Key
	keyIndex int
}

// NewPhraseScheduler creates an idle scheduler.
func NewPhraseScheduler(cfg Config, player ChordPlayer, keys *theory.KeyCycle, timeline *Timeline, logger *slog.Logger) *PhraseScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PhraseScheduler{
		cfg:      cfg,
		player:   player,
		keys:     keys,
		timeline: timeline,
		logger:   logger,
	}
}

// State returns the current state.
func (p *PhraseScheduler) State() PhraseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Phrases returns how many phrases have been queued.
func (p *PhraseScheduler) Phrases() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phrases
}

// Key returns the key of the phrase now sounding and its position in the
// cycle. Before the first phrase it is the key the first phrase will use.
func (p *PhraseScheduler) Key() (theory.Key, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phrases == 0 {
		return p.keys.Current(), p.keys.Index()
	}
	return p.key, p.keyIndex
}

// Start queues the first phrase at now.
func (p *PhraseScheduler) Start(now float64) error {
	p.mu.Lock()
	if p.state == PhraseRunning {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.state = PhraseRunning
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	p.runPhrase(now, gen)
	return nil
}

// Stop cancels the phrase chain. Measures already queued are skipped;
// sources already in the engine play out.
func (p *PhraseScheduler) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Idle
	p.gen++
}

func (p *PhraseScheduler) live(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == PhraseRunning && p.gen == gen
}

// Measures resolves the measures of a phrase in key starting at start.
func (p *PhraseScheduler) Measures(key theory.Key, start float64) []Measure {
	return PhraseMeasures(p.cfg, key, start)
}

// PhraseMeasures resolves the measures of a phrase in key starting at start,
// without scheduling anything.
func PhraseMeasures(cfg Config, key theory.Key, start float64) []Measure {
	pc := cfg.Phrase
	chord := func(m int) (theory.ChordSpec, int, bool) {
		degree := pc.Progression[m%len(pc.Progression)]
		cadence := degree == pc.CadenceDegree
		if cadence {
			degree = pc.CadenceSubstitute
		}
		return theory.ChordFromDegree(degree, key.Root, cadence, key.Mode), degree, cadence
	}

	measures := make([]Measure, pc.Measures)
	for m := range measures {
		c, degree, cadence := chord(m)
		next, _, _ := chord((m + 1) % pc.Measures)
		final := m == pc.Measures-1
		density := cfg.Arpeggio.Density
		if final || cadence {
			density = cfg.Arpeggio.CadenceDensity
		}
		measures[m] = Measure{
			Index:   m,
			At:      start + float64(m)*pc.Measure,
			Degree:  degree,
			Cadence: cadence,
			Chord:   c,
			Next:    next,
			Density: density,
			Final:   final,
		}
	}
	return measures
}

func (p *PhraseScheduler) runPhrase(start float64, gen uint64) {
	if !p.live(gen) {
		return
	}
	key, index := p.keys.Current(), p.keys.Index()
	measures := p.Measures(key, start)
	for _, m := range measures {
		if m.Final || m.Cadence {
			p.player.MelodicLead(m.At-p.cfg.Lead.LeadIn, m.Chord)
		}
		p.timeline.At(m.At, "measure", func(now float64) {
			if !p.live(gen) {
				return
			}
			p.player.ScheduleChord(m.Chord, ChordOptions{
				Duration: p.cfg.Phrase.Measure,
				Density:  m.Density,
				Next:     &m.Next,
			})
			p.player.SweepExpired(now)
		})
	}

	p.mu.Lock()
	p.phrases++
	n := p.phrases
	p.key, p.keyIndex = key, index
	p.mu.Unlock()
	next := p.keys.Advance()
	p.logger.Info("phrase queued", "phrase", n, "key", key.String(), "next_key", next.String(), "start", start)

	end := start + p.cfg.PhraseDuration()
	p.timeline.At(end, "phrase", func(float64) {
		p.runPhrase(end, gen)
	})
}
