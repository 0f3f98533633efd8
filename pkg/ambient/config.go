package ambient

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/ambient/pkg/audio/pcm"
	"github.com/haivivi/ambient/pkg/theory"
)

// Range is a closed interval sampled uniformly.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Sample draws a value from the range.
func (r Range) Sample(rnd Rand) float64 {
	return r.Min + rnd.Float64()*(r.Max-r.Min)
}

func (r Range) validate(name string) error {
	if r.Min > r.Max {
		return fmt.Errorf("%s: min %g greater than max %g", name, r.Min, r.Max)
	}
	return nil
}

// DisplayKeyMode selects how the display registry keys its records.
type DisplayKeyMode string

const (
	// DisplayKeyFrequency keys records by nominal frequency. Two voices
	// sounding the same frequency share one record; the later overwrites the
	// earlier and the earlier's eviction removes it.
	DisplayKeyFrequency DisplayKeyMode = "frequency"
	// DisplayKeyVoiceID keys records by voice ID.
	DisplayKeyVoiceID DisplayKeyMode = "voice_id"
)

// Config holds every tunable constant of a session. Durations are in seconds
// of audio time.
type Config struct {
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Phrase   PhraseConfig   `yaml:"phrase" json:"phrase"`
	Arpeggio ArpeggioConfig `yaml:"arpeggio" json:"arpeggio"`
	Voice    VoiceConfig    `yaml:"voice" json:"voice"`
	Noise    NoiseConfig    `yaml:"noise" json:"noise"`
	Lead     LeadConfig     `yaml:"lead" json:"lead"`
	Feed     FeedConfig     `yaml:"feed" json:"feed"`

	// Seed seeds the random source. Zero picks a random seed.
	Seed uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// EngineConfig configures the synthesis engine and render loop.
type EngineConfig struct {
	// SampleRate is the output rate in Hz (44100 or 48000)
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// BlockMillis is the render block length; bookkeeping runs once per block
	BlockMillis int `yaml:"block_ms" json:"block_ms"`

	// MaxSources bounds concurrently scheduled sources
	MaxSources int `yaml:"max_sources" json:"max_sources"`

	// BusGains overrides per-bus gain, keyed by bus name (chords, noise, lead)
	BusGains map[string]float64 `yaml:"bus_gains,omitempty" json:"bus_gains,omitempty"`
}

// PhraseConfig configures the progression and key rotation.
type PhraseConfig struct {
	// Measure is the measure duration in seconds
	Measure float64 `yaml:"measure" json:"measure"`

	// Measures is the number of measures per phrase
	Measures int `yaml:"measures" json:"measures"`

	// Progression lists the scale degree of each measure, wrapping if
	// shorter than Measures
	Progression []int `yaml:"progression" json:"progression"`

	// CadenceDegree marks a cadence measure when it appears in Progression
	CadenceDegree int `yaml:"cadence_degree" json:"cadence_degree"`

	// CadenceSubstitute is the degree actually played on a cadence measure
	CadenceSubstitute int `yaml:"cadence_substitute" json:"cadence_substitute"`

	// KeyRoot is the MIDI root of the first key when Keys is empty
	KeyRoot int `yaml:"key_root" json:"key_root"`

	// Keys overrides the 24-key rotation
	Keys []theory.Key `yaml:"keys,omitempty" json:"keys,omitempty"`
}

// ArpeggioConfig configures onset generation.
type ArpeggioConfig struct {
	// Density is notes per pass on ordinary measures
	Density int `yaml:"density" json:"density"`

	// CadenceDensity is notes per pass on the final measure and cadences
	CadenceDensity int `yaml:"cadence_density" json:"cadence_density"`

	// Passes multiplies the density into the note count
	Passes int `yaml:"passes" json:"passes"`

	// Jitter is the maximum random onset delay in seconds
	Jitter float64 `yaml:"jitter" json:"jitter"`
}

// VoiceConfig configures arpeggio voices.
type VoiceConfig struct {
	Detune         float64 `yaml:"detune" json:"detune"`
	Pan            float64 `yaml:"pan" json:"pan"`
	Cutoff         Range   `yaml:"cutoff" json:"cutoff"`
	Q              float64 `yaml:"q" json:"q"`
	Peak           Range   `yaml:"peak" json:"peak"`
	Attack         float64 `yaml:"attack" json:"attack"`
	Tail           float64 `yaml:"tail" json:"tail"`
	TailJitter     float64 `yaml:"tail_jitter" json:"tail_jitter"`
	Release        float64 `yaml:"release" json:"release"`
	Floor          float64 `yaml:"floor" json:"floor"`
	DropThird      float64 `yaml:"drop_third" json:"drop_third"`
	TriangleChance float64 `yaml:"triangle_chance" json:"triangle_chance"`

	// DisplayLinger keeps a display record after its voice stops
	DisplayLinger float64        `yaml:"display_linger" json:"display_linger"`
	DisplayKey    DisplayKeyMode `yaml:"display_key" json:"display_key"`

	// SweepInterval is the period of the sustain sweep that runs from the
	// first trigger on, independent of chords; zero disables it
	SweepInterval float64 `yaml:"sweep_interval" json:"sweep_interval"`
}

// NoiseConfig configures the ambient noise bed.
type NoiseConfig struct {
	Tail          float64 `yaml:"tail" json:"tail"`
	Leak          float64 `yaml:"leak" json:"leak"`
	Attenuation   float64 `yaml:"attenuation" json:"attenuation"`
	Cutoff        Range   `yaml:"cutoff" json:"cutoff"`
	Q             float64 `yaml:"q" json:"q"`
	Pan           Range   `yaml:"pan" json:"pan"`
	Peak          Range   `yaml:"peak" json:"peak"`
	Floor         float64 `yaml:"floor" json:"floor"`
	StartOffset   float64 `yaml:"start_offset" json:"start_offset"`
	FadeIn        float64 `yaml:"fade_in" json:"fade_in"`

	// ReleaseOffset is measured from the measure time plus duration, not
	// from the StartOffset-delayed onset
	ReleaseOffset float64 `yaml:"release_offset" json:"release_offset"`
	ReleaseTau    float64 `yaml:"release_tau" json:"release_tau"`
}

// LeadConfig configures the melodic lead.
type LeadConfig struct {
	Notes   int     `yaml:"notes" json:"notes"`
	Stagger float64 `yaml:"stagger" json:"stagger"`
	Peak    float64 `yaml:"peak" json:"peak"`
	Decay   float64 `yaml:"decay" json:"decay"`
	Length  float64 `yaml:"length" json:"length"`
	Echo    float64 `yaml:"echo" json:"echo"`
	Cutoff  float64 `yaml:"cutoff" json:"cutoff"`

	// LeadIn is how long before the final measure the lead starts
	LeadIn float64 `yaml:"lead_in" json:"lead_in"`
}

// FeedConfig configures the voice-state feed server.
type FeedConfig struct {
	Listen         string   `yaml:"listen" json:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			SampleRate:  48000,
			BlockMillis: 20,
			MaxSources:  512,
		},
		Phrase: PhraseConfig{
			Measure:           8,
			Measures:          8,
			Progression:       []int{0, 4, 5, 3, 6, 2, 5, 0},
			CadenceDegree:     7,
			CadenceSubstitute: 4,
			KeyRoot:           theory.KeyRootBase,
		},
		Arpeggio: ArpeggioConfig{
			Density:        5,
			CadenceDensity: 7,
			Passes:         2,
			Jitter:         0.1,
		},
		Voice: VoiceConfig{
			Detune:         0.2,
			Pan:            0.8,
			Cutoff:         Range{Min: 800, Max: 1200},
			Q:              1.5,
			Peak:           Range{Min: 0.12, Max: 0.17},
			Attack:         0.3,
			Tail:           3,
			TailJitter:     1,
			Release:        2,
			Floor:          0.001,
			DropThird:      0.5,
			TriangleChance: 0.5,
			DisplayLinger:  1,
			DisplayKey:     DisplayKeyFrequency,
			SweepInterval:  8,
		},
		Noise: NoiseConfig{
			Tail:          4,
			Leak:          0.02,
			Attenuation:   0.8,
			Cutoff:        Range{Min: 500, Max: 900},
			Q:             1.5,
			Pan:           Range{Min: 0.3, Max: 0.7},
			Peak:          Range{Min: 0.02, Max: 0.035},
			Floor:         0.0001,
			StartOffset:   0.1,
			FadeIn:        1.2,
			ReleaseOffset: 2,
			ReleaseTau:    2.5,
		},
		Lead: LeadConfig{
			Notes:   3,
			Stagger: 0.2,
			Peak:    0.008,
			Decay:   0.4,
			Length:  0.6,
			Echo:    0.3,
			Cutoff:  1000,
			LeadIn:  0.5,
		},
		Feed: FeedConfig{
			Listen:         ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Format returns the stereo output format at the configured rate.
func (c Config) Format() (pcm.Format, error) {
	return pcm.StereoFormat(c.Engine.SampleRate)
}

// Block returns the render block length.
func (c Config) Block() time.Duration {
	return time.Duration(c.Engine.BlockMillis) * time.Millisecond
}

// PhraseDuration returns the length of one phrase in seconds.
func (c Config) PhraseDuration() float64 {
	return c.Phrase.Measure * float64(c.Phrase.Measures)
}

// Keys returns the key rotation.
func (c Config) Keys() []theory.Key {
	if len(c.Phrase.Keys) > 0 {
		return c.Phrase.Keys
	}
	return theory.AllKeys(c.Phrase.KeyRoot)
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	_, err := c.Format()
	add(err)
	check(c.Engine.BlockMillis > 0, "engine.block_ms must be positive")
	check(c.Engine.MaxSources > 0, "engine.max_sources must be positive")

	check(c.Phrase.Measure > 0, "phrase.measure must be positive")
	check(c.Phrase.Measures > 0, "phrase.measures must be positive")
	check(len(c.Phrase.Progression) > 0, "phrase.progression is empty")
	for _, k := range c.Phrase.Keys {
		_, err := theory.ParseMode(string(k.Mode))
		add(err)
	}

	check(c.Arpeggio.Density > 0, "arpeggio.density must be positive")
	check(c.Arpeggio.CadenceDensity > 0, "arpeggio.cadence_density must be positive")
	check(c.Arpeggio.Passes > 0, "arpeggio.passes must be positive")
	check(c.Arpeggio.Jitter >= 0, "arpeggio.jitter must not be negative")

	check(c.Voice.Pan >= 0 && c.Voice.Pan <= 1, "voice.pan must be within [0, 1]")
	check(c.Voice.Floor > 0, "voice.floor must be positive")
	check(c.Voice.Tail >= 0, "voice.tail must not be negative")
	check(c.Voice.SweepInterval >= 0, "voice.sweep_interval must not be negative")
	add(c.Voice.Cutoff.validate("voice.cutoff"))
	add(c.Voice.Peak.validate("voice.peak"))
	check(c.Voice.DisplayKey == DisplayKeyFrequency || c.Voice.DisplayKey == DisplayKeyVoiceID,
		"voice.display_key %q is not %q or %q", c.Voice.DisplayKey, DisplayKeyFrequency, DisplayKeyVoiceID)

	check(c.Noise.Leak > 0, "noise.leak must be positive")
	check(c.Noise.Floor > 0, "noise.floor must be positive")
	check(c.Noise.ReleaseTau > 0, "noise.release_tau must be positive")
	add(c.Noise.Cutoff.validate("noise.cutoff"))
	add(c.Noise.Pan.validate("noise.pan"))
	add(c.Noise.Peak.validate("noise.peak"))
	check(c.Noise.Pan.Max <= 1, "noise.pan must not exceed 1")

	check(c.Lead.Notes >= 0, "lead.notes must not be negative")
	check(c.Lead.Length > 0, "lead.length must be positive")

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("ambient: config: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML config file on top of DefaultConfig. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("ambient: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("ambient: parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// SaveConfig writes cfg as YAML, creating the parent directory.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("ambient: marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("ambient: create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("ambient: write config: %w", err)
	}
	return nil
}
