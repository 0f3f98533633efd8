package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/audio/codec/mp3"
	"github.com/haivivi/ambient/pkg/audio/codec/wav"
	"github.com/haivivi/ambient/pkg/audio/pcm"
	"github.com/haivivi/ambient/pkg/audio/resampler"
	"github.com/haivivi/ambient/pkg/cli"
	"github.com/haivivi/ambient/pkg/midiout"
)

// renderRequest is the render request file (-f). Flags override it.
type renderRequest struct {
	Output  string  `yaml:"output" json:"output"`
	Format  string  `yaml:"format" json:"format"`
	Phrases int     `yaml:"phrases" json:"phrases"`
	Rate    int     `yaml:"rate" json:"rate"`
	Seed    uint64  `yaml:"seed" json:"seed"`
	MIDI    string  `yaml:"midi" json:"midi"`
	Tail    float64 `yaml:"tail" json:"tail"`
}

// renderResult is printed after a render.
type renderResult struct {
	Output  string  `yaml:"output" json:"output"`
	Format  string  `yaml:"format" json:"format"`
	Rate    int     `yaml:"rate" json:"rate"`
	Phrases int     `yaml:"phrases" json:"phrases"`
	Seconds float64 `yaml:"seconds" json:"seconds"`
	Size    string  `yaml:"size" json:"size"`
	Dropped int     `yaml:"dropped_voices" json:"dropped_voices"`
	MIDI    string  `yaml:"midi,omitempty" json:"midi,omitempty"`
	Notes   int     `yaml:"midi_notes,omitempty" json:"midi_notes,omitempty"`
}

var (
	renderFile string
	renderFlag renderRequest
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render phrases to an audio file",
	Long: `Render a number of complete phrases offline, then let the last voices
ring out (at most --tail seconds).

The format follows --format, or the output extension (.wav, .mp3, .pcm).
--rate resamples the engine output, e.g. to 44100.

Examples:
  ambient render -o dusk.wav
  ambient render -o dusk.mp3 --phrases 3 --seed 7
  ambient render -f request.yaml --midi dusk.mid`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderFile, "file", "f", "", "render request file (YAML or JSON, - for stdin)")
	renderCmd.Flags().StringVarP(&renderFlag.Output, "output", "o", "", "output audio file")
	renderCmd.Flags().StringVar(&renderFlag.Format, "format", "", "wav, mp3 or raw (default from extension)")
	renderCmd.Flags().IntVar(&renderFlag.Phrases, "phrases", 1, "number of phrases")
	renderCmd.Flags().IntVar(&renderFlag.Rate, "rate", 0, "output sample rate (default: engine rate)")
	renderCmd.Flags().Uint64Var(&renderFlag.Seed, "seed", 0, "random seed (0 = random)")
	renderCmd.Flags().StringVar(&renderFlag.MIDI, "midi", "", "also write the chord voices as a MIDI file")
	renderCmd.Flags().Float64Var(&renderFlag.Tail, "tail", 12, "maximum ring-out after the last phrase in seconds")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}

	req := renderRequest{Phrases: 1, Tail: 12}
	if renderFile != "" {
		if err := cli.LoadRequest(renderFile, &req); err != nil {
			return err
		}
	}
	mergeRenderFlags(&req, renderFlag, cmd.Flags().Changed)
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	if err := req.resolve(cfg.Engine.SampleRate); err != nil {
		return err
	}

	opts := []ambient.SessionOption{ambient.WithLogger(slog.Default())}
	var rec *midiout.Recorder
	if req.MIDI != "" {
		rec = midiout.NewRecorder(0)
		opts = append(opts, ambient.WithObserver(rec))
	}
	session, err := ambient.NewSession(cfg, opts...)
	if err != nil {
		return err
	}

	f, err := os.Create(req.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	dstFmt, err := pcm.StereoFormat(req.Rate)
	if err != nil {
		return err
	}
	enc, err := newEncoder(req.Format, f, dstFmt)
	if err != nil {
		return err
	}
	rs, err := resampler.NewWriter(enc, session.Format(), dstFmt)
	if err != nil {
		return err
	}
	counter := &pcm.CountingWriter{W: rs}

	secs, renderErr := renderPhrases(session, req.Phrases, req.Tail, counter)
	err = errors.Join(renderErr, rs.Close(), enc.Close(), f.Close())
	if err != nil {
		return fmt.Errorf("render %s: %w", req.Output, err)
	}

	result := renderResult{
		Output:  req.Output,
		Format:  req.Format,
		Rate:    req.Rate,
		Phrases: req.Phrases,
		Seconds: secs,
		Size:    cli.FormatBytes(counter.Bytes),
		Dropped: session.Voices().Dropped(),
	}
	if rec != nil {
		if err := rec.WriteFile(req.MIDI); err != nil {
			return err
		}
		result.MIDI = req.MIDI
		result.Notes = rec.Notes()
	}
	cli.PrintSuccess("Rendered %s of audio to %s", cli.FormatSeconds(secs), req.Output)
	return outputResult(result, "")
}

// mergeRenderFlags copies the flags the user set over the request file.
func mergeRenderFlags(req *renderRequest, flags renderRequest, changed func(string) bool) {
	if changed("output") {
		req.Output = flags.Output
	}
	if changed("format") {
		req.Format = flags.Format
	}
	if changed("phrases") {
		req.Phrases = flags.Phrases
	}
	if changed("rate") {
		req.Rate = flags.Rate
	}
	if changed("seed") {
		req.Seed = flags.Seed
	}
	if changed("midi") {
		req.MIDI = flags.MIDI
	}
	if changed("tail") {
		req.Tail = flags.Tail
	}
}

// resolve fills defaults and validates the request.
func (r *renderRequest) resolve(engineRate int) error {
	if r.Output == "" {
		return errors.New("output file is required (-o or output: in the request)")
	}
	if r.Phrases < 1 {
		return fmt.Errorf("phrases must be at least 1, got %d", r.Phrases)
	}
	if r.Tail < 0 {
		return fmt.Errorf("tail must not be negative, got %v", r.Tail)
	}
	if r.Rate == 0 {
		r.Rate = engineRate
	}
	if r.Format == "" {
		switch strings.ToLower(filepath.Ext(r.Output)) {
		case ".mp3":
			r.Format = "mp3"
		case ".pcm", ".raw":
			r.Format = "raw"
		default:
			r.Format = "wav"
		}
	}
	switch r.Format {
	case "wav", "mp3", "raw":
	default:
		return fmt.Errorf("unsupported format %q (want wav, mp3 or raw)", r.Format)
	}
	return nil
}

type nopCloser struct{ pcm.Writer }

func (nopCloser) Close() error { return nil }

func newEncoder(format string, f *os.File, dst pcm.Format) (pcm.WriteCloser, error) {
	switch format {
	case "wav":
		return wav.NewWriter(f, dst), nil
	case "mp3":
		return mp3.NewEncoder(f, dst, mp3.WithQuality(mp3.QualityHigh))
	default:
		return nopCloser{pcm.ChunkWriter(f)}, nil
	}
}

// renderPhrases triggers s, renders the given number of phrases into w, then
// keeps rendering until every source has finished or tail seconds have
// passed. It returns the rendered duration in seconds.
func renderPhrases(s *ambient.Session, phrases int, tail float64, w pcm.Writer) (float64, error) {
	if err := s.Trigger(); err != nil {
		return 0, err
	}
	engine := s.Engine()
	start := engine.CurrentTime()
	end := start + float64(phrases)*s.Config().PhraseDuration()
	frames := s.BlockFrames()

	stopped := false
	for {
		now := engine.CurrentTime()
		if !stopped && now >= end {
			s.Stop()
			stopped = true
		}
		if stopped && (engine.ActiveSources() == 0 || now >= end+tail) {
			return now - start, nil
		}
		if err := w.Write(s.Process(frames)); err != nil {
			return now - start, err
		}
	}
}
