package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/audio/portaudio"
	"github.com/haivivi/ambient/pkg/cli"
	"github.com/haivivi/ambient/pkg/feed"
	"github.com/haivivi/ambient/pkg/midiout"
)

var (
	playListen      string
	playNoFeed      bool
	playAutostart   bool
	playSeed        uint64
	playMIDIOut     string
	playMIDIChannel uint8
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the performance on the default audio device",
	Long: `Play the endless performance on the default audio device.

Nothing sounds until the start trigger: press Enter, or POST /start on the
feed. Later triggers only retry the audio device. Ctrl+C stops playback.

The voice-state feed is served on --listen (default from config, :8080).

Examples:
  ambient play
  ambient play --autostart --seed 42
  ambient play --midi-out "IAC Driver" --midi-channel 1`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playListen, "listen", "", "feed listen address (default from config)")
	playCmd.Flags().BoolVar(&playNoFeed, "no-feed", false, "do not serve the voice-state feed")
	playCmd.Flags().BoolVar(&playAutostart, "autostart", false, "start without waiting for Enter")
	playCmd.Flags().Uint64Var(&playSeed, "seed", 0, "random seed (0 = random)")
	playCmd.Flags().StringVar(&playMIDIOut, "midi-out", "", "mirror chord voices to the MIDI output whose name contains this (\"default\" for the first port)")
	playCmd.Flags().Uint8Var(&playMIDIChannel, "midi-channel", 0, "MIDI channel for --midi-out (0-15)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = playSeed
	}
	if playListen != "" {
		cfg.Feed.Listen = playListen
	}
	format, err := cfg.Format()
	if err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize audio: %w", err)
	}
	defer portaudio.Terminate()

	out := portaudio.NewOutput(format, cfg.Block())
	defer out.Close()

	logger := slog.Default()
	opts := []ambient.SessionOption{
		ambient.WithDevice(out),
		ambient.WithLogger(logger),
	}
	if playMIDIOut != "" {
		defer midi.CloseDriver()
		name := playMIDIOut
		if name == "default" {
			name = ""
		}
		port, err := midiout.OpenPort(name, playMIDIChannel, logger)
		if err != nil {
			return err
		}
		defer port.Close()
		opts = append(opts, ambient.WithObserver(port))
	}

	session, err := ambient.NewSession(cfg, opts...)
	if err != nil {
		return err
	}
	defer session.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- session.Run(ctx) }()
	if !playNoFeed {
		srv := feed.NewServer(session,
			feed.WithLogger(logger),
			feed.WithAllowedOrigins(cfg.Feed.AllowedOrigins...),
		)
		go func() { errCh <- srv.ListenAndServe(ctx, cfg.Feed.Listen) }()
	}

	if playAutostart {
		trigger(session)
	} else {
		cli.PrintInfo("Press Enter to start. Ctrl+C to quit.")
		go watchEnter(ctx, os.Stdin, session)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// trigger sends the start signal, reporting a device failure without
// giving up: the next trigger retries.
func trigger(s *ambient.Session) {
	first := !s.Started()
	if err := s.Trigger(); err != nil {
		cli.PrintWarning("Audio device unavailable (%v); press Enter to retry.", err)
		return
	}
	if first {
		cli.PrintSuccess("Playing in %s.", s.Status().Key.Name)
	}
}

// watchEnter triggers the session on every line read from r.
func watchEnter(ctx context.Context, r io.Reader, s *ambient.Session) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		trigger(s)
	}
}
