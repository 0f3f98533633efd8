package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/audio/analysis"
	"github.com/haivivi/ambient/pkg/cli"
	"github.com/haivivi/ambient/pkg/feed"
	"github.com/haivivi/ambient/pkg/theory"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running player in the terminal",
	Long: `Pull the voice-state feed of a running 'ambient play' over WebSocket
and show the sounding voices, the active key and the pitch-class balance.

Keys: s = send the start trigger, q/Ctrl+C = quit.

Examples:
  ambient watch
  ambient watch --addr studio:8080 --interval 100ms`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&feedAddr, "addr", "", "feed address (default from config)")
	watchCmd.Flags().StringVar(&feedCodec, "codec", "msgpack", "wire codec: json or msgpack")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 250*time.Millisecond, "pull interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := newFeedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	stream, err := client.Dial(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer stream.Close()

	logWriter := cli.NewLogWriter(50)
	slog.SetDefault(slog.New(slog.NewTextHandler(logWriter, nil)))

	model := newWatchModel(client, stream, watchInterval, logWriter)
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}

type snapshotMsg struct {
	snap ambient.Snapshot
	err  error
}

type pullMsg struct{}

type logMsg string

type startMsg struct {
	resp feed.StartResponse
	err  error
}

// watchModel is the bubbletea model of the watch command. Pulls are
// sequential: the next one is scheduled when the previous reply arrives.
type watchModel struct {
	client    *feed.Client
	stream    *feed.Stream
	interval  time.Duration
	logWriter *cli.LogWriter

	snap    ambient.Snapshot
	pulled  bool
	lastErr error
	logs    []string

	styles   cli.Styles
	width    int
	height   int
	quitting bool
}

func newWatchModel(client *feed.Client, stream *feed.Stream, interval time.Duration, logWriter *cli.LogWriter) watchModel {
	return watchModel{
		client:    client,
		stream:    stream,
		interval:  interval,
		logWriter: logWriter,
		styles:    cli.NewStyles(cli.DefaultTheme),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.pull(), m.listenLogs())
}

func (m watchModel) pull() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.stream.Snapshot()
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m watchModel) schedulePull() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return pullMsg{} })
}

func (m watchModel) listenLogs() tea.Cmd {
	if m.logWriter == nil {
		return nil
	}
	return func() tea.Msg {
		return logMsg(<-m.logWriter.Channel())
	}
}

func (m watchModel) start() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := m.client.Start(ctx)
		return startMsg{resp: resp, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyRunes:
			switch string(msg.Runes) {
			case "q":
				m.quitting = true
				return m, tea.Quit
			case "s":
				return m, m.start()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case pullMsg:
		return m, m.pull()

	case snapshotMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			slog.Warn("pull snapshot", "error", msg.err)
			return m, tea.Quit
		}
		m.snap, m.pulled, m.lastErr = msg.snap, true, nil
		return m, m.schedulePull()

	case startMsg:
		switch {
		case msg.err != nil:
			slog.Warn("start trigger", "error", msg.err)
		case msg.resp.DeviceError != "":
			slog.Warn("start trigger", "device_error", msg.resp.DeviceError)
		default:
			slog.Info("start trigger sent", "key", msg.resp.Status.Key.Name)
		}

	case logMsg:
		m.logs = append(m.logs, string(msg))
		if len(m.logs) > 50 {
			m.logs = m.logs[len(m.logs)-50:]
		}
		return m, m.listenLogs()
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.quitting {
		if m.lastErr != nil {
			return fmt.Sprintf("Feed closed: %v\n", m.lastErr)
		}
		return ""
	}

	status := "connecting"
	if m.pulled {
		status = m.snap.State
	}
	frame := cli.Frame{
		Styles: m.styles,
		Title:  "AMBIENT // " + strings.ToUpper(m.keyName()),
		Status: status,
		Sections: []cli.Section{
			{Label: "Voices", Content: func() []string { return voiceLines(m.snap.Voices) }, Head: true, Weight: 3},
			{Label: "Pitch classes", Content: func() []string { return pitchClassLines(m.snap) }, Head: true, Weight: 2},
			{Label: "Log", Content: func() []string { return m.logs }, Weight: 1},
		},
		Help: "s=start  q/Ctrl+C=quit",
	}
	return frame.Render(m.width, m.height)
}

func (m watchModel) keyName() string {
	if !m.pulled {
		return "waiting"
	}
	return m.snap.Key.Name
}

// voiceLines formats one line per displayed voice.
func voiceLines(voices []ambient.VoiceState) []string {
	if len(voices) == 0 {
		return []string{"(silence)"}
	}
	lines := make([]string, len(voices))
	for i, v := range voices {
		lines[i] = fmt.Sprintf("%-2s %8.2f Hz  %s  pan %+.2f  %-8s %7s",
			v.PitchClass, v.Frequency, cli.Meter(v.Gain, 0.17, 12), v.Pan, v.Waveform, cli.FormatSeconds(v.TimeRemaining))
	}
	return lines
}

// pitchClassLines shows each pitch class's share of the sounding gain.
func pitchClassLines(snap ambient.Snapshot) []string {
	weights := make([]analysis.PitchClassWeight, 0, len(snap.Voices))
	for _, v := range snap.Voices {
		if v.TimeRemaining > 0 {
			weights = append(weights, analysis.PitchClassWeight{PitchClass: theory.PitchClass(v.Frequency), Gain: v.Gain})
		}
	}
	d := analysis.PitchClasses(weights)

	lines := make([]string, 0, 12)
	for pc, name := range theory.NoteNames {
		if d.Gains[pc] == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-2s %s %5.1f%%", name, cli.Meter(d.Shares[pc], 1, 20), d.Shares[pc]*100))
	}
	if len(lines) == 0 {
		return []string{"(silence)"}
	}
	return lines
}
