package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/cli"
)

var (
	// Global flags
	cfgFile    string
	outputFile string
	outputJSON bool
	verbose    bool

	// Global configuration
	globalConfig    ambient.Config
	globalConfigErr error
	configPath      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ambient",
	Short: "Procedural ambient music engine",
	Long: `ambient - an endless, self-extending ambient performance.

The engine cycles through 24 keys (12 roots, major then minor). Each key
plays an 8-measure phrase of arpeggiated chords over a filtered noise bed,
closing with a short melodic lead. The set of sounding voices is published
as a feed for visualizers.

Configuration is read from ~/.ambient/config.yaml when it exists.

Examples:
  # Play live; press Enter to start
  ambient play

  # Render two phrases to a file
  ambient render -o dusk.wav --phrases 2

  # Follow a running player from another terminal
  ambient watch --addr :8080
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ambient/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	configPath = cfgFile
	if configPath == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			globalConfig, globalConfigErr = ambient.DefaultConfig(), nil
			slog.Debug("no home directory, using default config", "error", err)
			return
		}
		configPath = paths.ConfigFile()
	}
	globalConfig, globalConfigErr = ambient.LoadConfig(configPath)
}

// getConfig returns a copy of the loaded configuration.
func getConfig() (ambient.Config, error) {
	if globalConfigErr != nil {
		return ambient.Config{}, fmt.Errorf("load %s: %w", configPath, globalConfigErr)
	}
	return globalConfig, nil
}

// outputResult prints result as YAML, or JSON with --json.
func outputResult(result any, outputPath string) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputPath,
	})
}
