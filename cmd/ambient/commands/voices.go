package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/haivivi/ambient/pkg/audio/analysis"
	"github.com/haivivi/ambient/pkg/feed"
)

var (
	feedAddr    string
	feedCodec   string
	voicesQuery string
	voicesWhat  string
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Print the voice-state feed of a running player",
	Long: `Fetch one snapshot from a running 'ambient play' and print it.

--query filters the result with a jq expression; each result is printed on
its own line as JSON.

Examples:
  ambient voices
  ambient voices --json
  ambient voices --query '.voices[] | select(.gain > 0.05) | .pitch_class'
  ambient voices --what pitch-classes`,
	RunE: runVoices,
}

func init() {
	voicesCmd.Flags().StringVar(&feedAddr, "addr", "", "feed address (default from config)")
	voicesCmd.Flags().StringVar(&feedCodec, "codec", "msgpack", "wire codec: json or msgpack")
	voicesCmd.Flags().StringVarP(&voicesQuery, "query", "q", "", "jq expression applied to the result")
	voicesCmd.Flags().StringVar(&voicesWhat, "what", feed.RequestVoices, "voices, status, pitch-classes or spectrum")
	voicesCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
}

// newFeedClient resolves --addr and --codec against the config.
func newFeedClient() (*feed.Client, error) {
	codec, err := feed.ParseCodec(feedCodec)
	if err != nil {
		return nil, err
	}
	addr := feedAddr
	if addr == "" {
		cfg, err := getConfig()
		if err != nil {
			return nil, err
		}
		addr = cfg.Feed.Listen
	}
	return feed.NewClient(addr, codec), nil
}

func runVoices(cmd *cobra.Command, args []string) error {
	client, err := newFeedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	var result any
	switch voicesWhat {
	case feed.RequestVoices:
		result, err = client.Voices(ctx)
	case feed.RequestStatus:
		result, err = client.Status(ctx)
	case feed.RequestPitchClasses:
		result, err = client.PitchClasses(ctx)
	case feed.RequestSpectrum:
		var spec analysis.Spectrum
		err = client.Get(ctx, "/spectrum", &spec)
		result = spec
	default:
		return fmt.Errorf("unknown --what %q", voicesWhat)
	}
	if err != nil {
		return err
	}

	if voicesQuery == "" {
		return outputResult(result, outputFile)
	}
	values, err := runQuery(voicesQuery, result)
	if err != nil {
		return err
	}
	w := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// runQuery evaluates a jq expression against v's JSON form and returns
// every result.
func runQuery(expr string, v any) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	var out []any
	iter := query.Run(input)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := r.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
