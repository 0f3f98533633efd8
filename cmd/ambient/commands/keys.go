package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/theory"
)

type keyView struct {
	Index  int         `yaml:"index" json:"index"`
	Key    string      `yaml:"key" json:"key"`
	Scale  []string    `yaml:"scale" json:"scale"`
	Chords []chordView `yaml:"chords" json:"chords"`
}

type chordView struct {
	Measure int    `yaml:"measure" json:"measure"`
	Degree  int    `yaml:"degree" json:"degree"`
	Chord   string `yaml:"chord" json:"chord"`
	Density int    `yaml:"density" json:"density"`
	Cadence bool   `yaml:"cadence,omitempty" json:"cadence,omitempty"`
	Lead    bool   `yaml:"lead,omitempty" json:"lead,omitempty"`
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the key rotation and each key's chords",
	Long: `List the keys in rotation order with the chord resolved for every
measure of the phrase. A trailing * marks measures that carry the melodic lead.

Examples:
  ambient keys
  ambient keys --json | jq '.[3].chords'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		views := keyViews(cfg)
		if outputJSON || outputFile != "" {
			return outputResult(views, outputFile)
		}
		return printKeys(os.Stdout, views)
	},
}

func init() {
	keysCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
}

func keyViews(cfg ambient.Config) []keyView {
	keys := cfg.Keys()
	views := make([]keyView, len(keys))
	for i, k := range keys {
		scale := k.Scale()
		names := make([]string, len(scale))
		for j, pc := range scale {
			names[j] = theory.NoteNames[pc]
		}
		measures := ambient.PhraseMeasures(cfg, k, 0)
		chords := make([]chordView, len(measures))
		for j, m := range measures {
			chords[j] = chordView{
				Measure: m.Index,
				Degree:  m.Degree,
				Chord:   m.Chord.String(),
				Density: m.Density,
				Cadence: m.Cadence,
				Lead:    m.Final || m.Cadence,
			}
		}
		views[i] = keyView{Index: i, Key: k.String(), Scale: names, Chords: chords}
	}
	return views
}

func printKeys(w io.Writer, views []keyView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, v := range views {
		chords := make([]string, len(v.Chords))
		for i, c := range v.Chords {
			chords[i] = c.Chord
			if c.Lead {
				chords[i] += "*"
			}
		}
		fmt.Fprintf(tw, "%2d\t%s\t%s\n", v.Index, v.Key, strings.Join(chords, ", "))
	}
	return tw.Flush()
}
