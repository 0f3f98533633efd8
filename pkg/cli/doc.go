// Package cli provides the shared pieces of the ambient command-line tool.
//
// This package includes:
//   - State paths under ~/.ambient
//   - Output formatting (YAML, JSON, raw)
//   - Request file loading (YAML/JSON)
//   - A bordered TUI frame and a log writer that feeds it
//
// Example usage:
//
//	paths, err := cli.NewPaths()
//	cfg, err := ambient.LoadConfig(paths.ResolveConfig(flagConfig))
//
//	cli.Output(snapshot, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
