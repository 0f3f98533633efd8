// Package main provides the ambient CLI tool.
//
// Usage:
//
//	ambient [flags] <command> [args]
//
// Commands:
//
//	play     - Play the endless performance on the default audio device
//	render   - Render a number of phrases to a WAV, MP3 or raw PCM file
//	voices   - Print the voice-state feed of a running player
//	watch    - Follow a running player in the terminal
//	keys     - List the 24-key rotation and each key's progression
//	config   - Manage the engine configuration
//
// Configuration:
//
//	The CLI reads ~/.ambient/config.yaml when it exists.
//	Use 'ambient config init' to write the defaults there.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/ambient/cmd/ambient/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
