package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/soundscene/soundscene/cmd/soundscene/internal/config"
	"github.com/soundscene/soundscene/pkg/cli"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Global configuration (loaded at init time)
	globalConfig  *config.Config
	configLoadErr error

	styles = cli.NewStyles(cli.DefaultTheme)
)

var rootCmd = &cobra.Command{
	Use:   "soundscene",
	Short: "Multichannel conversational scene builder",
	Long: `soundscene - build multi-party conversational audio scenes.

A scene starts as a structure: a tree of sequences, parallel splitters,
conversations, pauses and noise spans. Generation flattens the structure
into a timed segment list by picking speakers, turn timings and source
clips; rendering turns the segment list into multichannel PCM audio.

The pipeline is deterministic end to end: a structure, a clip index and
a seed always reproduce the same audio.

Configuration lives in the OS config directory:
  macOS:   ~/Library/Application Support/soundscene/config.yaml
  Linux:   ~/.config/soundscene/config.yaml
  Windows: %AppData%/soundscene/config.yaml

Examples:
  # Index a clip dataset, then build and render a session
  soundscene clips import dataset.csv
  soundscene structure generate --tables 4,4,3 --duration 600 -o session.json
  soundscene scene generate -f session.json --seed 7 -o scene.json
  soundscene render -f scene.json -o session.pcm

  # Inspect a scene with a jq expression
  soundscene scene query -f scene.json '.[] | select(.channel == 2)'`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}

func initConfig() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var err error
	if configPath != "" {
		globalConfig, err = config.LoadFrom(configPath)
	} else {
		globalConfig, err = config.Load()
	}
	if err != nil {
		// Deferred reporting: commands that need config get a clear
		// error from GetConfig, commands like 'version' keep working.
		configLoadErr = err
	}
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		return nil, fmt.Errorf("config not loaded")
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
