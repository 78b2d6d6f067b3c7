package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/soundscene/soundscene/pkg/cli"
	"github.com/soundscene/soundscene/pkg/structure"
)

var (
	structTables   string
	structDuration float64
	structHalfLife float64
	structMinPhase float64
	structSeed     uint64
	structOut      string
)

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Build, validate and describe scenario structures",
	Long: `Work with scenario structures: the trees of sequences, splitters,
conversations, pauses and noise spans that scene generation consumes.

Examples:
  # Three tables talking in parallel for ten minutes
  soundscene structure generate --tables 4,4,3 --duration 600 -o session.json

  # Check a hand-written structure file
  soundscene structure validate -f session.json

  # Print the JSON schema for structure documents
  soundscene structure schema`,
}

var structureGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a parallel-conversations structure",
	Long: `Generate a structure in which each table of speakers holds its own
conversation for the session duration. Tables of four or more speakers
alternate whole-table phases with split phases where a pair breaks off,
with phase lengths drawn from an exponential distribution.`,
	RunE: runStructureGenerate,
}

func runStructureGenerate(cmd *cobra.Command, args []string) error {
	tables, err := parseTables(structTables)
	if err != nil {
		return err
	}
	if structDuration <= 0 {
		return fmt.Errorf("--duration must be positive")
	}
	duration := time.Duration(structDuration * float64(time.Second))

	b := structure.NewBuilder(
		rand.NewSource(structSeed),
		structure.WithSegmenter(structure.ExponentialSegmenter(
			rand.NewSource(structSeed+1),
			time.Duration(structHalfLife*float64(time.Second)),
			time.Duration(structMinPhase*float64(time.Second)),
		)),
	)
	root := b.ParallelConversations(tables, duration)

	data, err := json.MarshalIndent(root, "", "    ")
	if err != nil {
		return err
	}
	if err := writeOutput(structOut, append(data, '\n')); err != nil {
		return err
	}

	if structOut != "" {
		fmt.Print(styles.Summary("Structure generated",
			[2]string{"tables", structTables},
			[2]string{"speakers", strconv.Itoa(len(structure.Speakers(root)))},
			[2]string{"duration", cli.FormatDuration(structure.TotalDuration(root))},
			[2]string{"output", structOut},
		))
	}
	return nil
}

var structureValidateFile string

var structureValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate a structure file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(structureValidateFile)
		if err != nil {
			return err
		}
		root, err := structure.Parse(data)
		if err != nil {
			return err
		}
		fmt.Print(styles.Summary("Structure valid",
			[2]string{"speakers", strconv.Itoa(len(structure.Speakers(root)))},
			[2]string{"duration", cli.FormatDuration(structure.TotalDuration(root))},
		))
		return nil
	},
}

var structureSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema for structure documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(structure.Schema(), "", "    ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// parseTables parses a comma-separated list of table sizes, e.g. "4,4,3".
func parseTables(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("--tables is required (e.g. --tables 4,4,3)")
	}
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad table size %q: %w", p, err)
		}
		if n < 2 {
			return nil, fmt.Errorf("table size %d too small, a conversation needs at least 2 speakers", n)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

// writeOutput writes data to the named file, or stdout when name is "".
func writeOutput(name string, data []byte) error {
	if name == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

func init() {
	structureGenerateCmd.Flags().StringVar(&structTables, "tables", "", "comma-separated table sizes (e.g. 4,4,3)")
	structureGenerateCmd.Flags().Float64Var(&structDuration, "duration", 600, "session duration in seconds")
	structureGenerateCmd.Flags().Float64Var(&structHalfLife, "half-life", 120, "mean phase length in seconds")
	structureGenerateCmd.Flags().Float64Var(&structMinPhase, "min-phase", 30, "minimum phase length in seconds")
	structureGenerateCmd.Flags().Uint64Var(&structSeed, "seed", 0, "random seed")
	structureGenerateCmd.Flags().StringVarP(&structOut, "output", "o", "", "output file (default stdout)")

	structureValidateCmd.Flags().StringVarP(&structureValidateFile, "file", "f", "", "structure file to validate")
	structureValidateCmd.MarkFlagRequired("file")

	structureCmd.AddCommand(structureGenerateCmd)
	structureCmd.AddCommand(structureValidateCmd)
	structureCmd.AddCommand(structureSchemaCmd)
	rootCmd.AddCommand(structureCmd)
}
