package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/soundscene/soundscene/pkg/clips"
)

var (
	clipsIndexDir string
	clipsRate     int
)

var clipsCmd = &cobra.Command{
	Use:   "clips",
	Short: "Manage the clip metadata index",
	Long: `Manage the BadgerDB index of clip metadata that scene generation and
babble synthesis draw on.

Examples:
  soundscene clips import dataset.csv
  cat dataset.csv | soundscene clips import -
  soundscene clips speakers`,
}

var clipsImportCmd = &cobra.Command{
	Use:   "import <csv file>",
	Short: "Import clip metadata from a dataset CSV",
	Long: `Import clip metadata rows into the index. The CSV must carry a header
with at least "speaker" and "file_name" columns; "length" (in samples),
"sample_rate" and "rms_level_vad" are honored when present. Pass "-" to
read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runClipsImport,
}

func runClipsImport(cmd *cobra.Command, args []string) error {
	ix, err := openIndex(clipsIndexDir)
	if err != nil {
		return err
	}
	defer ix.Close()

	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	n, err := ix.ImportCSV(in, clipsRate)
	if err != nil {
		return err
	}
	speakers, err := ix.Speakers()
	if err != nil {
		return err
	}

	fmt.Print(styles.Summary("Clips imported",
		[2]string{"rows", strconv.Itoa(n)},
		[2]string{"speakers", strconv.Itoa(len(speakers))},
	))
	return nil
}

var clipsSpeakersCmd = &cobra.Command{
	Use:   "speakers",
	Short: "List indexed speakers and their clip counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := openIndex(clipsIndexDir)
		if err != nil {
			return err
		}
		defer ix.Close()

		speakers, err := ix.Speakers()
		if err != nil {
			return err
		}
		for _, sp := range speakers {
			list, err := ix.Speaker(sp)
			if err != nil {
				return err
			}
			fmt.Printf("%d\t%d clips\n", sp, len(list))
		}
		return nil
	},
}

// openIndex opens the clip index named by the flag or the config.
func openIndex(flagDir string) (*clips.Index, error) {
	dir := flagDir
	if dir == "" {
		cfg, err := GetConfig()
		if err != nil {
			return nil, err
		}
		dir = cfg.Clips.Index
	}
	if dir == "" {
		return nil, fmt.Errorf("no clip index configured (set clips.index or pass --index)")
	}
	return clips.OpenIndex(clips.IndexOptions{Dir: dir})
}

func init() {
	clipsCmd.PersistentFlags().StringVar(&clipsIndexDir, "index", "", "clip index directory (overrides config)")
	clipsImportCmd.Flags().IntVar(&clipsRate, "rate", 16000, "default sample rate for rows without a sample_rate column")

	clipsCmd.AddCommand(clipsImportCmd)
	clipsCmd.AddCommand(clipsSpeakersCmd)
	rootCmd.AddCommand(clipsCmd)
}
