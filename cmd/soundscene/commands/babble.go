package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/soundscene/soundscene/pkg/audio/babble"
	"github.com/soundscene/soundscene/pkg/audio/pcm"
	"github.com/soundscene/soundscene/pkg/cli"
	"github.com/soundscene/soundscene/pkg/clips"
)

var (
	babbleDuration float64
	babbleSeed     uint64
	babbleVoices   int
	babbleLevel    float64
	babbleIndexDir string
	babbleOut      string
)

var babbleCmd = &cobra.Command{
	Use:   "babble",
	Short: "Synthesize multitalker babble noise",
	Long: `Synthesize babble by layering voice streams drawn from every speaker
in the clip index. The output is mono raw L16 PCM at the configured rate.

Examples:
  soundscene babble --duration 300 --seed 1 -o babble.pcm
  soundscene babble --duration 60 --voices 16 --level-db -30`,
	RunE: runBabble,
}

func runBabble(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if babbleDuration <= 0 {
		return fmt.Errorf("--duration must be positive")
	}
	store, err := cfg.Store()
	if err != nil {
		return err
	}

	indexDir := babbleIndexDir
	if indexDir == "" {
		indexDir = cfg.Clips.Index
	}
	if indexDir == "" {
		return fmt.Errorf("no clip index configured (set clips.index or pass --index)")
	}
	ix, err := clips.OpenIndex(clips.IndexOptions{Dir: indexDir})
	if err != nil {
		return err
	}
	defer ix.Close()

	speakers, err := ix.Speakers()
	if err != nil {
		return err
	}
	pool, err := ix.Pool(speakers)
	if err != nil {
		return err
	}

	var opts []babble.Option
	if babbleVoices > 0 {
		opts = append(opts, babble.WithVoices(babbleVoices))
	} else if cfg.Babble.Voices > 0 {
		opts = append(opts, babble.WithVoices(cfg.Babble.Voices))
	}
	if babbleLevel != 0 {
		opts = append(opts, babble.WithLevelDB(babbleLevel))
	} else if cfg.Babble.LevelDB != 0 {
		opts = append(opts, babble.WithLevelDB(cfg.Babble.LevelDB))
	}

	g, err := babble.New(store, cfg.Format(), pool, speakers, babbleSeed, opts...)
	if err != nil {
		return err
	}

	duration := time.Duration(babbleDuration * float64(time.Second))
	samples, err := g.Generate(cmd.Context(), duration)
	if err != nil {
		return err
	}

	out := babbleOut
	if out == "" {
		out = fmt.Sprintf("babble-%s.pcm", uuid.NewString())
	}
	data := pcm.EncodeL16(samples)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}

	fmt.Print(styles.Summary("Babble generated",
		[2]string{"duration", cli.FormatDuration(duration)},
		[2]string{"speakers", strconv.Itoa(len(speakers))},
		[2]string{"size", cli.FormatBytes(int64(len(data)))},
		[2]string{"output", out},
	))
	return nil
}

func init() {
	babbleCmd.Flags().Float64Var(&babbleDuration, "duration", 0, "babble duration in seconds")
	babbleCmd.MarkFlagRequired("duration")
	babbleCmd.Flags().Uint64Var(&babbleSeed, "seed", 0, "random seed")
	babbleCmd.Flags().IntVar(&babbleVoices, "voices", 0, "simultaneous talkers (default from config)")
	babbleCmd.Flags().Float64Var(&babbleLevel, "level-db", 0, "target RMS level in dBFS (default from config)")
	babbleCmd.Flags().StringVar(&babbleIndexDir, "index", "", "clip index directory (overrides config)")
	babbleCmd.Flags().StringVarP(&babbleOut, "output", "o", "", "output file (default babble-<id>.pcm)")

	rootCmd.AddCommand(babbleCmd)
}
