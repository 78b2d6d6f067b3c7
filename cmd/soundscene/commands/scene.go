package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/soundscene/soundscene/pkg/cli"
	"github.com/soundscene/soundscene/pkg/clips"
	"github.com/soundscene/soundscene/pkg/scene"
	"github.com/soundscene/soundscene/pkg/structure"
)

var (
	sceneStructFile string
	sceneSeed       uint64
	sceneScheduler  string
	sceneIndexDir   string
	sceneFormat     string
	sceneOut        string
)

var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Generate and query timed segment lists",
	Long: `Generate a scene (a flat, timed list of audio segments) from a
structure file, or query an existing scene with a jq expression.

Scene generation draws clips from the configured clip index; the same
structure, index state and seed always produce the same scene.

Examples:
  soundscene scene generate -f session.json --seed 7 -o scene.json
  soundscene scene generate -f session.json --scheduler round-robin --format msgpack
  soundscene scene query -f scene.json '.[] | select(.kind == "generator")'
  soundscene scene query -f scene.json '[.[] | .end] | max'`,
}

var sceneGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a scene from a structure file",
	RunE:  runSceneGenerate,
}

func runSceneGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(sceneStructFile)
	if err != nil {
		return err
	}
	root, err := structure.Parse(data)
	if err != nil {
		return err
	}

	indexDir := sceneIndexDir
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

	pool, err := ix.Pool(structure.Speakers(root))
	if err != nil {
		return err
	}

	opts := scene.Options{
		Source: pool,
		Seed:   sceneSeed,
		Policy: cfg.Policy(),
	}
	switch sceneScheduler {
	case "", "random":
	case "round-robin":
		opts.Scheduler = scene.NewRoundRobinScheduler(rand.NewSource(sceneSeed), cfg.Policy())
	default:
		return fmt.Errorf("unknown scheduler %q (random, round-robin)", sceneScheduler)
	}

	segments, err := scene.Generate(root, opts)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch sceneFormat {
	case "", "json":
		err = scene.EncodeJSON(&buf, segments)
	case "msgpack":
		err = scene.EncodeMsgpack(&buf, segments)
	default:
		err = fmt.Errorf("unknown format %q (json, msgpack)", sceneFormat)
	}
	if err != nil {
		return err
	}

	out := sceneOut
	if out == "" {
		ext := "json"
		if sceneFormat == "msgpack" {
			ext = "msgpack"
		}
		out = fmt.Sprintf("scene-%s.%s", uuid.NewString(), ext)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}

	var last scene.Segment
	if len(segments) > 0 {
		last = segments[len(segments)-1]
	}
	fmt.Print(styles.Summary("Scene generated",
		[2]string{"segments", strconv.Itoa(len(segments))},
		[2]string{"duration", cli.FormatDuration(last.End)},
		[2]string{"output", out},
	))
	return nil
}

var sceneQueryFile string

var sceneQueryCmd = &cobra.Command{
	Use:   "query <jq expression>",
	Short: "Query a scene file with a jq expression",
	Long: `Run a jq expression over a scene file. The scene is presented as a
JSON array of segments; each result is printed as one line of JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runSceneQuery,
}

func runSceneQuery(cmd *cobra.Command, args []string) error {
	segments, err := readSceneFile(sceneQueryFile)
	if err != nil {
		return err
	}

	// Round trip through JSON to get gojq's generic value form.
	wire, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(wire, &doc); err != nil {
		return err
	}

	query, err := gojq.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	iter := query.RunWithContext(cmd.Context(), doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("query: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// readSceneFile loads a scene in either wire format, picked by extension.
func readSceneFile(path string) ([]scene.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".msgp", ".mp":
		return scene.DecodeMsgpack(f)
	default:
		return scene.DecodeJSON(f)
	}
}

func init() {
	sceneGenerateCmd.Flags().StringVarP(&sceneStructFile, "file", "f", "", "structure file")
	sceneGenerateCmd.MarkFlagRequired("file")
	sceneGenerateCmd.Flags().Uint64Var(&sceneSeed, "seed", 0, "random seed")
	sceneGenerateCmd.Flags().StringVar(&sceneScheduler, "scheduler", "random", "turn scheduler (random, round-robin)")
	sceneGenerateCmd.Flags().StringVar(&sceneIndexDir, "index", "", "clip index directory (overrides config)")
	sceneGenerateCmd.Flags().StringVar(&sceneFormat, "format", "json", "output format (json, msgpack)")
	sceneGenerateCmd.Flags().StringVarP(&sceneOut, "output", "o", "", "output file (default scene-<id>.<ext>)")

	sceneQueryCmd.Flags().StringVarP(&sceneQueryFile, "file", "f", "", "scene file")
	sceneQueryCmd.MarkFlagRequired("file")

	sceneCmd.AddCommand(sceneGenerateCmd)
	sceneCmd.AddCommand(sceneQueryCmd)
	rootCmd.AddCommand(sceneCmd)
}
