package scene

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/exp/rand"

	"github.com/soundscene/soundscene/pkg/clips"
	"github.com/soundscene/soundscene/pkg/structure"
)

// NoiseChannel is the default output channel for non-speech sources.
// Speaker channels default to the speaker's ID, numbered from 1.
const NoiseChannel = 0

// Options configures scene generation. Source is required; everything
// else has working defaults.
type Options struct {
	// Source supplies clips for conversation turns. Required.
	Source clips.Source

	// Seed seeds the generator's random stream. The same structure tree,
	// source state and seed always produce an identical segment list.
	Seed uint64

	// Scheduler is the turn-taking discipline. Defaults to a
	// RandomScheduler with the default TurnPolicy, seeded from Seed.
	// Custom schedulers own their randomness and must be seeded by the
	// caller.
	Scheduler TurnScheduler

	// Policy configures the default scheduler; ignored when Scheduler
	// is set.
	Policy TurnPolicy

	// ChannelFor maps a speaker to its output channel. Defaults to the
	// identity mapping (speaker N speaks on channel N).
	ChannelFor func(structure.SpeakerID) int

	// NoiseChannel receives noise segments. Defaults to NoiseChannel.
	NoiseChannel int
}

// Generate flattens a structure tree into an ordered segment list.
//
// The walk is a pure depth-first recursion with the global origin at 0:
// each node receives the cursor of its timeline, consumes its declared
// duration, and hands the advanced cursor to its successor. Splitter
// branches run on independent cursors from a shared start; the splitter
// completes at the latest branch end. The returned list is sorted by
// start time, then channel.
//
// Generation fails with *structure.FormatError semantics already handled
// at parse time, *DurationConflictError when a conversation cannot seat
// its speakers, and *InsufficientSourceMaterialError when the clip source
// runs dry. No partial output is returned on failure.
func Generate(root structure.Node, opts Options) ([]Segment, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("scene: Options.Source is required")
	}
	sched := opts.Scheduler
	rng := rand.New(rand.NewSource(opts.Seed))
	if sched == nil {
		sched = NewRandomScheduler(rand.NewSource(rng.Uint64()), opts.Policy)
	}
	if err := sched.Policy().validate(); err != nil {
		return nil, err
	}
	channelFor := opts.ChannelFor
	if channelFor == nil {
		channelFor = func(s structure.SpeakerID) int { return int(s) }
	}

	w := &walker{
		source:       opts.Source,
		sched:        sched,
		rng:          rng,
		channelFor:   channelFor,
		noiseChannel: opts.NoiseChannel,
	}
	if _, err := w.walk(root, 0, "", nil); err != nil {
		return nil, err
	}

	sort.SliceStable(w.segments, func(i, j int) bool {
		a, b := w.segments[i], w.segments[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Channel < b.Channel
	})
	return w.segments, nil
}

type walker struct {
	source       clips.Source
	sched        TurnScheduler
	rng          *rand.Rand
	channelFor   func(structure.SpeakerID) int
	noiseChannel int

	segments []Segment
}

// walk interprets one node starting at cursor on the active timeline and
// returns the cursor after the node's declared duration. active is the
// speaker set in scope; a node's own speaker set narrows it but never
// widens it.
func (w *walker) walk(n structure.Node, cursor time.Duration, path string, active []structure.SpeakerID) (time.Duration, error) {
	switch n := n.(type) {
	case *structure.Sequence:
		path = extendPath(path, n)
		active = narrowSpeakers(active, n.Speakers)
		for i, el := range n.Elements {
			var err error
			cursor, err = w.walk(el, cursor, fmt.Sprintf("%s/elements[%d]", path, i), active)
			if err != nil {
				return 0, err
			}
		}
		return cursor, nil

	case *structure.Splitter:
		path = extendPath(path, n)
		// Branches share the entry cursor but advance independently; the
		// splitter holds its timeline until the slowest branch completes.
		end := cursor
		for i, el := range n.Elements {
			branchEnd, err := w.walk(el, cursor, fmt.Sprintf("%s/elements[%d]", path, i), active)
			if err != nil {
				return 0, err
			}
			if branchEnd > end {
				end = branchEnd
			}
		}
		return end, nil

	case *structure.Conversation:
		return w.conversation(n, cursor, extendPath(path, n), active)

	case *structure.Noise:
		path = extendPath(path, n)
		if n.Duration == 0 {
			return cursor, nil
		}
		w.segments = append(w.segments, Segment{
			Start:   cursor,
			End:     cursor + n.Duration,
			Channel: w.noiseChannel,
			Kind:    KindGenerator,
			Generator: &GeneratorParams{
				Kind:    GenNoise,
				Color:   n.Params.Color,
				LevelDB: n.Params.LevelDB,
				Seed:    w.rng.Uint64(),
			},
		})
		return cursor + n.Duration, nil

	case *structure.Pause:
		return cursor + n.Duration, nil
	}
	return 0, fmt.Errorf("scene: %s: unknown node type %T", path, n)
}

// conversation expands a conversation node into per-speaker turns filling
// exactly the node's duration. Turns abut with scheduler-drawn overlap or
// gaps; the final turn is truncated to land on the end boundary.
func (w *walker) conversation(c *structure.Conversation, start time.Duration, path string, active []structure.SpeakerID) (time.Duration, error) {
	speakers := narrowSpeakers(active, c.Speakers)
	if len(speakers) < 2 {
		return 0, fmt.Errorf("scene: %s: speakers %v leave fewer than 2 participants in scope %v", path, c.Speakers, active)
	}

	policy := w.sched.Policy()
	if min := policy.MinSpan(len(speakers)); c.Duration < min {
		return 0, &DurationConflictError{
			Path:     path,
			Duration: c.Duration,
			Min:      min,
			Speakers: len(speakers),
		}
	}

	end := start + c.Duration
	cursor := start
	var last structure.SpeakerID
	for cursor < end {
		speaker := w.sched.NextSpeaker(speakers, last)

		turnStart := cursor
		if last != 0 {
			turnStart = cursor + w.sched.TurnOffset()
			if turnStart < start {
				turnStart = start
			}
			// A gap must leave room for a minimum turn before the
			// boundary, so the conversation fills its span exactly.
			if maxStart := end - policy.MinTurn; turnStart > maxStart {
				turnStart = maxStart
				if turnStart < cursor {
					turnStart = cursor
				}
			}
		}

		// Overlapping turns must reach past the cursor by a minimum turn;
		// the boundary caps what the final turn can use.
		need := policy.MinTurn
		if turnStart < cursor {
			need = cursor - turnStart + policy.MinTurn
		}
		if remaining := end - turnStart; need > remaining {
			need = remaining
		}

		clip, err := w.source.Next(speaker, need)
		if err != nil {
			return 0, &InsufficientSourceMaterialError{
				Path:    path,
				Speaker: speaker,
				Min:     need,
				Err:     err,
			}
		}

		turnEnd := turnStart + clip.Length
		if turnEnd > end {
			// Truncate the last turn to land exactly on the boundary.
			turnEnd = end
		}
		w.segments = append(w.segments, Segment{
			Start:      turnStart,
			End:        turnEnd,
			Channel:    w.channelFor(speaker),
			Kind:       KindFile,
			Path:       clip.Path,
			ClipOffset: 0,
			Rate:       clip.Rate,
		})
		cursor = turnEnd
		last = speaker
	}
	return end, nil
}

func extendPath(path string, n structure.Node) string {
	if path == "" {
		return string(n.Type())
	}
	return path + "/" + string(n.Type())
}

// narrowSpeakers intersects the active set with a node's declared set.
// A nil declared set inherits the active set; a nil active set (the root)
// adopts the declared one.
func narrowSpeakers(active, declared []structure.SpeakerID) []structure.SpeakerID {
	if len(declared) == 0 {
		return active
	}
	if len(active) == 0 {
		return declared
	}
	in := make(map[structure.SpeakerID]bool, len(active))
	for _, s := range active {
		in[s] = true
	}
	var out []structure.SpeakerID
	for _, s := range declared {
		if in[s] {
			out = append(out, s)
		}
	}
	return out
}
