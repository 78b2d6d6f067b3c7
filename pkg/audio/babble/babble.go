// Package babble synthesizes multitalker babble by layering independent
// voice streams built from randomly drawn clips. The result is the usual
// cafeteria backdrop: individually unintelligible speech at a controlled
// level.
package babble

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/soundscene/soundscene/pkg/audio/pcm"
	"github.com/soundscene/soundscene/pkg/audio/resampler"
	"github.com/soundscene/soundscene/pkg/clips"
	"github.com/soundscene/soundscene/pkg/storage"
	"github.com/soundscene/soundscene/pkg/structure"
)

const (
	// DefaultVoices is how many simultaneous talkers the babble layers.
	DefaultVoices = 8
	// DefaultLevelDB is the overall babble RMS target in dBFS.
	DefaultLevelDB = -26.0
)

// Option configures a Generator.
type Option interface {
	apply(*Generator)
}

type voicesOption int

func (o voicesOption) apply(g *Generator) {
	g.voices = int(o)
}

// WithVoices sets the number of simultaneous talkers.
func WithVoices(n int) Option {
	return voicesOption(n)
}

type levelOption float64

func (o levelOption) apply(g *Generator) {
	g.levelDB = float64(o)
}

// WithLevelDB sets the overall babble RMS target in dBFS.
func WithLevelDB(db float64) Option {
	return levelOption(db)
}

// Generator builds babble audio from a clip source. Each voice draws
// clips from randomly chosen speakers and plays them back to back;
// voices are RMS-normalized and summed, so no single talker dominates.
//
// All randomness comes from the seed passed to New: the same seed over
// the same clip source reproduces the same babble.
type Generator struct {
	store    storage.FileStore
	format   pcm.Format
	source   clips.Source
	speakers []structure.SpeakerID
	rng      *rand.Rand

	voices  int
	levelDB float64
}

// New creates a babble generator drawing from the given speakers.
func New(store storage.FileStore, format pcm.Format, source clips.Source, speakers []structure.SpeakerID, seed uint64, opts ...Option) (*Generator, error) {
	if len(speakers) == 0 {
		return nil, fmt.Errorf("babble: no speakers to draw from")
	}
	g := &Generator{
		store:    store,
		format:   format,
		source:   source,
		speakers: speakers,
		rng:      rand.New(rand.NewSource(seed)),
		voices:   DefaultVoices,
		levelDB:  DefaultLevelDB,
	}
	for _, opt := range opts {
		opt.apply(g)
	}
	if g.voices < 1 {
		return nil, fmt.Errorf("babble: need at least 1 voice, got %d", g.voices)
	}
	return g, nil
}

// Generate synthesizes d of babble as mono samples in the generator's
// output format.
func (g *Generator) Generate(ctx context.Context, d time.Duration) ([]int16, error) {
	total := g.format.SamplesIn(d)
	acc := make([]int32, total)

	// Each voice is normalized so the sum of voices lands on the target
	// level: voice RMS = target / sqrt(voices) for independent streams.
	target := 32767 * math.Pow(10, g.levelDB/20)
	voiceRMS := target / math.Sqrt(float64(g.voices))

	for v := 0; v < g.voices; v++ {
		if err := g.layerVoice(ctx, acc, voiceRMS); err != nil {
			return nil, err
		}
	}

	out := make([]int16, total)
	for i, s := range acc {
		switch {
		case s > 32767:
			out[i] = 32767
		case s < -32768:
			out[i] = -32768
		default:
			out[i] = int16(s)
		}
	}
	return out, nil
}

// maxEmptyDraws bounds how many sampleless clips a voice skips in a row
// before it gives up on the source.
const maxEmptyDraws = 16

// layerVoice adds one talker's clip stream into the accumulator.
func (g *Generator) layerVoice(ctx context.Context, acc []int32, voiceRMS float64) error {
	pos := int64(0)
	empty := 0
	for pos < int64(len(acc)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		speaker := g.speakers[g.rng.Intn(len(g.speakers))]
		clip, err := g.source.Next(speaker, 0)
		if err != nil {
			return fmt.Errorf("babble: speaker %d: %w", speaker, err)
		}
		samples, err := g.readClip(ctx, clip)
		if err != nil {
			return fmt.Errorf("babble: clip %s: %w", clip.Path, err)
		}
		if len(samples) == 0 {
			// A clip with no audio cannot advance the stream position.
			empty++
			if empty >= maxEmptyDraws {
				return fmt.Errorf("%w: drew %d empty clips in a row", clips.ErrNoClip, empty)
			}
			continue
		}
		empty = 0
		scale := clipScale(samples, clip.RMSLevel, voiceRMS)
		for i, s := range samples {
			if pos+int64(i) >= int64(len(acc)) {
				break
			}
			acc[pos+int64(i)] += int32(float64(s) * scale)
		}
		pos += int64(len(samples))
	}
	return nil
}

func (g *Generator) readClip(ctx context.Context, clip clips.Clip) ([]int16, error) {
	rc, err := g.store.Read(ctx, clip.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var samples []int16
	if clip.Length > 0 {
		clipFmt := pcm.Format{Rate: clip.Rate}
		samples, err = pcm.ReadSamples(rc, clipFmt.SamplesIn(clip.Length))
	} else {
		// Rows imported without a length column read to EOF instead.
		var data []byte
		data, err = io.ReadAll(rc)
		samples = pcm.DecodeL16(data)
	}
	if err != nil {
		return nil, err
	}
	if clip.Rate == g.format.Rate {
		return samples, nil
	}
	return resampler.Resample(samples, clip.Rate, g.format.Rate)
}

// clipScale computes the gain that brings a clip to the voice target.
// Indexed RMS levels are trusted when present; otherwise the level is
// measured from the samples.
func clipScale(samples []int16, indexedRMS, voiceRMS float64) float64 {
	level := indexedRMS
	if level <= 0 {
		var sum float64
		for _, s := range samples {
			sum += float64(s) * float64(s)
		}
		if len(samples) > 0 {
			level = math.Sqrt(sum / float64(len(samples)))
		}
	}
	if level <= 0 {
		return 0
	}
	return voiceRMS / level
}
