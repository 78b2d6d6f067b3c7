// Package render turns a list of timed scene segments into a
// multichannel PCM buffer.
//
// Rendering is a pure function of its inputs: the buffer starts as
// silence, each segment overwrites its target region, and generator
// segments carry their own seeds, so rendering the same segment list
// twice produces identical audio.
package render

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/soundscene/soundscene/pkg/audio/pcm"
	"github.com/soundscene/soundscene/pkg/audio/resampler"
	"github.com/soundscene/soundscene/pkg/scene"
	"github.com/soundscene/soundscene/pkg/storage"
)

// TargetError reports a segment whose target region does not fit the
// output buffer, either an unknown channel or an invalid time range.
type TargetError struct {
	Index    int // position in the segment list
	Channels int
	Reason   string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("render: segment %d does not fit %d-channel output: %s", e.Index, e.Channels, e.Reason)
}

// Option configures a Renderer.
type Option interface {
	apply(*Renderer)
}

type parallelismOption int

func (o parallelismOption) apply(r *Renderer) {
	r.parallelism = int(o)
}

// WithParallelism bounds the number of channels rendered concurrently.
// Defaults to GOMAXPROCS.
func WithParallelism(n int) Option {
	return parallelismOption(n)
}

// Renderer renders scene segments into multichannel buffers. Clip audio
// is read from the store as raw mono L16 at the rate each segment
// declares; clips whose rate differs from the output format are
// resampled on the fly.
type Renderer struct {
	store       storage.FileStore
	format      pcm.Format
	parallelism int
}

// New creates a Renderer writing audio in the given output format.
func New(store storage.FileStore, format pcm.Format, opts ...Option) *Renderer {
	r := &Renderer{
		store:       store,
		format:      format,
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt.apply(r)
	}
	return r
}

// ChannelCount returns the number of output channels the segment list
// needs, the highest channel number plus one.
func ChannelCount(segments []scene.Segment) int {
	max := -1
	for _, seg := range segments {
		if seg.Channel > max {
			max = seg.Channel
		}
	}
	return max + 1
}

// Render renders the segments into a fresh buffer of the given channel
// count. The buffer spans from zero to the latest segment end; untouched
// regions stay silent.
//
// Channels render concurrently. Within one channel segments apply in
// list order, so when two segments of the same channel overlap, the
// later one wins on the shared region.
func (r *Renderer) Render(ctx context.Context, segments []scene.Segment, channels int) (*pcm.Buffer, error) {
	var total int64
	for i, seg := range segments {
		if err := r.check(i, seg, channels); err != nil {
			return nil, err
		}
		if end := r.format.SampleIndex(seg.End); end > total {
			total = end
		}
	}

	buf := pcm.NewBuffer(r.format, channels, total)

	perChannel := make([][]scene.Segment, channels)
	for _, seg := range segments {
		perChannel[seg.Channel] = append(perChannel[seg.Channel], seg)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, segs := range perChannel {
		g.Go(func() error {
			for _, seg := range segs {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := r.renderSegment(ctx, buf, seg); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Renderer) check(i int, seg scene.Segment, channels int) error {
	fail := func(format string, args ...any) error {
		return &TargetError{Index: i, Channels: channels, Reason: fmt.Sprintf(format, args...)}
	}
	if seg.Channel < 0 || seg.Channel >= channels {
		return fail("channel %d out of range", seg.Channel)
	}
	if seg.Start < 0 || seg.End < seg.Start {
		return fail("invalid time range [%v, %v)", seg.Start, seg.End)
	}
	switch seg.Kind {
	case scene.KindFile:
		if seg.Path == "" {
			return fail("file segment without path")
		}
		if seg.Rate <= 0 {
			return fail("file segment %s without sample rate", seg.Path)
		}
	case scene.KindGenerator:
		if seg.Generator == nil {
			return fail("generator segment without parameters")
		}
		if seg.Generator.Kind != scene.GenNoise {
			return fail("unknown generator kind %q", seg.Generator.Kind)
		}
	default:
		return fail("unknown segment kind %q", seg.Kind)
	}
	return nil
}

func (r *Renderer) renderSegment(ctx context.Context, buf *pcm.Buffer, seg scene.Segment) error {
	start := r.format.SampleIndex(seg.Start)
	span := r.format.SampleIndex(seg.End) - start
	if span <= 0 {
		return nil
	}

	var samples []int16
	switch seg.Kind {
	case scene.KindFile:
		var err error
		samples, err = r.clipSamples(ctx, seg, span)
		if err != nil {
			return fmt.Errorf("render: clip %s: %w", seg.Path, err)
		}
	case scene.KindGenerator:
		samples = Noise(seg.Generator, span)
	}
	return buf.Write(seg.Channel, start, fitSpan(samples, span))
}

// clipSamples reads the segment's slice of clip audio and converts it to
// the output rate. A clip shorter than the segment is zero-padded later
// by fitSpan; only the bytes actually needed cross the store boundary.
func (r *Renderer) clipSamples(ctx context.Context, seg scene.Segment, span int64) ([]int16, error) {
	clipFmt := pcm.Format{Rate: seg.Rate}
	need := clipFmt.SamplesIn(seg.End - seg.Start)
	offset := clipFmt.Bytes(clipFmt.SamplesIn(seg.ClipOffset))

	rc, err := r.store.ReadRange(ctx, seg.Path, offset, clipFmt.Bytes(need))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	src, err := pcm.ReadSamples(rc, need)
	if err != nil {
		return nil, err
	}
	if seg.Rate == r.format.Rate {
		return src, nil
	}
	return resampler.Resample(src, seg.Rate, r.format.Rate)
}

// fitSpan trims or zero-pads samples to exactly span entries.
func fitSpan(samples []int16, span int64) []int16 {
	if int64(len(samples)) >= span {
		return samples[:span]
	}
	padded := make([]int16, span)
	copy(padded, samples)
	return padded
}
