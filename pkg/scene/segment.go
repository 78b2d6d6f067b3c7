// Package scene turns a structure tree into a flat, timed list of audio
// segments. The segment list is the hand-off artifact between generation
// and rendering: generation owns all randomness and placement decisions,
// so rendering the same list twice yields byte-identical audio.
package scene

import (
	"encoding/json"
	"math"
	"time"

	"github.com/soundscene/soundscene/pkg/structure"
)

// PayloadKind tags what a segment's samples come from.
type PayloadKind string

// Segment payload kinds.
const (
	// KindFile plays samples from a source clip.
	KindFile PayloadKind = "file"
	// KindGenerator synthesizes samples procedurally.
	KindGenerator PayloadKind = "generator"
)

// GenNoise is the generator kind for synthetic noise.
const GenNoise = "noise"

// GeneratorParams parameterizes a synthetic segment. Seed is assigned at
// generation time from the scene's random stream so that rendering needs
// no randomness of its own.
type GeneratorParams struct {
	Kind    string               `json:"kind" msgpack:"kind"`
	Color   structure.NoiseColor `json:"color,omitempty" msgpack:"color"`
	LevelDB float64              `json:"level_db,omitempty" msgpack:"level_db"`
	Seed    uint64               `json:"seed" msgpack:"seed"`
}

// Segment is one placed audio event. Start and End are absolute from the
// scene origin; Channel is the output channel the samples land on.
//
// File segments reference a source clip: Path relative to the clip root,
// ClipOffset the position within the clip where playback starts, and Rate
// the clip's native sample rate (the renderer resamples when it differs
// from the scene rate). Generator segments carry their parameters inline.
//
// Segments are immutable once emitted.
type Segment struct {
	Start      time.Duration    `msgpack:"start"`
	End        time.Duration    `msgpack:"end"`
	Channel    int              `msgpack:"channel"`
	Kind       PayloadKind      `msgpack:"kind"`
	Path       string           `msgpack:"path,omitempty"`
	ClipOffset time.Duration    `msgpack:"clip_offset,omitempty"`
	Rate       int              `msgpack:"rate,omitempty"`
	Generator  *GeneratorParams `msgpack:"generator_params,omitempty"`
}

// Duration returns the segment's span.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// segmentJSON is the wire form: times in seconds.
type segmentJSON struct {
	Start      float64          `json:"start"`
	End        float64          `json:"end"`
	Channel    int              `json:"channel"`
	Kind       PayloadKind      `json:"kind"`
	Path       string           `json:"path,omitempty"`
	ClipOffset float64          `json:"clip_offset,omitempty"`
	Rate       int              `json:"rate,omitempty"`
	Generator  *GeneratorParams `json:"generator_params,omitempty"`
}

// MarshalJSON emits the wire form with times in seconds.
func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentJSON{
		Start:      s.Start.Seconds(),
		End:        s.End.Seconds(),
		Channel:    s.Channel,
		Kind:       s.Kind,
		Path:       s.Path,
		ClipOffset: s.ClipOffset.Seconds(),
		Rate:       s.Rate,
		Generator:  s.Generator,
	})
}

// UnmarshalJSON parses the wire form.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var w segmentJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Segment{
		Start:      secondsToDuration(w.Start),
		End:        secondsToDuration(w.End),
		Channel:    w.Channel,
		Kind:       w.Kind,
		Path:       w.Path,
		ClipOffset: secondsToDuration(w.ClipOffset),
		Rate:       w.Rate,
		Generator:  w.Generator,
	}
	return nil
}

// secondsToDuration rounds to the nearest nanosecond so that encode/decode
// cycles reproduce durations exactly.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
