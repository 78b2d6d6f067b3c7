// Package clips manages the pool of source utterance clips that scene
// generation draws on. Clip metadata lives in a BadgerDB-backed index,
// built once from a dataset CSV; generation itself only touches in-memory
// per-speaker pools, so no I/O happens during a generator walk.
package clips

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/soundscene/soundscene/pkg/structure"
)

// ErrNoClip is returned when a speaker has no clip satisfying a request.
var ErrNoClip = errors.New("clips: no suitable clip")

// Clip describes one source utterance clip. Paths are forward-slash
// separated and relative to the configured clip root; resolution to a
// concrete store is the renderer's concern.
type Clip struct {
	Speaker  structure.SpeakerID `msgpack:"speaker"`
	Path     string              `msgpack:"path"`
	Rate     int                 `msgpack:"rate"`
	Length   time.Duration       `msgpack:"length"`
	RMSLevel float64             `msgpack:"rms_level"`
}

// Source hands out clips for conversation turns.
//
// Implementations must be deterministic: the same call sequence yields the
// same clips. The generator depends on this for reproducible scenes.
type Source interface {
	// Next returns the next available clip for the speaker with length at
	// least min. Returns an error wrapping ErrNoClip if the speaker is
	// unknown or owns no clip of adequate length.
	Next(speaker structure.SpeakerID, min time.Duration) (Clip, error)
}

// Pool is an in-memory Source. Each speaker's clips are ordered by path
// and consumed round-robin with wrap-around, mirroring how recording
// sessions cycle through a speaker's material.
type Pool struct {
	speakers map[structure.SpeakerID]*speakerPool
}

type speakerPool struct {
	clips  []Clip
	cursor int
}

// NewPool builds a Pool from clip metadata. Clips are grouped by speaker
// and sorted by path so pool behavior does not depend on input order.
func NewPool(clips []Clip) *Pool {
	p := &Pool{speakers: make(map[structure.SpeakerID]*speakerPool)}
	for _, c := range clips {
		sp := p.speakers[c.Speaker]
		if sp == nil {
			sp = &speakerPool{}
			p.speakers[c.Speaker] = sp
		}
		sp.clips = append(sp.clips, c)
	}
	for _, sp := range p.speakers {
		sort.Slice(sp.clips, func(i, j int) bool { return sp.clips[i].Path < sp.clips[j].Path })
	}
	return p
}

// Speakers returns the IDs present in the pool, in ascending order.
func (p *Pool) Speakers() []structure.SpeakerID {
	out := make([]structure.SpeakerID, 0, len(p.speakers))
	for id := range p.speakers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Next returns the speaker's next clip of at least min length, scanning at
// most one full cycle from the speaker's cursor and wrapping at the end of
// the clip list.
func (p *Pool) Next(speaker structure.SpeakerID, min time.Duration) (Clip, error) {
	sp := p.speakers[speaker]
	if sp == nil || len(sp.clips) == 0 {
		return Clip{}, fmt.Errorf("%w: unknown speaker %d", ErrNoClip, speaker)
	}
	for scanned := 0; scanned < len(sp.clips); scanned++ {
		c := sp.clips[sp.cursor]
		sp.cursor = (sp.cursor + 1) % len(sp.clips)
		if c.Length >= min {
			return c, nil
		}
	}
	return Clip{}, fmt.Errorf("%w: speaker %d has no clip of at least %v", ErrNoClip, speaker, min)
}
