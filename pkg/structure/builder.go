package structure

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Segmenter splits a total duration into successive phase durations that
// sum exactly to the total.
type Segmenter func(total time.Duration) []time.Duration

// ExponentialSegmenter returns a Segmenter drawing phase lengths from an
// exponential distribution with mean halfLife, clamped below by minPhase.
// The final phase is shortened so the phases sum exactly to the total.
//
// A non-positive minPhase falls back to one second, and halfLife is raised
// to at least minPhase, so every phase has positive length and the
// segmentation terminates.
func ExponentialSegmenter(src rand.Source, halfLife, minPhase time.Duration) Segmenter {
	if minPhase <= 0 {
		minPhase = time.Second
	}
	if halfLife < minPhase {
		halfLife = minPhase
	}
	dist := distuv.Exponential{Rate: 1 / halfLife.Seconds(), Src: src}
	return func(total time.Duration) []time.Duration {
		var phases []time.Duration
		var end time.Duration
		for end != total {
			d := time.Duration(dist.Rand() * float64(time.Second))
			if d < minPhase {
				d = minPhase
			}
			if d > total-end {
				d = total - end
			}
			phases = append(phases, d)
			end += d
		}
		return phases
	}
}

// Builder constructs randomized scenario structures modelling a room of
// tables holding independent conversations, optionally segmented into
// alternating whole-table and split-table phases.
type Builder struct {
	rng       *rand.Rand
	segmenter Segmenter
}

// BuilderOption configures a Builder.
type BuilderOption interface {
	apply(*Builder)
}

type segmenterOption struct{ s Segmenter }

func (o segmenterOption) apply(b *Builder) { b.segmenter = o.s }

// WithSegmenter enables phase segmentation of table conversations.
// Without a segmenter every table holds a single conversation.
func WithSegmenter(s Segmenter) BuilderOption {
	return segmenterOption{s: s}
}

// NewBuilder creates a Builder drawing randomness from src.
func NewBuilder(src rand.Source, opts ...BuilderOption) *Builder {
	b := &Builder{rng: rand.New(src)}
	for _, opt := range opts {
		opt.apply(b)
	}
	return b
}

// SpeakerGroups assigns consecutive speaker IDs to tables of the given
// sizes, numbering speakers from 1. For example, sizes [2, 3] yields
// [[1 2] [3 4 5]].
func SpeakerGroups(tableSizes []int) [][]SpeakerID {
	groups := make([][]SpeakerID, len(tableSizes))
	next := SpeakerID(1)
	for i, size := range tableSizes {
		group := make([]SpeakerID, size)
		for j := range group {
			group[j] = next
			next++
		}
		groups[i] = group
	}
	return groups
}

// ParallelConversations builds a session structure: one splitter holding a
// table per entry of tableSizes, all running for the given duration.
func (b *Builder) ParallelConversations(tableSizes []int, duration time.Duration) Node {
	groups := SpeakerGroups(tableSizes)
	tables := make([]Node, len(groups))
	for i, group := range groups {
		tables[i] = b.Table(group, duration)
	}
	var all []SpeakerID
	for _, group := range groups {
		all = append(all, group...)
	}
	return &Sequence{
		Speakers: all,
		Elements: []Node{&Splitter{Elements: tables}},
	}
}

// Table builds the conversation pattern for one table. Tables with fewer
// than four speakers, or builders without a segmenter, hold a single
// conversation. Larger tables alternate between a whole-table phase and a
// phase split into two parallel sub-conversations.
func (b *Builder) Table(speakers []SpeakerID, duration time.Duration) Node {
	if len(speakers) < 4 || b.segmenter == nil {
		return conversationPhase([][]SpeakerID{speakers}, duration)
	}

	phases := b.segmenter(duration)
	elements := make([]Node, len(phases))
	for i, d := range phases {
		if i%2 == 0 {
			elements[i] = conversationPhase([][]SpeakerID{speakers}, d)
			continue
		}
		shuffled := append([]SpeakerID(nil), speakers...)
		b.rng.Shuffle(len(shuffled), func(a, c int) {
			shuffled[a], shuffled[c] = shuffled[c], shuffled[a]
		})
		elements[i] = conversationPhase([][]SpeakerID{shuffled[:2], shuffled[2:]}, d)
	}
	return &Sequence{Speakers: speakers, Elements: elements}
}

// conversationPhase wraps one or more concurrent speaker groups into a
// conversation node, or a splitter of conversations for parallel groups.
func conversationPhase(groups [][]SpeakerID, duration time.Duration) Node {
	if len(groups) == 1 {
		return &Conversation{Speakers: groups[0], Duration: duration}
	}
	elements := make([]Node, len(groups))
	for i, group := range groups {
		elements[i] = &Conversation{Speakers: group, Duration: duration}
	}
	return &Splitter{Elements: elements}
}
