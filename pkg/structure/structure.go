// Package structure defines the scenario structure tree: a nested,
// declarative description of a multi-party listening scenario built from
// sequences, splitters, conversations, noise and pauses.
//
// A structure tree is pure data. It is parsed once from its JSON form,
// validated, and handed to the scene generator, which flattens it into a
// timed segment list.
package structure

import (
	"encoding/json"
	"fmt"
	"time"
)

// SpeakerID identifies one speaker in a scenario. Speakers are numbered
// from 1; channel 0 is reserved for non-speech sources.
type SpeakerID int

// NodeType is the wire tag that selects a node variant.
type NodeType string

// Node type tags as they appear in the "type" field of structure files.
const (
	TypeSequence     NodeType = "sequence"
	TypeSplitter     NodeType = "splitter"
	TypeConversation NodeType = "conversation"
	TypeNoise        NodeType = "noise"
	TypePause        NodeType = "pause"
)

// Node is one node of a structure tree. The set of implementations is
// closed: Sequence, Splitter, Conversation, Noise and Pause. Generation
// logic switches exhaustively over these five types.
type Node interface {
	// Type returns the node's wire tag.
	Type() NodeType

	isNode()
}

// Sequence runs its children one after another on a single shared timeline.
// Speakers, when set, restricts which of the enclosing speaker set
// participates in the subtree; children may narrow it further but never
// widen it.
type Sequence struct {
	Speakers []SpeakerID
	Elements []Node
}

// Splitter starts all children at the same offset on independent timelines.
// It completes only when its slowest child completes.
type Splitter struct {
	Elements []Node
}

// Conversation is a timed unit that the generator expands into a sequence
// of per-speaker turns filling exactly Duration.
type Conversation struct {
	Speakers []SpeakerID
	Duration time.Duration
}

// Noise is a single synthetic-signal event on the noise channel.
type Noise struct {
	Duration time.Duration
	Params   NoiseParams
}

// Pause consumes time on its timeline without emitting anything.
type Pause struct {
	Duration time.Duration
}

func (*Sequence) Type() NodeType     { return TypeSequence }
func (*Splitter) Type() NodeType     { return TypeSplitter }
func (*Conversation) Type() NodeType { return TypeConversation }
func (*Noise) Type() NodeType        { return TypeNoise }
func (*Pause) Type() NodeType        { return TypePause }

func (*Sequence) isNode()     {}
func (*Splitter) isNode()     {}
func (*Conversation) isNode() {}
func (*Noise) isNode()        {}
func (*Pause) isNode()        {}

// NoiseColor selects the spectral shape of synthesized noise.
type NoiseColor string

// Supported noise colors.
const (
	NoiseWhite NoiseColor = "white"
	NoisePink  NoiseColor = "pink"
)

// NoiseParams parameterizes a synthetic noise event.
type NoiseParams struct {
	// Color selects the spectral shape. Defaults to white.
	Color NoiseColor `json:"color,omitempty" msgpack:"color"`

	// LevelDB is the RMS level in dBFS. 0 means full scale;
	// typical backgrounds sit around -30.
	LevelDB float64 `json:"level_db,omitempty" msgpack:"level_db"`
}

// TotalDuration returns the declared duration of a subtree: the explicit
// duration for leaf nodes, the sum of children for a sequence, and the
// maximum over children for a splitter.
func TotalDuration(n Node) time.Duration {
	switch n := n.(type) {
	case *Sequence:
		var total time.Duration
		for _, el := range n.Elements {
			total += TotalDuration(el)
		}
		return total
	case *Splitter:
		var max time.Duration
		for _, el := range n.Elements {
			if d := TotalDuration(el); d > max {
				max = d
			}
		}
		return max
	case *Conversation:
		return n.Duration
	case *Noise:
		return n.Duration
	case *Pause:
		return n.Duration
	}
	panic(fmt.Sprintf("structure: unknown node type %T", n))
}

// Speakers returns the speaker set a subtree can draw on: the node's own
// set for sequences and conversations, and the union of children for
// splitters. Leaf nodes without speakers return nil.
func Speakers(n Node) []SpeakerID {
	switch n := n.(type) {
	case *Sequence:
		if len(n.Speakers) > 0 {
			return n.Speakers
		}
		return unionSpeakers(n.Elements)
	case *Splitter:
		return unionSpeakers(n.Elements)
	case *Conversation:
		return n.Speakers
	case *Noise, *Pause:
		return nil
	}
	panic(fmt.Sprintf("structure: unknown node type %T", n))
}

func unionSpeakers(elements []Node) []SpeakerID {
	seen := map[SpeakerID]bool{}
	var out []SpeakerID
	for _, el := range elements {
		for _, s := range Speakers(el) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// MarshalJSON emits the tagged wire form with durations in seconds.
func (n *Sequence) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     NodeType    `json:"type"`
		Speakers []SpeakerID `json:"speakers,omitempty"`
		Elements []Node      `json:"elements"`
	}{TypeSequence, n.Speakers, n.Elements})
}

// MarshalJSON emits the tagged wire form.
func (n *Splitter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     NodeType `json:"type"`
		Elements []Node   `json:"elements"`
	}{TypeSplitter, n.Elements})
}

// MarshalJSON emits the tagged wire form with the duration in seconds.
func (n *Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     NodeType    `json:"type"`
		Speakers []SpeakerID `json:"speakers"`
		Duration float64     `json:"duration"`
	}{TypeConversation, n.Speakers, n.Duration.Seconds()})
}

// MarshalJSON emits the tagged wire form with the duration in seconds.
func (n *Noise) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     NodeType    `json:"type"`
		Duration float64     `json:"duration"`
		Params   NoiseParams `json:"params"`
	}{TypeNoise, n.Duration.Seconds(), n.Params})
}

// MarshalJSON emits the tagged wire form with the duration in seconds.
func (n *Pause) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     NodeType `json:"type"`
		Duration float64  `json:"duration"`
	}{TypePause, n.Duration.Seconds()})
}
