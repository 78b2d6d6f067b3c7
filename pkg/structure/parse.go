package structure

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"
)

// FormatError reports a malformed structure document. Path locates the
// offending node from the root, e.g. "sequence/elements[2]/conversation".
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("structure: %s", e.Reason)
	}
	return fmt.Sprintf("structure: %s: %s", e.Path, e.Reason)
}

func formatErrf(path, format string, args ...any) error {
	return &FormatError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Parse decodes and validates a structure document.
//
// Validation is structural only: node tags must be known, type-required
// fields must be present, sequences and splitters must have at least one
// element, conversations must name at least two speakers, speaker IDs must
// be positive (channel 0 is reserved for non-speech sources), and durations
// must not be negative. Cross-node consistency (e.g. a speaker appearing
// in two concurrent splitter branches) is the caller's responsibility.
func Parse(data []byte) (Node, error) {
	return parseNode(data, "")
}

// Decode reads a structure document from r and parses it.
func Decode(r io.Reader) (Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// rawNode is the superset of all node fields; pointers distinguish a
// missing field from a zero one.
type rawNode struct {
	Type     *NodeType         `json:"type"`
	Speakers []SpeakerID       `json:"speakers"`
	Duration *float64          `json:"duration"`
	Elements []json.RawMessage `json:"elements"`
	Params   *NoiseParams      `json:"params"`
}

func parseNode(data []byte, path string) (Node, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, formatErrf(path, "invalid node: %v", err)
	}
	if raw.Type == nil {
		return nil, formatErrf(path, "missing %q field", "type")
	}

	path = extendPath(path, *raw.Type)
	switch *raw.Type {
	case TypeSequence:
		if err := validateSpeakers(raw.Speakers, path); err != nil {
			return nil, err
		}
		elements, err := parseElements(raw.Elements, path)
		if err != nil {
			return nil, err
		}
		return &Sequence{Speakers: raw.Speakers, Elements: elements}, nil

	case TypeSplitter:
		elements, err := parseElements(raw.Elements, path)
		if err != nil {
			return nil, err
		}
		return &Splitter{Elements: elements}, nil

	case TypeConversation:
		if len(raw.Speakers) < 2 {
			return nil, formatErrf(path, "conversation needs at least 2 speakers, got %d", len(raw.Speakers))
		}
		if err := validateSpeakers(raw.Speakers, path); err != nil {
			return nil, err
		}
		d, err := parseDuration(raw.Duration, path)
		if err != nil {
			return nil, err
		}
		return &Conversation{Speakers: raw.Speakers, Duration: d}, nil

	case TypeNoise:
		d, err := parseDuration(raw.Duration, path)
		if err != nil {
			return nil, err
		}
		var params NoiseParams
		if raw.Params != nil {
			params = *raw.Params
		}
		if params.Color == "" {
			params.Color = NoiseWhite
		}
		if params.Color != NoiseWhite && params.Color != NoisePink {
			return nil, formatErrf(path, "unknown noise color %q", params.Color)
		}
		return &Noise{Duration: d, Params: params}, nil

	case TypePause:
		d, err := parseDuration(raw.Duration, path)
		if err != nil {
			return nil, err
		}
		return &Pause{Duration: d}, nil
	}
	return nil, formatErrf(path, "unknown node type %q", *raw.Type)
}

func parseElements(raws []json.RawMessage, path string) ([]Node, error) {
	if len(raws) == 0 {
		return nil, formatErrf(path, "missing or empty %q field", "elements")
	}
	elements := make([]Node, len(raws))
	for i, raw := range raws {
		el, err := parseNode(raw, fmt.Sprintf("%s/elements[%d]", path, i))
		if err != nil {
			return nil, err
		}
		elements[i] = el
	}
	return elements, nil
}

// validateSpeakers rejects IDs below 1. Speaker channels are numbered from
// the speaker ID, so ID 0 would collide with the reserved non-speech channel.
func validateSpeakers(ids []SpeakerID, path string) error {
	for _, id := range ids {
		if id < 1 {
			return formatErrf(path, "speaker IDs are numbered from 1, got %d", id)
		}
	}
	return nil
}

func parseDuration(secs *float64, path string) (time.Duration, error) {
	if secs == nil {
		return 0, formatErrf(path, "missing %q field", "duration")
	}
	if *secs < 0 {
		return 0, formatErrf(path, "negative duration %v", *secs)
	}
	return time.Duration(math.Round(*secs * float64(time.Second))), nil
}

func extendPath(path string, t NodeType) string {
	if path == "" {
		return string(t)
	}
	return path + "/" + string(t)
}
