package scene

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeJSON writes a segment list as an indented JSON array, the
// interchange form consumed by external tooling.
func EncodeJSON(w io.Writer, segments []Segment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(segments)
}

// DecodeJSON reads a JSON segment list.
func DecodeJSON(r io.Reader) ([]Segment, error) {
	var segments []Segment
	if err := json.NewDecoder(r).Decode(&segments); err != nil {
		return nil, fmt.Errorf("scene: decoding JSON scene: %w", err)
	}
	return segments, nil
}

// EncodeMsgpack writes a segment list in msgpack form, a compact
// alternative for long sessions with tens of thousands of segments.
func EncodeMsgpack(w io.Writer, segments []Segment) error {
	return msgpack.NewEncoder(w).Encode(segments)
}

// DecodeMsgpack reads a msgpack segment list.
func DecodeMsgpack(r io.Reader) ([]Segment, error) {
	var segments []Segment
	if err := msgpack.NewDecoder(r).Decode(&segments); err != nil {
		return nil, fmt.Errorf("scene: decoding msgpack scene: %w", err)
	}
	return segments, nil
}
