package structure

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseSessionTree(t *testing.T) {
	doc := `{
		"type": "sequence",
		"speakers": [1, 2, 3],
		"elements": [
			{"type": "pause", "duration": 20},
			{"type": "conversation", "speakers": [1, 2, 3], "duration": 120},
			{"type": "splitter", "elements": [
				{"type": "conversation", "speakers": [1, 2], "duration": 90},
				{"type": "noise", "duration": 30, "params": {"color": "pink", "level_db": -30}}
			]}
		]
	}`

	root, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	seq, ok := root.(*Sequence)
	if !ok {
		t.Fatalf("expected *Sequence root, got %T", root)
	}
	if len(seq.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(seq.Elements))
	}

	conv, ok := seq.Elements[1].(*Conversation)
	if !ok {
		t.Fatalf("expected *Conversation, got %T", seq.Elements[1])
	}
	if conv.Duration != 120*time.Second {
		t.Errorf("expected 120s conversation, got %v", conv.Duration)
	}

	split, ok := seq.Elements[2].(*Splitter)
	if !ok {
		t.Fatalf("expected *Splitter, got %T", seq.Elements[2])
	}
	noise, ok := split.Elements[1].(*Noise)
	if !ok {
		t.Fatalf("expected *Noise, got %T", split.Elements[1])
	}
	if noise.Params.Color != NoisePink {
		t.Errorf("expected pink noise, got %q", noise.Params.Color)
	}
}

func TestParseRejectsMalformedNodes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{
			name: "unknown type",
			doc:  `{"type": "chorus", "duration": 10}`,
			path: "chorus",
		},
		{
			name: "missing type",
			doc:  `{"duration": 10}`,
			path: "",
		},
		{
			name: "sequence without elements",
			doc:  `{"type": "sequence", "speakers": [1, 2]}`,
			path: "sequence",
		},
		{
			name: "splitter with empty elements",
			doc:  `{"type": "splitter", "elements": []}`,
			path: "splitter",
		},
		{
			name: "conversation without duration",
			doc:  `{"type": "conversation", "speakers": [1, 2]}`,
			path: "conversation",
		},
		{
			name: "conversation with one speaker",
			doc:  `{"type": "conversation", "speakers": [1], "duration": 10}`,
			path: "conversation",
		},
		{
			name: "pause with negative duration",
			doc:  `{"type": "pause", "duration": -1}`,
			path: "pause",
		},
		{
			name: "noise with unknown color",
			doc:  `{"type": "noise", "duration": 10, "params": {"color": "brown"}}`,
			path: "noise",
		},
		{
			name: "conversation with speaker zero",
			doc:  `{"type": "conversation", "speakers": [0, 1], "duration": 10}`,
			path: "conversation",
		},
		{
			name: "sequence with negative speaker",
			doc:  `{"type": "sequence", "speakers": [-3, 1], "elements": [{"type": "pause", "duration": 5}]}`,
			path: "sequence",
		},
		{
			name: "nested bad node",
			doc:  `{"type": "sequence", "elements": [{"type": "pause"}]}`,
			path: "sequence/elements[0]/pause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected parse error")
			}
			var ferr *FormatError
			if !errors.As(err, &ferr) {
				t.Fatalf("expected *FormatError, got %T: %v", err, err)
			}
			if ferr.Path != tt.path {
				t.Errorf("expected path %q, got %q", tt.path, ferr.Path)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	root := &Sequence{
		Speakers: []SpeakerID{1, 2, 3, 4},
		Elements: []Node{
			&Pause{Duration: 20 * time.Second},
			&Splitter{Elements: []Node{
				&Conversation{Speakers: []SpeakerID{1, 2}, Duration: 90 * time.Second},
				&Conversation{Speakers: []SpeakerID{3, 4}, Duration: 120 * time.Second},
			}},
			&Noise{Duration: 30 * time.Second, Params: NoiseParams{Color: NoiseWhite, LevelDB: -30}},
		},
	}

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	again, err := json.Marshal(parsed)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(again) {
		t.Errorf("round trip mismatch:\n first: %s\nsecond: %s", data, again)
	}
}

func TestTotalDurationSumsSequencesAndMaxesSplitters(t *testing.T) {
	root := &Sequence{Elements: []Node{
		&Pause{Duration: 20 * time.Second},
		&Splitter{Elements: []Node{
			&Conversation{Speakers: []SpeakerID{1, 2}, Duration: 120 * time.Second},
			&Conversation{Speakers: []SpeakerID{3, 4}, Duration: 90 * time.Second},
		}},
	}}

	if got, want := TotalDuration(root), 140*time.Second; got != want {
		t.Errorf("expected total %v, got %v", want, got)
	}
}

func TestSpeakersUnionsSplitterBranches(t *testing.T) {
	root := &Splitter{Elements: []Node{
		&Conversation{Speakers: []SpeakerID{1, 2}, Duration: time.Second},
		&Conversation{Speakers: []SpeakerID{2, 3}, Duration: time.Second},
	}}

	got := Speakers(root)
	if len(got) != 3 {
		t.Fatalf("expected 3 speakers, got %v", got)
	}
	for i, want := range []SpeakerID{1, 2, 3} {
		if got[i] != want {
			t.Errorf("speaker %d: expected %d, got %d", i, want, got[i])
		}
	}
}

func TestSchemaMarshals(t *testing.T) {
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatal(err)
	}
	for _, tag := range []string{"sequence", "splitter", "conversation", "noise", "pause"} {
		if !strings.Contains(string(data), tag) {
			t.Errorf("schema is missing node tag %q", tag)
		}
	}
}
