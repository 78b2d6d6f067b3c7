package structure

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Schema returns a JSON Schema describing the structure file format.
// It is published by the CLI so external scenario builders can validate
// their output before handing it to the generator.
func Schema() *jsonschema.Schema {
	node := &jsonschema.Schema{Ref: "#/$defs/node"}

	speakers := &jsonschema.Schema{
		Type:        "array",
		Description: "Speaker IDs participating in this node.",
		Items:       &jsonschema.Schema{Type: "integer"},
	}
	duration := &jsonschema.Schema{
		Type:        "number",
		Description: "Duration in seconds.",
	}
	elements := &jsonschema.Schema{
		Type:  "array",
		Items: node,
	}

	return &jsonschema.Schema{
		Ref: "#/$defs/node",
		Defs: map[string]*jsonschema.Schema{
			"node": {
				Description: "One node of a scenario structure tree.",
				AnyOf: []*jsonschema.Schema{
					{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"type":     {Enum: []any{string(TypeSequence)}},
							"speakers": speakers,
							"elements": elements,
						},
						Required: []string{"type", "elements"},
					},
					{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"type":     {Enum: []any{string(TypeSplitter)}},
							"elements": elements,
						},
						Required: []string{"type", "elements"},
					},
					{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"type":     {Enum: []any{string(TypeConversation)}},
							"speakers": speakers,
							"duration": duration,
						},
						Required: []string{"type", "speakers", "duration"},
					},
					{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"type":     {Enum: []any{string(TypeNoise)}},
							"duration": duration,
							"params": {
								Type: "object",
								Properties: map[string]*jsonschema.Schema{
									"color":    {Enum: []any{string(NoiseWhite), string(NoisePink)}},
									"level_db": {Type: "number"},
								},
							},
						},
						Required: []string{"type", "duration"},
					},
					{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"type":     {Enum: []any{string(TypePause)}},
							"duration": duration,
						},
						Required: []string{"type", "duration"},
					},
				},
			},
		},
	}
}
