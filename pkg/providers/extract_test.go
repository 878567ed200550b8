package providers

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare JSON object",
			input: `{"type":"patch","operations":[]}`,
			want:  `{"type":"patch","operations":[]}`,
		},
		{
			name:  "bare JSON array",
			input: `[1,2,3]`,
			want:  `[1,2,3]`,
		},
		{
			name:  "whitespace around JSON",
			input: "  \n {\"a\":1} \n",
			want:  `{"a":1}`,
		},
		{
			name:  "json fenced block",
			input: "Here is the change:\n```json\n{\"type\":\"patch\"}\n```\nLet me know!",
			want:  `{"type":"patch"}`,
		},
		{
			name:  "plain fenced block",
			input: "```\n{\"a\":true}\n```",
			want:  `{"a":true}`,
		},
		{
			name:  "prose around object",
			input: `Sure! The updated response is {"type":"replace","formDefinition":{"fields":[]}} as requested.`,
			want:  `{"type":"replace","formDefinition":{"fields":[]}}`,
		},
		{
			name:    "no JSON at all",
			input:   "I added the email field for you.",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "unclosed object",
			input:   `result: {"a": 1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ExtractJSON() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLoose(t *testing.T) {
	v, err := ParseLoose("```json\n{\"type\": \"patch\"}\n```")
	if err != nil {
		t.Fatalf("ParseLoose() error = %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("ParseLoose() = %T, want map", v)
	}
	if obj["type"] != "patch" {
		t.Errorf("type = %v, want patch", obj["type"])
	}
}

func TestBuildResponseKeepsRawOnFailure(t *testing.T) {
	resp := buildResponse("no json here")
	if resp.ParsedJSON != nil {
		t.Errorf("ParsedJSON = %v, want nil", resp.ParsedJSON)
	}
	if resp.RawText != "no json here" {
		t.Errorf("RawText = %q", resp.RawText)
	}
}
