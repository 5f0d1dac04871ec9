package llm

import (
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name: "test-answer",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string"},
				"letter":   map[string]any{"type": "string", "enum": []string{"A", "B", "C", "D"}},
			},
			"required": []string{"question", "letter"},
		},
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"question":"Q?","letter":"B"}`, false},
		{"missing required", `{"question":"Q?"}`, true},
		{"enum violation", `{"question":"Q?","letter":"E"}`, true},
		{"wrong type", `{"question":1,"letter":"A"}`, true},
		{"not JSON", `Here is your quiz`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON(testSchema(), []byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Errorf("expected ErrInvalidResponse, got %T", err)
				}
				if inv.Content != tt.raw {
					t.Errorf("Content = %q, want raw reply", inv.Content)
				}
			}
		})
	}
}

func TestValidateJSONNilSchema(t *testing.T) {
	if err := ValidateJSON(nil, []byte("anything")); err != nil {
		t.Fatalf("nil schema should accept anything, got %v", err)
	}
}
