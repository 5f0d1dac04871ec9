package llm

import (
	"errors"
	"regexp"
	"testing"

	"google.golang.org/genai"
)

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string", "enum": []any{"A", "B"}},
			"tags":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"score":  map[string]any{"type": "integer"},
		},
		"required": []string{"answer"},
	}

	s := buildGeminiSchema(def)
	if s.Type != genai.TypeObject {
		t.Fatalf("Type = %v, want object", s.Type)
	}
	if len(s.Required) != 1 || s.Required[0] != "answer" {
		t.Errorf("Required = %v", s.Required)
	}
	answer := s.Properties["answer"]
	if answer == nil || len(answer.Enum) != 2 {
		t.Fatalf("answer enum not translated: %+v", answer)
	}
	tags := s.Properties["tags"]
	if tags == nil || tags.Type != genai.TypeArray || tags.Items == nil || tags.Items.Type != genai.TypeString {
		t.Errorf("tags not translated: %+v", tags)
	}
	if s.Properties["score"].Type != genai.TypeInteger {
		t.Errorf("score type = %v", s.Properties["score"].Type)
	}
}

func TestMapGeminiError(t *testing.T) {
	err := mapGeminiError(&genai.APIError{Code: 429, Message: "quota"})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Errorf("429 should map to ErrRateLimit, got %T", err)
	}

	err = mapGeminiError(errors.New("dial tcp: refused"))
	var pu *ErrProviderUnavailable
	if !errors.As(err, &pu) {
		t.Errorf("network error should map to ErrProviderUnavailable, got %T", err)
	}
}

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(t.Context(), Config{Provider: ProviderGemini})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestGeminiModelAliases(t *testing.T) {
	tests := map[string]string{
		"gemini-flash":     "gemini-2.0-flash",
		"gemini-pro":       "gemini-2.5-pro",
		"gemini-2.5-flash": "gemini-2.5-flash",
	}
	for alias, want := range tests {
		if got := resolveModel(alias, geminiModels); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", alias, got, want)
		}
	}
	valid := regexp.MustCompile(`^gemini-\d+\.\d+-(pro|flash)$`)
	for alias, id := range geminiModels {
		if !valid.MatchString(id) {
			t.Errorf("alias %q points at %q, not a released model ID", alias, id)
		}
	}
}

func TestBuildGeminiContents(t *testing.T) {
	got := buildGeminiContents([]Message{{Role: RoleUser, Content: "grade me"}})
	if len(got) != 1 || got[0].Role != genai.RoleUser || got[0].Parts[0].Text != "grade me" {
		t.Errorf("contents = %+v", got)
	}
}
