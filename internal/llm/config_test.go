package llm

import (
	"context"
	"errors"
	"testing"
)

func TestConfigNormalize(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "defaults to gemini with fallback key variable",
			in:   Config{},
			want: Config{Provider: ProviderGemini, Model: "gemini-flash", APIKey: "google-key"},
		},
		{
			name: "provider is case-insensitive",
			in:   Config{Provider: " OpenAI "},
			want: Config{Provider: ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "openai-key"},
		},
		{
			name: "explicit key and model win",
			in:   Config{Provider: "openai", APIKey: "flag-key", Model: "gpt-4o"},
			want: Config{Provider: ProviderOpenAI, Model: "gpt-4o", APIKey: "flag-key"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	err := Config{Provider: ProviderAnthropic}.Validate()
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("missing key: got %v, want ErrMissingCredential", err)
	}
	if err := (Config{Provider: ProviderMock}).Validate(); err != nil {
		t.Errorf("mock needs no key: %v", err)
	}
	if err := (Config{Provider: "llama", APIKey: "k"}).Validate(); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestNewProviderMock(t *testing.T) {
	log := &memLog{}
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock}.Normalize(), log, nil)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
	if _, ok := p.(*LoggingProvider); !ok {
		t.Errorf("provider should be wrapped with logging, got %T", p)
	}
}

func TestNewProviderMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider(context.Background(), Config{Provider: ProviderOpenAI}.Normalize(), nil, nil)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}
