package llm

import (
	"fmt"
	"os"
	"strings"
)

// Provider names accepted in Config.Provider.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config holds LLM provider configuration.
type Config struct {
	// Provider selects the backend: gemini, openai, anthropic or mock.
	Provider string

	// APIKey authenticates every outbound call.
	APIKey string

	// Model is a friendly name or a provider model ID. Empty selects the
	// provider default.
	Model string

	// BaseURL overrides the endpoint of OpenAI-compatible APIs (Ollama, OpenRouter).
	BaseURL string
}

// vendorKeyEnv lists the conventional API key variables per provider.
var vendorKeyEnv = map[string][]string{
	ProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	ProviderOpenAI:    {"OPENAI_API_KEY"},
	ProviderAnthropic: {"ANTHROPIC_API_KEY"},
}

var defaultModels = map[string]string{
	ProviderGemini:    "gemini-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-haiku",
	ProviderMock:      "mock",
}

// Normalize lowercases the provider, fills the model default and, when
// APIKey is empty, looks the key up in the vendor's conventional variables.
func (c Config) Normalize() Config {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}
	if c.APIKey == "" {
		for _, env := range vendorKeyEnv[c.Provider] {
			if k := os.Getenv(env); k != "" {
				c.APIKey = k
				break
			}
		}
	}
	return c
}

// Validate checks the provider name and that an API key is present.
// A missing key is reported as ErrMissingCredential.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		if c.APIKey == "" {
			return fmt.Errorf("%w for the %s provider: set --api-key, PDFQUIZ_API_KEY or %s",
				ErrMissingCredential, c.Provider, strings.Join(vendorKeyEnv[c.Provider], "/"))
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
