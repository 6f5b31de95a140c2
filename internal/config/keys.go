package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no API key configured")

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// APIKeyEnv returns the environment variable consulted for a provider kind.
func APIKeyEnv(kind string) string {
	switch kind {
	case KindAnthropic:
		return "ANTHROPIC_API_KEY"
	case KindOpenAI:
		return "OPENAI_API_KEY"
	case KindGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// ResolveAPIKey returns the provider's API key and where it came from.
// It checks in order: config file (after ${VAR} expansion), environment.
func (p ProviderConfig) ResolveAPIKey() (string, KeySource) {
	if key := os.ExpandEnv(p.APIKey); key != "" && !strings.HasPrefix(key, "${") {
		return key, KeySourceConfig
	}
	if env := APIKeyEnv(p.Kind); env != "" {
		if key := os.Getenv(env); key != "" {
			return key, KeySourceEnv
		}
	}
	return "", KeySourceNone
}

// RequireAPIKey is ResolveAPIKey for backends that cannot run without a
// key. OpenAI-compatible local servers and the fake never need one, nor
// does Anthropic through Bedrock.
func (p ProviderConfig) RequireAPIKey() (string, error) {
	key, _ := p.ResolveAPIKey()
	needed := (p.Kind == KindAnthropic && !p.Bedrock) || p.Kind == KindGemini
	if key == "" && needed {
		return "", fmt.Errorf("provider %s: %w (set api_key or %s)", p.ID, ErrNoAPIKey, APIKeyEnv(p.Kind))
	}
	return key, nil
}

// ValidateAPIKey performs basic validation on an API key.
// It checks format but does not verify the key with the backend.
func ValidateAPIKey(kind, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	if kind == KindAnthropic && !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}
