package config

import (
	"errors"
	"testing"
)

func TestResolveAPIKey(t *testing.T) {
	t.Run("from config", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")

		p := ProviderConfig{Kind: KindAnthropic, APIKey: "sk-ant-config-key"}
		key, src := p.ResolveAPIKey()
		if key != "sk-ant-config-key" || src != KeySourceConfig {
			t.Errorf("got %q from %s, want config key", key, src)
		}
	})

	t.Run("from environment variable", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "gemini-env-key")

		p := ProviderConfig{Kind: KindGemini}
		key, src := p.ResolveAPIKey()
		if key != "gemini-env-key" || src != KeySourceEnv {
			t.Errorf("got %q from %s, want env key", key, src)
		}
	})

	t.Run("empty reference resolves to none", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("BOOMAI_UNSET_KEY", "")

		p := ProviderConfig{Kind: KindOpenAI, APIKey: "${BOOMAI_UNSET_KEY}"}
		if key, src := p.ResolveAPIKey(); key != "" || src != KeySourceNone {
			t.Errorf("got %q from %s, want none", key, src)
		}
	})
}

func TestRequireAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name    string
		p       ProviderConfig
		wantErr bool
	}{
		{"anthropic needs a key", ProviderConfig{ID: "a", Kind: KindAnthropic}, true},
		{"bedrock does not", ProviderConfig{ID: "b", Kind: KindAnthropic, Bedrock: true}, false},
		{"gemini needs a key", ProviderConfig{ID: "g", Kind: KindGemini}, true},
		{"local openai does not", ProviderConfig{ID: "o", Kind: KindOpenAI}, false},
		{"fake does not", ProviderConfig{ID: "f", Kind: KindFake}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.RequireAPIKey()
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequireAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrNoAPIKey) {
				t.Errorf("expected ErrNoAPIKey, got %v", err)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		key     string
		wantErr bool
	}{
		{"valid anthropic key", KindAnthropic, "sk-ant-REDACTED", false},
		{"empty key", KindAnthropic, "", true},
		{"wrong prefix", KindAnthropic, "sk-wrong-abcdefghijklmnop", true},
		{"too short", KindAnthropic, "sk-ant-short", true},
		{"gemini key", KindGemini, "AIzaSyA-abcdefghijklmnop", false},
		{"short gemini key", KindGemini, "AIza", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.kind, tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q, %q) error = %v, wantErr %v", tt.kind, tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-REDACTED", "sk-ant-...mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
