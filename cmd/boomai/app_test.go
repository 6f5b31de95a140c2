package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Adr1an04/boomai/internal/config"
	"github.com/Adr1an04/boomai/internal/provider"
	"github.com/Adr1an04/boomai/internal/state"
	"github.com/Adr1an04/boomai/pkg/models"
)

func fakeConfig(providers ...config.ProviderConfig) *config.Config {
	cfg := config.Default()
	cfg.Providers = providers
	return cfg
}

func TestBuildRegistry(t *testing.T) {
	cfg := fakeConfig(
		config.ProviderConfig{ID: "first", Kind: config.KindFake, Replies: []string{"a"}},
		config.ProviderConfig{ID: "second", Kind: config.KindFake, Model: "scripted"},
	)
	cfg.DefaultProvider = "second"

	reg, err := buildRegistry(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildRegistry() error = %v", err)
	}
	if reg.DefaultID() != "second" {
		t.Errorf("DefaultID() = %q, want second", reg.DefaultID())
	}

	entries := reg.List()
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Kind != provider.EntryMock {
			t.Errorf("entry %s kind = %s, want mock", e.ID, e.Kind)
		}
		if e.ID == "second" && e.ModelID != "scripted" {
			t.Errorf("entry second model = %q, want scripted", e.ModelID)
		}
	}
}

func TestBuildRegistry_Errors(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr error
	}{
		{
			name:    "anthropic without key",
			cfg:     fakeConfig(config.ProviderConfig{ID: "claude", Kind: config.KindAnthropic}),
			wantErr: config.ErrNoAPIKey,
		},
		{
			name: "unknown default",
			cfg: func() *config.Config {
				c := fakeConfig(config.ProviderConfig{ID: "f", Kind: config.KindFake})
				c.DefaultProvider = "ghost"
				return c
			}(),
			wantErr: provider.ErrProviderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRegistry(context.Background(), tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("buildRegistry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewProvider_UnknownKind(t *testing.T) {
	_, _, _, err := newProvider(context.Background(), config.ProviderConfig{ID: "x", Kind: "bard"})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestEndpointKind(t *testing.T) {
	tests := []struct {
		url  string
		want provider.EntryKind
	}{
		{"http://localhost:11434/v1", provider.EntryLocal},
		{"http://127.0.0.1:8080/v1", provider.EntryLocal},
		{"http://[::1]:8080/v1", provider.EntryLocal},
		{"https://api.openai.com/v1", provider.EntryRemote},
		{"://bad", provider.EntryRemote},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := endpointKind(tt.url); got != tt.want {
				t.Errorf("endpointKind(%q) = %s, want %s", tt.url, got, tt.want)
			}
		})
	}
}

func TestBuildOrchestrator_Journaled(t *testing.T) {
	cfg := fakeConfig(config.ProviderConfig{ID: "offline", Kind: config.KindFake, Replies: []string{"Frank Herbert"}})

	reg, err := buildRegistry(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildRegistry() error = %v", err)
	}
	db, err := state.OpenMigrated(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenMigrated() error = %v", err)
	}
	defer db.Close()

	orch, err := buildOrchestrator(cfg, reg, db)
	if err != nil {
		t.Fatalf("buildOrchestrator() error = %v", err)
	}

	req := models.ChatRequest{Messages: []models.Message{models.UserMessage("what is 2 + 2")}}
	resp, err := orch.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Message.Content != "4" {
		t.Errorf("answer = %q, want 4", resp.Message.Content)
	}

	run, err := db.GetRun(context.Background(), resp.Context.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != string(models.StatusDone) {
		t.Errorf("journaled status = %q, want done", run.Status)
	}
}

func TestBuildOrchestrator_MissingTemplates(t *testing.T) {
	cfg := fakeConfig()
	cfg.Decompose.TemplatesFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := buildOrchestrator(cfg, provider.NewRegistry(nil), nil); err == nil {
		t.Error("expected error for missing templates file")
	}
}
