package provider

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_FirstRegisteredIsDefault(t *testing.T) {
	reg := NewRegistry(nil)
	if !reg.IsEmpty() {
		t.Fatal("new registry should be empty")
	}

	reg.Register("local", NewFake("from local"), DefaultRunnerConfig(), "tiny", EntryLocal)
	reg.Register("remote", NewFake("from remote"), DefaultRunnerConfig(), "big", EntryRemote)

	if got := reg.DefaultID(); got != "local" {
		t.Errorf("DefaultID() = %q, want %q", got, "local")
	}

	resp, err := reg.ExecuteDefault(context.Background(), NewRequest("hi"))
	if err != nil {
		t.Fatalf("ExecuteDefault failed: %v", err)
	}
	if resp.Content != "from local" {
		t.Errorf("Content = %q, want %q", resp.Content, "from local")
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("a", NewFake("A"), DefaultRunnerConfig(), "m", EntryMock)
	reg.Register("b", NewFake("B"), DefaultRunnerConfig(), "m", EntryMock)

	if err := reg.SetDefault("b"); err != nil {
		t.Fatalf("SetDefault(b) failed: %v", err)
	}
	if err := reg.SetDefault("missing"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("SetDefault(missing) = %v, want ErrProviderNotFound", err)
	}
	if got := reg.DefaultID(); got != "b" {
		t.Errorf("DefaultID() = %q, want %q", got, "b")
	}

	resp, err := reg.ExecuteDefault(context.Background(), NewRequest("hi"))
	if err != nil {
		t.Fatalf("ExecuteDefault failed: %v", err)
	}
	if resp.Content != "B" {
		t.Errorf("Content = %q, want %q", resp.Content, "B")
	}
}

func TestRegistry_ExecuteDefaultWithoutProvider(t *testing.T) {
	reg := NewRegistry(nil)

	_, err := reg.ExecuteDefault(context.Background(), NewRequest("hi"))
	if !errors.Is(err, ErrNoDefaultProvider) {
		t.Fatalf("err = %v, want ErrNoDefaultProvider", err)
	}
	pe, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if pe.Kind != KindInternal || pe.Code != "no_default_provider" {
		t.Errorf("got %s/%s, want internal/no_default_provider", pe.Kind, pe.Code)
	}
}

func TestRegistry_NoFallback(t *testing.T) {
	failing := NewFake()
	failing.Respond = func(int, ModelRequest) (string, error) {
		return "", NewError(KindServiceUnavailable, "")
	}
	backup := NewFake("backup")

	reg := NewRegistry(nil)
	reg.Register("primary", failing, DefaultRunnerConfig(), "m", EntryRemote)
	reg.Register("backup", backup, DefaultRunnerConfig(), "m", EntryLocal)

	if _, err := reg.ExecuteDefault(context.Background(), NewRequest("hi")); err == nil {
		t.Fatal("expected error from failing default")
	}
	if backup.Calls() != 0 {
		t.Errorf("backup called %d times, registry must not fall back", backup.Calls())
	}
	if failing.Calls() != 1 {
		t.Errorf("primary called %d times, want exactly 1", failing.Calls())
	}
}

func TestRegistry_List(t *testing.T) {
	reg := NewRegistry(NewLimiter(4))
	reg.Register("zeta", NewFake(), DefaultRunnerConfig(), "z", EntryRemote)
	reg.Register("alpha", NewFake(), DefaultRunnerConfig(), "a", EntryLocal)

	got := reg.List()
	if len(got) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(got))
	}
	if got[0].ID != "alpha" || got[1].ID != "zeta" {
		t.Errorf("List() order = %s,%s, want alpha,zeta", got[0].ID, got[1].ID)
	}
	if got[0].Kind != EntryLocal || got[0].ModelID != "a" {
		t.Errorf("alpha entry = %+v", got[0])
	}

	runner, ok := reg.Runner("zeta")
	if !ok {
		t.Fatal("Runner(zeta) not found")
	}
	if runner.global == nil || runner.global.Size() != 4 {
		t.Error("registered runner should share the registry's global limiter")
	}
	if _, ok := reg.Runner("nope"); ok {
		t.Error("Runner(nope) should not be found")
	}
	if reg.TotalInFlight() != 0 {
		t.Errorf("TotalInFlight() = %d, want 0", reg.TotalInFlight())
	}
}
