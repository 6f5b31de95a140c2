package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		kind Kind
		want Category
	}{
		{KindTimeout, CategoryTimeout},
		{KindCancelled, CategoryTimeout},
		{KindAuthMissing, CategoryConfiguration},
		{KindAuthInvalid, CategoryAuthentication},
		{KindModelNotFound, CategoryConfiguration},
		{KindRateLimited, CategoryService},
		{KindNetworkUnavailable, CategoryNetwork},
		{KindDNSFailure, CategoryNetwork},
		{KindTLSFailure, CategoryNetwork},
		{KindProxyAuthRequired, CategoryAuthorization},
		{KindServiceUnavailable, CategoryService},
		{KindBadRequest, CategoryRequest},
		{KindContextTooLarge, CategoryRequest},
		{KindUnsupportedFeature, CategoryUnsupported},
		{KindInternal, CategoryInternal},
	}

	if len(tests) != len(AllKinds) {
		t.Fatalf("table covers %d kinds, AllKinds has %d", len(tests), len(AllKinds))
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := CategoryOf(tt.kind); got != tt.want {
				t.Errorf("CategoryOf(%s) = %s, want %s", tt.kind, got, tt.want)
			}
		})
	}
}

func TestSanitize_DependsOnKindOnly(t *testing.T) {
	for _, kind := range AllKinds {
		t.Run(kind.String(), func(t *testing.T) {
			a := NewError(kind, "p1").WithModel("m1").WithDetail("detail one")
			b := NewError(kind, "other").WithModel("m2").WithDetail("completely different").
				WithMessage("custom message").WithCause(errors.New("boom"))

			if a.Sanitize() != b.Sanitize() {
				t.Errorf("Sanitize differs for same kind: %+v vs %+v", a.Sanitize(), b.Sanitize())
			}
		})
	}
}

func TestSanitize_NeverLeaksInternalDetail(t *testing.T) {
	const secret = "sk-live-SECRET-9f8e7d http://10.0.0.5:8080/v1"

	for _, kind := range AllKinds {
		t.Run(kind.String(), func(t *testing.T) {
			pe := NewError(kind, "local").
				WithDetail("HTTP 500 from %s", secret).
				WithCause(errors.New(secret))
			pe.RetryAfter = 3 * time.Second

			s := pe.Sanitize()
			b, err := json.Marshal(s)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			for _, fragment := range []string{"SECRET", "10.0.0.5", "sk-live"} {
				if strings.Contains(string(b), fragment) {
					t.Errorf("sanitized output %s contains %q", b, fragment)
				}
			}
			if strings.Contains(pe.Error(), "SECRET") {
				t.Errorf("Error() = %q leaks internal detail", pe.Error())
			}
		})
	}
}

func TestSanitize_RetryAfter(t *testing.T) {
	pe := NewError(KindRateLimited, "remote")
	pe.RetryAfter = 2500 * time.Millisecond

	s := pe.Sanitize()
	if !s.Retryable {
		t.Error("rate limited errors should be retryable")
	}
	if s.RetryAfterSeconds != 3 {
		t.Errorf("RetryAfterSeconds = %d, want 3", s.RetryAfterSeconds)
	}

	if got := NewError(KindBadRequest, "remote").Sanitize(); got.Retryable || got.RetryAfterSeconds != 0 {
		t.Errorf("bad request sanitized = %+v, want non-retryable without retry hint", got)
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	pe := NewError(KindInternal, "registry").WithCode("no_default_provider").WithCause(ErrNoDefaultProvider)
	var err error = pe

	if !errors.Is(err, ErrNoDefaultProvider) {
		t.Error("errors.Is should find ErrNoDefaultProvider through Unwrap")
	}
	got, ok := AsProviderError(err)
	if !ok || got.Code != "no_default_provider" {
		t.Errorf("AsProviderError = %+v, %v", got, ok)
	}
	if !strings.Contains(pe.Error(), "internal:no_default_provider") {
		t.Errorf("Error() = %q, want code in kind tag", pe.Error())
	}
}

func TestSanitizeError_PlainError(t *testing.T) {
	s := SanitizeError(errors.New("dial tcp 192.168.1.9:443: refused"))
	if s.Category != CategoryInternal {
		t.Errorf("Category = %s, want internal", s.Category)
	}
	if strings.Contains(s.Message, "192.168") {
		t.Errorf("Message %q leaks address", s.Message)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"canceled", context.Canceled, KindCancelled},
		{"plain", errors.New("weird"), KindInternal},
		{"provider error kept", NewError(KindRateLimited, ""), KindRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := classify(tt.err, "p", "m")
			if pe.Kind != tt.want {
				t.Errorf("classify(%v).Kind = %s, want %s", tt.err, pe.Kind, tt.want)
			}
			if pe.ProviderID != "p" || pe.ModelID != "m" {
				t.Errorf("classify ids = %q/%q, want p/m", pe.ProviderID, pe.ModelID)
			}
		})
	}
}
