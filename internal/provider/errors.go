package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoDefaultProvider is the cause carried by the error ExecuteDefault
// returns when nothing is registered.
var ErrNoDefaultProvider = errors.New("no default provider configured")

// ErrProviderNotFound is returned when a lookup names an unknown provider id.
var ErrProviderNotFound = errors.New("provider not found")

// Kind is the closed set of provider failure modes.
type Kind int

const (
	KindTimeout Kind = iota
	KindCancelled
	KindAuthMissing
	KindAuthInvalid
	KindModelNotFound
	KindRateLimited
	KindNetworkUnavailable
	KindDNSFailure
	KindTLSFailure
	KindProxyAuthRequired
	KindServiceUnavailable
	KindBadRequest
	KindContextTooLarge
	KindUnsupportedFeature
	KindInternal
)

// AllKinds lists every Kind in declaration order.
var AllKinds = []Kind{
	KindTimeout, KindCancelled, KindAuthMissing, KindAuthInvalid,
	KindModelNotFound, KindRateLimited, KindNetworkUnavailable, KindDNSFailure,
	KindTLSFailure, KindProxyAuthRequired, KindServiceUnavailable, KindBadRequest,
	KindContextTooLarge, KindUnsupportedFeature, KindInternal,
}

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindAuthMissing:
		return "auth_missing"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindModelNotFound:
		return "model_not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindDNSFailure:
		return "dns_failure"
	case KindTLSFailure:
		return "tls_failure"
	case KindProxyAuthRequired:
		return "proxy_auth_required"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindBadRequest:
		return "bad_request"
	case KindContextTooLarge:
		return "context_too_large"
	case KindUnsupportedFeature:
		return "unsupported_feature"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Category is the coarse, UI-safe grouping of a Kind.
type Category string

const (
	CategoryTimeout        Category = "timeout"
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryConfiguration  Category = "configuration"
	CategoryNetwork        Category = "network"
	CategoryService        Category = "service"
	CategoryRequest        Category = "request"
	CategoryUnsupported    Category = "unsupported"
	CategoryInternal       Category = "internal"
)

// CategoryOf maps a kind onto its category. It depends on the kind alone.
func CategoryOf(k Kind) Category {
	switch k {
	case KindTimeout, KindCancelled:
		return CategoryTimeout
	case KindAuthInvalid:
		return CategoryAuthentication
	case KindProxyAuthRequired:
		return CategoryAuthorization
	case KindAuthMissing, KindModelNotFound:
		return CategoryConfiguration
	case KindNetworkUnavailable, KindDNSFailure, KindTLSFailure:
		return CategoryNetwork
	case KindServiceUnavailable, KindRateLimited:
		return CategoryService
	case KindBadRequest, KindContextTooLarge:
		return CategoryRequest
	case KindUnsupportedFeature:
		return CategoryUnsupported
	default:
		return CategoryInternal
	}
}

// Message returns the fixed display text for the category.
func (c Category) Message() string {
	switch c {
	case CategoryTimeout:
		return "The model did not answer in time."
	case CategoryAuthentication:
		return "The model provider rejected the configured credentials."
	case CategoryAuthorization:
		return "Access to the model provider was denied."
	case CategoryConfiguration:
		return "The model provider is not configured correctly."
	case CategoryNetwork:
		return "The model provider could not be reached."
	case CategoryService:
		return "The model provider is temporarily unavailable."
	case CategoryRequest:
		return "The model provider could not process the request."
	case CategoryUnsupported:
		return "The requested feature is not supported by this model provider."
	default:
		return "An internal error occurred."
	}
}

// ProviderError is the structured failure returned by providers, runners
// and the registry.
//
// UserMessage is safe to show locally. InternalDetail is for logs only and
// Cause is never surfaced. Anything crossing an API boundary must go
// through Sanitize.
type ProviderError struct {
	Kind           Kind
	ProviderID     string
	ModelID        string
	UserMessage    string
	InternalDetail string
	Cause          error

	// RetryAfter is set for KindRateLimited when the backend provided it.
	RetryAfter time.Duration
	// MaxTokens and GotTokens are set for KindContextTooLarge.
	MaxTokens int
	GotTokens int
	// Code names the feature for KindUnsupportedFeature or the failing
	// subsystem for KindInternal, e.g. "no_default_provider".
	Code string
}

// NewError creates a ProviderError with the default user message for kind.
func NewError(kind Kind, providerID string) *ProviderError {
	return &ProviderError{
		Kind:        kind,
		ProviderID:  providerID,
		UserMessage: defaultUserMessage(kind),
	}
}

// WithModel sets the model id.
func (e *ProviderError) WithModel(modelID string) *ProviderError {
	e.ModelID = modelID
	return e
}

// WithMessage overrides the user message.
func (e *ProviderError) WithMessage(msg string) *ProviderError {
	e.UserMessage = msg
	return e
}

// WithDetail attaches diagnostic detail. It is never shown to users.
func (e *ProviderError) WithDetail(format string, args ...any) *ProviderError {
	e.InternalDetail = fmt.Sprintf(format, args...)
	return e
}

// WithCause attaches the underlying error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// WithCode sets the feature or subsystem code.
func (e *ProviderError) WithCode(code string) *ProviderError {
	e.Code = code
	return e
}

// Error implements error. It includes neither InternalDetail nor Cause.
func (e *ProviderError) Error() string {
	kind := e.Kind.String()
	if e.Code != "" {
		kind += ":" + e.Code
	}
	if e.ModelID != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", kind, e.ProviderID, e.ModelID, e.UserMessage)
	}
	return fmt.Sprintf("[%s] %s: %s", kind, e.ProviderID, e.UserMessage)
}

// Unwrap returns the cause so errors.Is works across the chain.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Category returns the coarse category of the error.
func (e *ProviderError) Category() Category {
	return CategoryOf(e.Kind)
}

// Retryable reports whether a caller may reasonably try again later.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindNetworkUnavailable, KindDNSFailure, KindServiceUnavailable:
		return true
	default:
		return false
	}
}

// SanitizedError is the only projection of a ProviderError allowed across a
// trust boundary.
type SanitizedError struct {
	Category          Category `json:"category"`
	Message           string   `json:"message"`
	Retryable         bool     `json:"retryable"`
	RetryAfterSeconds int      `json:"retry_after_seconds,omitempty"`
}

// Sanitize projects the error onto its category. The result is derived from
// the kind and retry hint only.
func (e *ProviderError) Sanitize() SanitizedError {
	cat := e.Category()
	s := SanitizedError{
		Category:  cat,
		Message:   cat.Message(),
		Retryable: e.Retryable(),
	}
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		s.RetryAfterSeconds = int(e.RetryAfter.Round(time.Second) / time.Second)
	}
	return s
}

// AsProviderError extracts a *ProviderError from err.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// SanitizeError projects any error for display. Errors that are not
// ProviderErrors are reported as internal.
func SanitizeError(err error) SanitizedError {
	if pe, ok := AsProviderError(err); ok {
		return pe.Sanitize()
	}
	return NewError(KindInternal, "").Sanitize()
}

// classify turns an arbitrary error from a backend into a ProviderError.
func classify(err error, providerID, modelID string) *ProviderError {
	if pe, ok := AsProviderError(err); ok {
		if pe.ProviderID == "" {
			pe.ProviderID = providerID
		}
		if pe.ModelID == "" {
			pe.ModelID = modelID
		}
		return pe
	}

	kind := KindInternal
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCancelled
	}
	return NewError(kind, providerID).WithModel(modelID).WithDetail("%v", err).WithCause(err)
}

func defaultUserMessage(k Kind) string {
	switch k {
	case KindTimeout:
		return "Request timed out"
	case KindCancelled:
		return "Request was cancelled"
	case KindAuthMissing:
		return "No API key is configured for this provider"
	case KindAuthInvalid:
		return "The API key was rejected"
	case KindModelNotFound:
		return "The configured model was not found"
	case KindRateLimited:
		return "Rate limited by the provider"
	case KindNetworkUnavailable:
		return "Network unavailable"
	case KindDNSFailure:
		return "Could not resolve the provider host"
	case KindTLSFailure:
		return "Secure connection to the provider failed"
	case KindProxyAuthRequired:
		return "Proxy authentication required"
	case KindServiceUnavailable:
		return "Provider service unavailable"
	case KindBadRequest:
		return "The provider rejected the request"
	case KindContextTooLarge:
		return "The conversation is too long for this model"
	case KindUnsupportedFeature:
		return "Feature not supported by this provider"
	default:
		return "Internal error"
	}
}
