package provider

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// kindForStatus maps a non-2xx HTTP status onto a Kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuthInvalid
	case status == http.StatusNotFound:
		return KindModelNotFound
	case status == http.StatusProxyAuthRequired:
		return KindProxyAuthRequired
	case status == http.StatusRequestEntityTooLarge:
		return KindContextTooLarge
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status <= 599:
		return KindServiceUnavailable
	default:
		return KindBadRequest
	}
}

// classifyTransport maps a failure that happened before any HTTP status
// was received.
func classifyTransport(err error, providerID, modelID string) *ProviderError {
	kind := KindNetworkUnavailable

	var dnsErr *net.DNSError
	var certErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	switch {
	case errors.As(err, &dnsErr):
		kind = KindDNSFailure
	case errors.As(err, &certErr), errors.As(err, &authorityErr), errors.As(err, &hostErr):
		kind = KindTLSFailure
	case strings.Contains(strings.ToLower(err.Error()), "tls:"):
		kind = KindTLSFailure
	}
	return NewError(kind, providerID).WithModel(modelID).WithDetail("%v", err).WithCause(err)
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. Returns 0 when absent or malformed.
func parseRetryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
