package comms

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// =============================================================================
// Taxonomy Tests
// =============================================================================

func TestKindCodesAreStableAndUnique(t *testing.T) {
	want := map[Kind]int{
		KindConnectionFailed:      1001,
		KindConnectionTimeout:     1002,
		KindConnectionLost:        1003,
		KindAuthenticationFailed:  1004,
		KindInvalidConfiguration:  1005,
		KindMessageEncodingFailed: 1006,
		KindMessageDecodingFailed: 1007,
		KindMessageSendFailed:     1008,
		KindSubscriptionFailed:    1009,
		KindNetworkUnavailable:    1010,
		KindServiceUnavailable:    1011,
		KindRateLimitExceeded:     1012,
		KindInvalidMessage:        1013,
		KindTimeout:               1014,
		KindUnknown:               1099,
	}

	seen := make(map[int]Kind)
	for kind, code := range want {
		if got := kind.Code(); got != code {
			t.Errorf("%s.Code() = %d, want %d", kind, got, code)
		}
		if prev, dup := seen[code]; dup {
			t.Errorf("code %d shared by %s and %s", code, prev, kind)
		}
		seen[code] = kind
	}
}

func TestKindRetryability(t *testing.T) {
	retryable := []Kind{
		KindConnectionTimeout, KindConnectionLost, KindNetworkUnavailable,
		KindServiceUnavailable, KindTimeout, KindMessageSendFailed,
		KindSubscriptionFailed, KindRateLimitExceeded, KindUnknown,
	}
	permanent := []Kind{
		KindConnectionFailed, KindAuthenticationFailed, KindInvalidConfiguration,
		KindMessageEncodingFailed, KindMessageDecodingFailed, KindInvalidMessage,
	}

	for _, k := range retryable {
		if !k.Retryable() {
			t.Errorf("%s.Retryable() = false, want true", k)
		}
	}
	for _, k := range permanent {
		if k.Retryable() {
			t.Errorf("%s.Retryable() = true, want false", k)
		}
	}
}

func TestUnrecognisedKindFallsBackToUnknown(t *testing.T) {
	k := Kind("bogus")
	if k.Code() != KindUnknown.Code() {
		t.Errorf("Code() = %d, want unknown code", k.Code())
	}
	if !k.Retryable() {
		t.Error("unrecognised kind must be retryable like unknown")
	}
}

// =============================================================================
// Error Wrapping Tests
// =============================================================================

func TestErrorIsMatchesByKind(t *testing.T) {
	err := Errorf(KindTimeout, "send", "broker did not ack")

	if !errors.Is(err, &Error{Kind: KindTimeout}) {
		t.Error("errors.Is failed to match by kind")
	}
	if errors.Is(err, &Error{Kind: KindConnectionLost}) {
		t.Error("errors.Is matched a different kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewError(KindConnectionLost, "keepalive", fmt.Errorf("probe: %w", cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is failed to reach the wrapped cause")
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(KindAuthenticationFailed, "connect", nil))

	if got := KindOf(err); got != KindAuthenticationFailed {
		t.Errorf("KindOf() = %v, want authentication_failed", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want unknown", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(NewError(KindInvalidConfiguration, "connect", nil)) {
		t.Error("invalid configuration must not be retryable")
	}
	if !IsRetryable(NewError(KindConnectionLost, "connect", nil)) {
		t.Error("connection lost must be retryable")
	}
}

func TestErrorMessageIncludesCode(t *testing.T) {
	err := NewError(KindSubscriptionFailed, "subscribe", errors.New("denied"))
	msg := err.Error()

	for _, want := range []string{"subscribe", "subscription_failed", "1009", "denied"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}
