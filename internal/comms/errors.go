package comms

import (
	"errors"
	"fmt"
)

// Kind classifies a communication failure.
type Kind string

// Error kinds. Codes and retryability are fixed per kind; see Code and
// Retryable.
const (
	KindConnectionFailed      Kind = "connection_failed"
	KindConnectionTimeout     Kind = "connection_timeout"
	KindConnectionLost        Kind = "connection_lost"
	KindAuthenticationFailed  Kind = "authentication_failed"
	KindInvalidConfiguration  Kind = "invalid_configuration"
	KindMessageEncodingFailed Kind = "message_encoding_failed"
	KindMessageDecodingFailed Kind = "message_decoding_failed"
	KindMessageSendFailed     Kind = "message_send_failed"
	KindSubscriptionFailed    Kind = "subscription_failed"
	KindNetworkUnavailable    Kind = "network_unavailable"
	KindServiceUnavailable    Kind = "service_unavailable"
	KindRateLimitExceeded     Kind = "rate_limit_exceeded"
	KindInvalidMessage        Kind = "invalid_message"
	KindTimeout               Kind = "timeout"
	KindUnknown               Kind = "unknown"
)

// kindInfo holds the stable attributes of an error kind.
type kindInfo struct {
	code      int
	retryable bool
}

// Codes are stable across releases; they appear in logs, diagnostics
// snapshots and API payloads. Never renumber.
var kinds = map[Kind]kindInfo{
	KindConnectionFailed:      {code: 1001, retryable: false},
	KindConnectionTimeout:     {code: 1002, retryable: true},
	KindConnectionLost:        {code: 1003, retryable: true},
	KindAuthenticationFailed:  {code: 1004, retryable: false},
	KindInvalidConfiguration:  {code: 1005, retryable: false},
	KindMessageEncodingFailed: {code: 1006, retryable: false},
	KindMessageDecodingFailed: {code: 1007, retryable: false},
	KindMessageSendFailed:     {code: 1008, retryable: true},
	KindSubscriptionFailed:    {code: 1009, retryable: true},
	KindNetworkUnavailable:    {code: 1010, retryable: true},
	KindServiceUnavailable:    {code: 1011, retryable: true},
	KindRateLimitExceeded:     {code: 1012, retryable: true},
	KindInvalidMessage:        {code: 1013, retryable: false},
	KindTimeout:               {code: 1014, retryable: true},
	KindUnknown:               {code: 1099, retryable: true},
}

// Code returns the stable numeric code for the kind.
// Unrecognised kinds report the unknown code.
func (k Kind) Code() int {
	if info, ok := kinds[k]; ok {
		return info.code
	}
	return kinds[KindUnknown].code
}

// Retryable reports whether operations failing with this kind may be retried.
func (k Kind) Retryable() bool {
	if info, ok := kinds[k]; ok {
		return info.retryable
	}
	return kinds[KindUnknown].retryable
}

// Error is a classified communication failure.
//
// It wraps an optional underlying cause and identifies the operation that
// failed, so callers can both errors.Is against sentinel kinds and recover
// the transport-level detail.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op names the contract operation that failed (e.g. "connect",
	// "subscribe").
	Op string

	// Err is the underlying cause, if any.
	Err error
}

// NewError builds a classified error wrapping an optional cause.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("comms: %s: %s (code %d): %v", e.Op, e.Kind, e.Kind.Code(), e.Err)
	}
	return fmt.Sprintf("comms: %s: %s (code %d)", e.Op, e.Kind, e.Kind.Code())
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches against another *Error by kind, so
// errors.Is(err, &comms.Error{Kind: comms.KindTimeout}) works regardless of
// operation or cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// Retryable reports whether the failed operation may be retried.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// Code returns the stable numeric code of the failure.
func (e *Error) Code() int {
	return e.Kind.Code()
}

// KindOf extracts the error kind from any error. Unclassified errors
// report KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err represents a retryable failure.
// Unclassified errors are treated as retryable (unknown is retryable).
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
