// Package identity supplies the caller's identity for session
// establishment: a stable user id for client-id construction and the raw
// access token for broker authentication.
//
// Tokens are issued by the account service and verified broker-side; the
// hub only extracts the registered claims it needs and checks expiry so an
// obviously stale token never reaches the wire.
package identity

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Domain-specific errors. Use errors.Is() to check for these in calling code.
var (
	// ErrNoToken is returned when an empty access token is supplied.
	ErrNoToken = errors.New("identity: access token is required")

	// ErrTokenInvalid is returned when the access token cannot be parsed
	// or is missing required claims.
	ErrTokenInvalid = errors.New("identity: invalid access token")

	// ErrTokenExpired is returned when the access token has expired.
	ErrTokenExpired = errors.New("identity: access token expired")
)

// Provider holds the current access token and the user id extracted from
// its claims. Safe for concurrent use; SetToken swaps both atomically when
// the account service rotates the token.
type Provider struct {
	mu     sync.RWMutex
	token  string
	userID string
}

// NewProvider creates a provider from an access token.
func NewProvider(token string) (*Provider, error) {
	p := &Provider{}
	if err := p.SetToken(token); err != nil {
		return nil, err
	}
	return p, nil
}

// SetToken replaces the current token after extracting and checking its
// claims. The previous token stays in place when the new one is rejected.
func (p *Provider) SetToken(token string) error {
	userID, err := extractUserID(token)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.token = token
	p.userID = userID
	p.mu.Unlock()
	return nil
}

// UserID returns the subject claim of the current token.
func (p *Provider) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID
}

// AccessToken returns the current raw token.
func (p *Provider) AccessToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// extractUserID parses the token's registered claims without verifying the
// signature (the broker holds the key) and returns the subject. Expired
// tokens are rejected so the session never authenticates with one.
func extractUserID(token string) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", fmt.Errorf("%w: expired at %s", ErrTokenExpired, claims.ExpiresAt.Format(time.RFC3339))
	}

	return claims.Subject, nil
}
