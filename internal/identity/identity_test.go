package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signedToken creates a signed JWT with the given subject and expiry.
func signedToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestNewProvider(t *testing.T) {
	token := signedToken(t, "user-42", time.Now().Add(time.Hour))

	p, err := NewProvider(token)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if got := p.UserID(); got != "user-42" {
		t.Errorf("UserID() = %q, want user-42", got)
	}
	if got := p.AccessToken(); got != token {
		t.Errorf("AccessToken() = %q, want the raw token", got)
	}
}

func TestNewProviderRejectsBadTokens(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: ErrNoToken},
		{name: "garbage", token: "not-a-jwt", wantErr: ErrTokenInvalid},
		{
			name:    "missing subject",
			token:   signedToken(t, "", time.Now().Add(time.Hour)),
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "expired",
			token:   signedToken(t, "user-42", time.Now().Add(-time.Hour)),
			wantErr: ErrTokenExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewProvider() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetTokenKeepsPreviousOnFailure(t *testing.T) {
	good := signedToken(t, "user-42", time.Now().Add(time.Hour))
	p, err := NewProvider(good)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if err := p.SetToken("broken"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("SetToken() error = %v, want ErrTokenInvalid", err)
	}

	if got := p.UserID(); got != "user-42" {
		t.Errorf("UserID() after failed rotation = %q, want user-42", got)
	}
	if got := p.AccessToken(); got != good {
		t.Errorf("AccessToken() after failed rotation changed")
	}
}

func TestSetTokenRotates(t *testing.T) {
	p, err := NewProvider(signedToken(t, "user-42", time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	next := signedToken(t, "user-43", time.Now().Add(time.Hour))
	if err := p.SetToken(next); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	if got := p.UserID(); got != "user-43" {
		t.Errorf("UserID() = %q, want user-43", got)
	}
}
