package ports

import (
	"context"
	"time"
)

// PasswordHasher is a one-way salted hash with verification.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns domain.ErrInvalidCredentials when password does not
	// match hash.
	Compare(hash, password string) error
}

// Claims is the decoded payload of a session token.
type Claims struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(subject string, roles []string) (string, error)
}

// TokenVerifier validates session tokens. Any failure wraps
// domain.ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// AttemptLimiter throttles repeated failed sign-ins for the same key.
type AttemptLimiter interface {
	// Blocked reports whether key is locked out and for how long.
	Blocked(ctx context.Context, key string) (time.Duration, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
