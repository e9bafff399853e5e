package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
)

var ErrTokenRevoked = errors.New("token has been revoked")

// Identity is a verified caller plus what is needed to revoke its token.
type Identity struct {
	Session   domain.Session
	TokenID   string
	ExpiresAt time.Time
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// SessionFromContext returns domain.ErrUnauthenticated when no identity is attached.
func SessionFromContext(ctx context.Context) (domain.Session, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return id.Session, nil
}

// tokenFingerprint identifies tokens that carry no jti.
func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
