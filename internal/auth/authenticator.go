package auth

import (
	"context"
	"fmt"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"go.uber.org/zap"
)

// Authenticator verifies bearer tokens and rejects the ones revoked by logout.
type Authenticator struct {
	verifier Verifier
	revoked  RevocationStore
	logger   *logger.Logger
}

func NewAuthenticator(verifier Verifier, revoked RevocationStore, log *logger.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, revoked: revoked, logger: log.Named("Authenticator")}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: authorization token is not provided", domain.ErrUnauthenticated)
	}
	id, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(ctx, id.TokenID)
		if err != nil {
			a.logger.Error("revocation lookup failed", zap.String("user_id", id.Session.UserID), zap.Error(err))
			return nil, domain.Remote("check token revocation", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, ErrTokenRevoked)
		}
	}
	return id, nil
}

// Logout revokes the caller's token until it expires.
func (a *Authenticator) Logout(ctx context.Context, id *Identity) error {
	if a.revoked == nil {
		return nil
	}
	if err := a.revoked.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		a.logger.Error("token revocation failed", zap.String("user_id", id.Session.UserID), zap.Error(err))
		return domain.Remote("revoke token", err)
	}
	a.logger.Info("user logged out", zap.String("user_id", id.Session.UserID))
	return nil
}
