package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jlmsdev/webCarros/internal/auth"
	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
}

// Auth rejects requests without a valid bearer token and attaches the identity
// to the request context.
func Auth(a Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Debug("Auth: missing or malformed authorization header", zap.String("path", r.URL.Path))
				writeAuthError(w, http.StatusUnauthorized, "authorization token is not provided")
				return
			}

			id, err := a.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrRemoteOperation) {
					log.Error("Auth: token check unavailable", zap.Error(err))
					writeAuthError(w, http.StatusBadGateway, "authentication is temporarily unavailable")
					return
				}
				log.Warn("Auth: token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				writeAuthError(w, http.StatusUnauthorized, "token is invalid")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], parts[1] != ""
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
