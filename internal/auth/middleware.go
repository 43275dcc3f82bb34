package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/careercoach/coach/internal/api"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

// TokenValidator verifies a raw bearer token.
type TokenValidator interface {
	ValidateAccessToken(token string) (*AccessClaims, error)
}

func Middleware(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := v.ValidateAccessToken(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := WithUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUserClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}

// UserIDFromContext returns the authenticated user's id. Handlers treat an
// error as an authentication failure.
func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims := GetUserClaims(ctx)
	if claims == nil {
		return uuid.Nil, api.ErrUnauthorized
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, api.ErrUnauthorized
	}
	return id, nil
}
