package middleware

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
	// TokenIDKey is the context key for the id of the token the request carried.
	TokenIDKey contextKey = "token_id"
	// TokenExpiryKey is the context key for that token's expiry time.
	TokenExpiryKey contextKey = "token_expiry"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// GetToken returns the id and expiry of the token that authenticated the request.
func GetToken(ctx context.Context) (string, time.Time) {
	id, _ := ctx.Value(TokenIDKey).(string)
	exp, _ := ctx.Value(TokenExpiryKey).(time.Time)
	return id, exp
}

// WithUser returns a context carrying userID, as RequireAuth would set it.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, rejects
// revoked tokens when revoker is non-nil, and adds the user ID, email and
// token id to the request context.
func RequireAuth(jwtManager *auth.JWTManager, revoker auth.Revoker) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			claims, err := authenticate(ctx, req.Header().Get("Authorization"), jwtManager, revoker)
			if err != nil {
				return nil, err
			}
			return next(withClaims(ctx, claims), req)
		}
	}
}

// OptionalAuth returns a middleware that validates JWT tokens if present, but allows
// requests without authentication.
func OptionalAuth(jwtManager *auth.JWTManager, revoker auth.Revoker) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if header := req.Header().Get("Authorization"); header != "" {
				// Invalid tokens are ignored: the request proceeds anonymously.
				if claims, err := authenticate(ctx, header, jwtManager, revoker); err == nil {
					ctx = withClaims(ctx, claims)
				}
			}
			return next(ctx, req)
		}
	}
}

func authenticate(ctx context.Context, header string, jwtManager *auth.JWTManager, revoker auth.Revoker) (*auth.Claims, error) {
	if header == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	// Parse Bearer token
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}

	claims, err := jwtManager.Validate(parts[1])
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}

	if revoker != nil && claims.ID != "" {
		revoked, err := revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
		if revoked {
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrRevokedToken)
		}
	}
	return claims, nil
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, EmailKey, claims.Email)
	ctx = context.WithValue(ctx, TokenIDKey, claims.ID)
	if claims.ExpiresAt != nil {
		ctx = context.WithValue(ctx, TokenExpiryKey, claims.ExpiresAt.Time)
	}
	return ctx
}
