package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"splitbill/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
)

// GetUserID extracts the authenticated user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the authenticated user's email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// RequireAuth returns an interceptor that validates Bearer tokens and puts
// the user ID and email into the request context. Procedures listed in
// public skip validation entirely (register, login, activation, guest
// view).
func RequireAuth(jwtManager *auth.JWTManager, public ...string) connect.UnaryInterceptorFunc {
	publicProcedures := make(map[string]struct{}, len(public))
	for _, p := range public {
		publicProcedures[p] = struct{}{}
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if _, ok := publicProcedures[req.Spec().Procedure]; ok {
				return next(ctx, req)
			}

			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			ctx = context.WithValue(ctx, UserIDKey, claims.UserID())
			ctx = context.WithValue(ctx, EmailKey, claims.Email)

			return next(ctx, req)
		}
	}
}
