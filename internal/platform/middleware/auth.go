package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator validates bearer tokens on write routes.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims carries the claims the middleware propagates.
type JWTClaims struct {
	Subject  string
	ClientID string
}

// APIKeyVerifier checks a machine caller's API key.
type APIKeyVerifier interface {
	VerifyKey(key string) error
}

type contextKeySubject struct{}
type contextKeyClientID struct{}

var (
	ContextKeySubject  = contextKeySubject{}
	ContextKeyClientID = contextKeyClientID{}
)

// GetSubject retrieves the authenticated subject from the context.
func GetSubject(ctx context.Context) string {
	subject, ok := ctx.Value(ContextKeySubject).(string)
	if !ok {
		return ""
	}
	return subject
}

func GetClientID(ctx context.Context) string {
	clientID, ok := ctx.Value(ContextKeyClientID).(string)
	if !ok {
		return ""
	}
	return clientID
}

// RequireAuth accepts either a bearer JWT or an X-API-Key header. A nil
// validator or verifier disables that scheme.
func RequireAuth(validator JWTValidator, apiKeys APIKeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok && validator != nil {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
					writeUnauthorized(w, "Invalid or expired token")
					return
				}
				ctx = context.WithValue(ctx, ContextKeySubject, claims.Subject)
				ctx = context.WithValue(ctx, ContextKeyClientID, claims.ClientID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if key := r.Header.Get("X-API-Key"); key != "" && apiKeys != nil {
				if err := apiKeys.VerifyKey(key); err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid api key",
						"request_id", GetRequestID(ctx),
					)
					writeUnauthorized(w, "Invalid API key")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			logger.WarnContext(ctx, "unauthorized access - missing credentials",
				"request_id", GetRequestID(ctx),
			)
			writeUnauthorized(w, "Missing or invalid credentials")
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + description + `"}`))
}
