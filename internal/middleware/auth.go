package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/party-realm/api/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserContextKey is the key for storing user claims in request context
	UserContextKey contextKey = "user"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// RequireAuth is a middleware that validates JWT tokens
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
			return
		}

		// Add claims to request context
		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuth attaches claims when a valid token is present and lets the
// request through otherwise. Handlers resolve the principal via Principal,
// which falls back to the anonymous sentinel.
func OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claims, err := claimsFromRequest(r); err == nil {
			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	}
}

func claimsFromRequest(r *http.Request) (*auth.CustomClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingHeader
	}

	// Check if header has Bearer prefix
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errBadHeader
	}

	claims, err := auth.ValidateToken(parts[1])
	if err != nil {
		return nil, errBadToken
	}
	return claims, nil
}

type authError string

func (e authError) Error() string { return string(e) }

const (
	errMissingHeader authError = "Missing authorization header"
	errBadHeader     authError = "Invalid authorization header format. Use: Bearer <token>"
	errBadToken      authError = "Invalid or expired token"
)

// GetUserClaims extracts user claims from request context
func GetUserClaims(r *http.Request) (*auth.CustomClaims, bool) {
	claims, ok := r.Context().Value(UserContextKey).(*auth.CustomClaims)
	return claims, ok
}

// Principal returns the username of the authenticated caller, or the
// anonymous sentinel when the request carries no valid token
func Principal(r *http.Request) string {
	if claims, ok := GetUserClaims(r); ok {
		return claims.Username
	}
	return auth.AnonymousUser
}
