package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	authproviders "github.com/gridstake/gridstake/pkg/auth/providers"
	"github.com/gridstake/gridstake/pkg/log"
)

type ContextKey int

const (
	// AccountContextKey is the key used to store the caller's account in
	// the request context
	AccountContextKey ContextKey = iota
)

func NewAuthMiddleware(authProvider authproviders.AuthProvider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearerToken, err := parseBearerToken(r)
			if err != nil {
				log.Debug("failed to parse bearer token: %v", err)
				http.Error(w, "failed to parse bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := authProvider.VerifyToken(r.Context(), bearerToken)
			if err != nil {
				log.Debug("failed to verify token: %v", err)
				http.Error(w, "failed to verify token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AccountContextKey, claims.Account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Account returns the authenticated account stored by the auth middleware.
func Account(r *http.Request) (string, bool) {
	account, ok := r.Context().Value(AccountContextKey).(string)
	return account, ok
}

// parseBearerToken parses the bearer token from the Authorization header
func parseBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	return parts[1], nil
}
