package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type contextKey string

const userIDKey contextKey = "userID"

const (
	healthPath          = "/health"
	metricsPath         = "/metrics"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// AuthMiddleware validates JWT bearer tokens and puts the caller's user
// id on the request context. Without an authenticated user no operation
// is permitted; health and metrics endpoints are exempt.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == healthPath || r.URL.Path == metricsPath {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get(authorizationHeader)
			if authHeader == "" {
				log.Warn().Str("path", r.URL.Path).Msg("Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			if !strings.HasPrefix(authHeader, bearerPrefix) {
				log.Warn().Str("path", r.URL.Path).Msg("Invalid authorization header format")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
			userID, err := validateToken(tokenString, secret)
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("JWT validation failed")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateToken verifies the HMAC signature and standard time claims
// and returns the subject.
func validateToken(tokenString, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("token is not valid")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

// UserID returns the authenticated user id from the request context.
func UserID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(userIDKey).(string)
	return id, ok && id != ""
}
