package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vistalabs/vista/internal/common"
)

const correlationHeader = "X-Correlation-ID"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in declaration order (the first listed runs
// outermost).
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RecoveryMiddleware converts panics into 500 responses.
func RecoveryMiddleware(logger *common.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Interface("panic", rec).
						Str("stack", string(debug.Stack())).
						Str("path", r.URL.Path).
						Msg("Handler panicked")
					WriteError(w, r, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware adds permissive CORS headers and answers preflight requests.
func CORSMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Correlation-ID, X-Vista-Language, X-Vista-User-Level")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CorrelationMiddleware assigns a correlation ID to every request, honoring
// an inbound header when present.
func CorrelationMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationHeader)
			if id == "" {
				id = uuid.New().String()
				r.Header.Set(correlationHeader, id)
			}
			w.Header().Set(correlationHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs method, path, status and latency per request.
func LoggingMiddleware(logger *common.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Str("correlation_id", correlationID(r)).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// authExempt lists the paths that never require a token: health probes and
// the endpoint that mints tokens in the first place.
var authExempt = map[string]bool{
	"/health":         true,
	"/api/version":    true,
	"/api/auth/token": true,
}

// AuthMiddleware validates the Bearer JWT when a secret is configured and
// stores the resulting UserContext. Without a secret the server runs in
// single-tenant mode and only the X-Vista-* headers are honored.
func AuthMiddleware(logger *common.Logger, config *common.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uc := &common.UserContext{
				Language:  r.Header.Get("X-Vista-Language"),
				UserLevel: r.Header.Get("X-Vista-User-Level"),
			}

			if config.Auth.JWTSecret != "" && !authExempt[r.URL.Path] {
				userID, err := userFromToken(r, config.Auth.JWTSecret)
				if err != nil {
					WriteError(w, r, http.StatusUnauthorized, "unauthorized: %v", err)
					return
				}
				uc.UserID = userID
			}

			next.ServeHTTP(w, r.WithContext(common.WithUserContext(r.Context(), uc)))
		})
	}
}

func userFromToken(r *http.Request, secret string) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", fmt.Errorf("missing bearer token")
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// IssueToken mints a signed JWT for the given user, used by the dev token
// endpoint.
func IssueToken(config *common.Config, userID string) (string, error) {
	if config.Auth.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret is not configured")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(config.Auth.GetTokenExpiry()).Unix(),
	})
	return token.SignedString([]byte(config.Auth.JWTSecret))
}
