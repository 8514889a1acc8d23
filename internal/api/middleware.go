package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/internal/auth"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/types"
)

type contextKey string

const claimsContextKey contextKey = "user_claims"

// ClaimsFromContext returns the verified token claims attached by the
// auth middleware.
func ClaimsFromContext(ctx context.Context) (*types.UserClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*types.UserClaims)
	return claims, ok
}

// corsMiddleware handles CORS headers
func (s *Service) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds security headers
func (s *Service) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs requests with a per-request id
func (s *Service) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()

		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.log.WithRequestID(requestID).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"status_code": recorder.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request processed")
	})
}

// metricsMiddleware records request count and duration
func (s *Service) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.metrics.Observe(r.Method, r.URL.Path, recorder.statusCode, time.Since(start))
	})
}

// requireAuth verifies the bearer token, applies per-user rate limiting
// and attaches the claims to the request context. Missing, malformed,
// forged and expired tokens all map to 401; insufficient role is the
// distinct 403 handled by requireAction.
func (s *Service) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		claims, err := s.tokens.Verify(parts[1])
		if err != nil {
			s.log.WithError(err).Warn("Token verification failed")
			s.writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if s.limiter != nil && !s.limiter.Allow(claims.UserID) {
			s.log.WithUserID(claims.UserID).Warn("Rate limit exceeded")
			s.writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// requireAction enforces the role-capability matrix for the action.
func (s *Service) requireAction(action auth.Action, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		if !s.authorizer.Authorize(claims.Role, action) {
			s.log.Audit(claims.UserID, string(action), false, map[string]interface{}{
				"role": claims.Role,
			})
			s.writeError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	}
}

// responseRecorder captures response status code
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
