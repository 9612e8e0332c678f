package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ameliorate/pkg/auth"
	pkgerrors "ameliorate/pkg/errors"
)

// RateLimiters holds the per-IP and per-user limiters. A nil limiter
// disables that check.
type RateLimiters struct {
	IP   *auth.IPRateLimiter
	User *auth.UserRateLimiter
}

// RateLimit rejects requests from client IPs over their limit
func RateLimit(limiter *auth.IPRateLimiter, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			allowed, err := limiter.Allow(r.Context(), clientIP)
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				errs.Handle(w, r, pkgerrors.NewInternalError("rate limiter unavailable").WithCause(err))
				return
			}
			if !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(limiter.Limit(), "minute"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate requires a valid bearer token and attaches the caller to the
// request context. Callers over the per-user limit are rejected.
func Authenticate(validator *auth.JWTValidator, userLimiter *auth.UserRateLimiter, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("missing authentication token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", getClientIP(r)),
					zap.String("path", r.URL.Path),
				)

				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("token has expired"))
				case errors.Is(err, auth.ErrInvalidSignature):
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("invalid token signature"))
				default:
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("invalid token"))
				}
				return
			}

			if userLimiter != nil {
				allowed, err := userLimiter.Allow(r.Context(), claims.UserID)
				if err != nil {
					logger.Error("User rate limiter error", zap.Error(err))
					errs.Handle(w, r, pkgerrors.NewInternalError("rate limiter unavailable").WithCause(err))
					return
				}
				if !allowed {
					errs.Handle(w, r, pkgerrors.NewRateLimitError(userLimiter.Limit(), "minute"))
					return
				}
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})

			logger.Debug("Request authenticated",
				zap.String("user_id", claims.UserID),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the token from the Authorization header or the
// auth_token cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if found && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return authHeader
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// getClientIP extracts the client IP address. chi's RealIP middleware has
// already folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
