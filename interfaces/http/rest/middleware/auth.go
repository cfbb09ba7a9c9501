package middleware

import (
	"net/http"
	"strings"

	"esn-backend/domain/core/valueobjects"
	"esn-backend/pkg/auth"
	"esn-backend/pkg/common"
	pkgerrors "esn-backend/pkg/errors"
	"esn-backend/pkg/observability"

	"go.uber.org/zap"
)

// DevCustomerHeader names the customer in development when token checks are bypassed
const DevCustomerHeader = "X-Dev-Customer-ID"

// AuthConfig configures Authenticate
type AuthConfig struct {
	Validator *auth.SessionTokenValidator
	// DevBypass accepts DevCustomerHeader instead of a token. Never enabled in production.
	DevBypass bool
	Errors    *pkgerrors.ErrorHandler
	Tracer    *observability.Tracer
	Logger    *zap.Logger
}

// Authenticate validates the session token and puts the customer into the request context
func Authenticate(cfg AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.DevBypass {
				if raw := r.Header.Get(DevCustomerHeader); raw != "" {
					customerID, err := valueobjects.NewCustomerID(raw)
					if err != nil {
						cfg.Errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid development customer"))
						return
					}
					ctx = common.WithCustomerID(ctx, customerID.String())
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			if cfg.Validator == nil {
				cfg.Errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Authentication is not configured"))
				return
			}

			token := extractToken(r)
			if token == "" {
				cfg.Errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing authentication token"))
				return
			}

			claims, err := cfg.Validator.ValidateToken(token)
			if err != nil {
				cfg.Logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				cfg.Errors.Handle(w, r, pkgerrors.NewUnauthorizedError(tokenErrorMessage(err)).WithCause(err))
				return
			}

			customerID, err := valueobjects.NewCustomerID(claims.Subject)
			if err != nil {
				cfg.Errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Token subject is not a customer"))
				return
			}

			ctx = common.WithCustomerID(ctx, customerID.String())
			ctx = common.WithShop(ctx, claims.Shop())
			ctx = common.WithAccessToken(ctx, token)
			if cfg.Tracer != nil {
				cfg.Tracer.AddAnnotation(ctx, "customer", customerID.NumericID())
			}

			cfg.Logger.Debug("Request authenticated",
				zap.String("customerID", customerID.String()),
				zap.String("shop", claims.Shop()),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenErrorMessage(err error) string {
	switch {
	case err == auth.ErrExpiredToken:
		return "Token has expired"
	case err == auth.ErrInvalidSignature:
		return "Invalid token signature"
	case err == auth.ErrMissingToken:
		return "Missing authentication token"
	default:
		return "Invalid token"
	}
}

// extractToken reads a bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(authHeader)
}
