package middleware

import (
	"net/http"

	"esn-backend/pkg/auth"
	"esn-backend/pkg/common"
	pkgerrors "esn-backend/pkg/errors"

	"go.uber.org/zap"
)

// LimitMutations rejects writes from a customer beyond the limiter's rate.
// Safe methods pass through.
func LimitMutations(limiter auth.RateLimiter, perSecond int, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			customerID, ok := common.GetCustomerID(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), customerID)
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(perSecond, "second").
					WithDetails(map[string]interface{}{"customerId": customerID}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
