package middlewares

import (
	"net/http"

	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/identity-gateway/internal/http/errors"
	"github.com/dropDatabas3/identity-gateway/internal/observability/logger"
)

// WithRecover atrapa panics del handler y responde el 500 genérico.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic atendiendo request",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path))
					httperrors.WriteError(w, httperrors.ErrInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
