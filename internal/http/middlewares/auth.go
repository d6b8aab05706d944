package middlewares

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/identity-gateway/internal/http/errors"
	"github.com/dropDatabas3/identity-gateway/internal/observability/logger"
	"github.com/dropDatabas3/identity-gateway/internal/policy"
	"github.com/dropDatabas3/identity-gateway/internal/token"
)

// RequireAuth valida Authorization: Bearer <JWT> y guarda la identidad
// verificada en el contexto. Token ausente o inválido responde 401 con
// mensaje genérico: el motivo concreto del rechazo queda solo en logs.
func RequireAuth(verifier *token.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}

			id, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				httperrors.WriteError(w, httperrors.ErrTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin verifica que la identidad del contexto tenga rol admin.
// Debe usarse después de RequireAuth. La admisión nunca muta estado.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r.Context())
			if id == nil {
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}
			if !policy.IsCallerAdmin(id.Groups) {
				logger.From(r.Context()).Warn("usuario no admin intentó una acción de administración",
					zap.String("email", id.Email), zap.String("sub", id.Subject))
				httperrors.WriteError(w, httperrors.ErrAdminRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearer(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[len("bearer "):])
}
