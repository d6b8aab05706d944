package middlewares

import (
	"context"

	"github.com/dropDatabas3/identity-gateway/internal/token"
)

type ctxKeyIdentity struct{}
type ctxKeyRequestID struct{}

// WithIdentity guarda la identidad verificada del caller en el contexto.
func WithIdentity(ctx context.Context, id *token.CallerIdentity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// IdentityFrom extrae la identidad del contexto. nil si no hubo verificación.
func IdentityFrom(ctx context.Context) *token.CallerIdentity {
	id, _ := ctx.Value(ctxKeyIdentity{}).(*token.CallerIdentity)
	return id
}

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, rid)
}

// RequestIDFrom extrae el request id del contexto.
func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return rid
}
