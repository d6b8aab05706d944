package controllers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/identity-gateway/internal/gateway"
	httperrors "github.com/dropDatabas3/identity-gateway/internal/http/errors"
	"github.com/dropDatabas3/identity-gateway/internal/scim"
	"github.com/dropDatabas3/identity-gateway/internal/token"
)

// mapError traduce errores de dominio al catálogo HTTP. En modo desarrollo
// los errores upstream llevan el detalle de la causa; en producción el
// payload del provider nunca se expone.
func (c *Controller) mapError(err error, fallbackMessage string) *httperrors.AppError {
	var upstream *scim.UpstreamError

	switch {
	case errors.Is(err, token.ErrAuthenticationFailed):
		return httperrors.ErrProviderUnavailable.WithCause(err)
	case errors.Is(err, gateway.ErrMissingFields):
		return httperrors.ErrMissingFields
	case errors.Is(err, gateway.ErrProtectedUser):
		return httperrors.ErrProtectedUser
	case errors.Is(err, scim.ErrNotFound):
		return httperrors.ErrUserNotFound
	case errors.Is(err, scim.ErrConflict):
		return httperrors.ErrEmailAlreadyInUse
	case errors.As(err, &upstream):
		appErr := httperrors.ErrUpstream.WithCause(err)
		appErr.Message = fallbackMessage
		if c.dev {
			appErr = appErr.WithDetail(upstream.Body)
		}
		return appErr
	default:
		appErr := httperrors.ErrInternalServerError.WithCause(err)
		appErr.Message = fallbackMessage
		if c.dev {
			appErr = appErr.WithDetail(err.Error())
		}
		return appErr
	}
}

// writeMapped es el atajo para responder un error de dominio.
func (c *Controller) writeMapped(w http.ResponseWriter, err error, fallbackMessage string) {
	httperrors.WriteError(w, c.mapError(err, fallbackMessage))
}
