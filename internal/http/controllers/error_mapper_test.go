package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/identity-gateway/internal/gateway"
	"github.com/dropDatabas3/identity-gateway/internal/scim"
	"github.com/dropDatabas3/identity-gateway/internal/token"
)

func TestMapError(t *testing.T) {
	c := &Controller{dev: false}

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"auth M2M caída", token.ErrAuthenticationFailed, http.StatusServiceUnavailable,
			"Failed to authenticate with identity provider. Check service credentials."},
		{"auth M2M envuelta", fmt.Errorf("scim call: %w", token.ErrAuthenticationFailed),
			http.StatusServiceUnavailable,
			"Failed to authenticate with identity provider. Check service credentials."},
		{"validación", gateway.ErrMissingFields, http.StatusBadRequest,
			"Email, firstName, and lastName are required"},
		{"usuario protegido", gateway.ErrProtectedUser, http.StatusForbidden,
			"Cannot delete admin users. Admin group members are protected."},
		{"no encontrado", scim.ErrNotFound, http.StatusNotFound, "User not found"},
		{"conflicto", scim.ErrConflict, http.StatusConflict, "A user with this email already exists"},
		{"upstream", &scim.UpstreamError{StatusCode: 502, Body: "gateway caído"},
			http.StatusInternalServerError, "Failed to fetch user"},
		{"desconocido", errors.New("sorpresa"), http.StatusInternalServerError, "Failed to fetch user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.mapError(tc.err, "Failed to fetch user")
			assert.Equal(t, tc.wantStatus, got.HTTPStatus)
			assert.Equal(t, tc.wantMsg, got.Message)
		})
	}
}

func TestMapErrorHidesUpstreamDetailInProd(t *testing.T) {
	prod := &Controller{dev: false}
	got := prod.mapError(&scim.UpstreamError{StatusCode: 502, Body: "payload interno"}, "Failed")
	assert.Empty(t, got.Detail, "fuera de dev el body upstream no se expone")

	dev := &Controller{dev: true}
	got = dev.mapError(&scim.UpstreamError{StatusCode: 502, Body: "payload interno"}, "Failed")
	assert.Equal(t, "payload interno", got.Detail)
}

func TestMapErrorGroupMisconfigIs500(t *testing.T) {
	c := &Controller{dev: false}

	// Un 404 al traer un grupo configurado llega envuelto sin cadena de
	// errores: debe caer al genérico, no al 404 de usuario.
	err := fmt.Errorf("fetch group %q: %v", "supplier", scim.ErrNotFound)
	got := c.mapError(err, "Failed to fetch suppliers")
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	assert.Equal(t, "Failed to fetch suppliers", got.Message)
}
