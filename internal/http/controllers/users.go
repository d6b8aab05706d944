// Package controllers contiene los handlers HTTP del gateway: traducen
// requests a operaciones del servicio y escriben los envelopes de respuesta.
package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/identity-gateway/internal/gateway"
	httperrors "github.com/dropDatabas3/identity-gateway/internal/http/errors"
	"github.com/dropDatabas3/identity-gateway/internal/scim"
)

// Controller agrupa los handlers de usuarios y grupos.
type Controller struct {
	svc *gateway.Service
	dev bool
}

func New(svc *gateway.Service, dev bool) *Controller {
	return &Controller{svc: svc, dev: dev}
}

type listResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Total   int  `json:"total"`
}

type dataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ListSuppliers responde GET /suppliers.
func (c *Controller) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	users, err := c.svc.ListSuppliers(r.Context())
	if err != nil {
		c.writeMapped(w, err, "Failed to fetch suppliers")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, listResponse{Success: true, Data: users, Total: len(users)})
}

// ListWarehouseStaff responde GET /staff.
func (c *Controller) ListWarehouseStaff(w http.ResponseWriter, r *http.Request) {
	users, err := c.svc.ListWarehouseStaff(r.Context())
	if err != nil {
		c.writeMapped(w, err, "Failed to fetch warehouse staff")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, listResponse{Success: true, Data: users, Total: len(users)})
}

// GetUser responde GET /users/{userID}.
func (c *Controller) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := c.svc.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		c.writeMapped(w, err, "Failed to fetch user")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Data: u})
}

// CreateSupplier responde POST /suppliers.
func (c *Controller) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	c.create(w, r, c.svc.CreateSupplier,
		"Supplier created successfully. Password reset email sent.",
		"Failed to create supplier")
}

// CreateWarehouseStaff responde POST /staff.
func (c *Controller) CreateWarehouseStaff(w http.ResponseWriter, r *http.Request) {
	c.create(w, r, c.svc.CreateWarehouseStaff,
		"Warehouse staff created successfully. Password reset email sent.",
		"Failed to create warehouse staff")
}

type createOp func(ctx context.Context, in gateway.CreateUserInput) (*scim.GatewayUser, error)

func (c *Controller) create(w http.ResponseWriter, r *http.Request, op createOp, okMessage, failMessage string) {
	var in gateway.CreateUserInput
	if !readJSON(w, r, &in) {
		return
	}

	u, err := op(r.Context(), in)
	if err != nil {
		c.writeMapped(w, err, failMessage)
		return
	}
	httperrors.WriteJSON(w, http.StatusCreated, dataResponse{Success: true, Message: okMessage, Data: u})
}

// DeleteUser responde DELETE /users/{userID}. La verificación de protección
// del objetivo ocurre en el servicio, antes de cualquier delete upstream.
func (c *Controller) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		c.writeMapped(w, err, "Failed to delete user")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Message: "User deleted successfully"})
}

// ListGroups responde GET /groups. El grupo admin nunca aparece.
func (c *Controller) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := c.svc.ListGroups(r.Context())
	if err != nil {
		c.writeMapped(w, err, "Failed to fetch groups")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, listResponse{Success: true, Data: groups, Total: len(groups)})
}

// readJSON decodifica el body de forma tolerante (no falla por campos
// desconocidos) y limita el tamaño a 1MB.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return false
	}
	return true
}
