// Package gateway compone el cliente SCIM2 y la política de autorización en
// las operaciones de negocio expuestas a los callers. Cada operación asume
// que la admisión (token verificado + rol admin) ya ocurrió en el middleware;
// acá solo viven las acciones y el filtrado de protección.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropDatabas3/identity-gateway/internal/policy"
	"github.com/dropDatabas3/identity-gateway/internal/scim"
	"github.com/dropDatabas3/identity-gateway/internal/token"
)

var (
	// ErrMissingFields: falta alguno de los campos requeridos del alta.
	ErrMissingFields = errors.New("email, firstName and lastName are required")

	// ErrProtectedUser: el objetivo es admin y no puede eliminarse.
	ErrProtectedUser = errors.New("admin users are protected")

	// ErrGroupNotConfigured: el grupo pedido no tiene id configurado.
	ErrGroupNotConfigured = errors.New("group id not configured")
)

// GroupIDs son los ids de grupo del provider, configuración de proceso
// de solo lectura.
type GroupIDs struct {
	Admin          string
	Supplier       string
	WarehouseStaff string
}

// CreateUserInput es el payload de alta de supplier/warehouse staff.
type CreateUserInput struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Service implementa las operaciones del gateway.
type Service struct {
	scim   *scim.Client
	groups GroupIDs
	log    *zap.Logger
}

func NewService(client *scim.Client, groups GroupIDs, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{scim: client, groups: groups, log: log}
}

// ListSuppliers lista los usuarios del grupo supplier con detalle completo.
func (s *Service) ListSuppliers(ctx context.Context) ([]scim.GatewayUser, error) {
	return s.listGroupMembers(ctx, s.groups.Supplier, "supplier")
}

// ListWarehouseStaff lista los usuarios del grupo warehouse_staff.
func (s *Service) ListWarehouseStaff(ctx context.Context) ([]scim.GatewayUser, error) {
	return s.listGroupMembers(ctx, s.groups.WarehouseStaff, "warehouse_staff")
}

// listGroupMembers trae el grupo y el detalle de cada miembro. Un fallo al
// traer un miembro individual no tira el listado completo: se loguea y el
// miembro se omite (política de resultado parcial).
func (s *Service) listGroupMembers(ctx context.Context, groupID, name string) ([]scim.GatewayUser, error) {
	if groupID == "" {
		s.log.Error("grupo sin id configurado", zap.String("group", name))
		return nil, ErrGroupNotConfigured
	}

	group, err := s.scim.GetGroup(ctx, groupID)
	if err != nil {
		// Un 404 acá es un id de grupo mal configurado, no un recurso que el
		// caller pidió: no se propaga como not-found salvo fallo de auth M2M.
		if errors.Is(err, token.ErrAuthenticationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch group %q: %v", name, err)
	}

	users := make([]scim.GatewayUser, 0, len(group.Members))
	for _, m := range group.Members {
		u, err := s.scim.GetUser(ctx, m.Value)
		if err != nil {
			s.log.Warn("no se pudo traer el detalle de un miembro, se omite",
				zap.String("user_id", m.Value), zap.Error(err))
			continue
		}
		users = append(users, u.Normalized())
	}
	return users, nil
}

// GetUser trae un usuario por id en vista normalizada.
func (s *Service) GetUser(ctx context.Context, userID string) (*scim.GatewayUser, error) {
	u, err := s.scim.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := u.Normalized()
	return &out, nil
}

// CreateSupplier crea el usuario upstream y lo asigna al grupo supplier.
func (s *Service) CreateSupplier(ctx context.Context, in CreateUserInput) (*scim.GatewayUser, error) {
	return s.createInGroup(ctx, in, s.groups.Supplier, "supplier")
}

// CreateWarehouseStaff crea el usuario y lo asigna al grupo warehouse_staff.
func (s *Service) CreateWarehouseStaff(ctx context.Context, in CreateUserInput) (*scim.GatewayUser, error) {
	return s.createInGroup(ctx, in, s.groups.WarehouseStaff, "warehouse_staff")
}

// createInGroup valida, crea el usuario (el provider manda mail de seteo de
// contraseña) y lo agrega al grupo destino con el email como display de la
// membresía. Si el grupo no está configurado, el usuario queda creado sin
// grupo y solo se loguea un warning: no hay rollback de la creación.
func (s *Service) createInGroup(ctx context.Context, in CreateUserInput, groupID, name string) (*scim.GatewayUser, error) {
	if in.Email == "" || in.FirstName == "" || in.LastName == "" {
		return nil, ErrMissingFields
	}

	s.log.Info("creando usuario", zap.String("email", in.Email), zap.String("group", name))
	u, err := s.scim.CreateUser(ctx, scim.NewUser{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
	})
	if err != nil {
		return nil, err
	}

	if groupID == "" {
		s.log.Warn("grupo sin id configurado, usuario creado sin asignación de grupo",
			zap.String("group", name), zap.String("user_id", u.ID))
	} else {
		if err := s.scim.AddUserToGroup(ctx, groupID, u.ID, in.Email); err != nil {
			// Sin rollback: el usuario queda creado sin grupo (limitación aceptada).
			return nil, err
		}
		s.log.Info("usuario agregado al grupo", zap.String("user_id", u.ID), zap.String("group", name))
	}

	out := u.Normalized()
	return &out, nil
}

// DeleteUser elimina un usuario no protegido. El chequeo de protección
// precede estrictamente al delete: si el objetivo es admin no se emite
// ninguna llamada de eliminación.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	u, err := s.scim.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if policy.IsProtectedTarget(u.Groups, s.groups.Admin) {
		s.log.Warn("intento de eliminar un usuario admin, operación denegada",
			zap.String("user_id", userID))
		return ErrProtectedUser
	}

	return s.scim.DeleteUser(ctx, userID)
}

// ListGroups lista los grupos administrables: el grupo admin (y cualquier
// grupo con "admin" en el nombre) queda excluido del resultado.
func (s *Service) ListGroups(ctx context.Context) ([]scim.GroupSummary, error) {
	gl, err := s.scim.ListGroups(ctx, scim.ListOptions{})
	if err != nil {
		return nil, err
	}

	visible := policy.FilterProtectedGroups(gl.Resources, s.groups.Admin)
	out := make([]scim.GroupSummary, 0, len(visible))
	for _, g := range visible {
		out = append(out, g.Summary())
	}
	return out, nil
}
