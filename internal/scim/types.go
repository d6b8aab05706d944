package scim

import "strings"

// userNamePrefix es el namespace que el provider antepone a los userName.
const userNamePrefix = "DEFAULT/"

// ---- Recursos SCIM2 (solo los campos que el gateway lee/escribe) ----

type Name struct {
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

type Email struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary,omitempty"`
}

type PhoneNumber struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

type Meta struct {
	Created      string `json:"created,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// MemberRef referencia a un recurso relacionado: la membresía de un usuario
// en un grupo, o un miembro dentro de un grupo.
type MemberRef struct {
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
}

type User struct {
	ID           string        `json:"id"`
	UserName     string        `json:"userName"`
	DisplayName  string        `json:"displayName,omitempty"`
	Name         Name          `json:"name,omitempty"`
	Emails       []Email       `json:"emails,omitempty"`
	PhoneNumbers []PhoneNumber `json:"phoneNumbers,omitempty"`
	Active       *bool         `json:"active,omitempty"`
	Groups       []MemberRef   `json:"groups,omitempty"`
	Meta         Meta          `json:"meta,omitempty"`
}

type Group struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Members     []MemberRef `json:"members,omitempty"`
}

type UserList struct {
	TotalResults int    `json:"totalResults"`
	StartIndex   int    `json:"startIndex"`
	ItemsPerPage int    `json:"itemsPerPage"`
	Resources    []User `json:"Resources"`
}

type GroupList struct {
	TotalResults int     `json:"totalResults"`
	StartIndex   int     `json:"startIndex"`
	ItemsPerPage int     `json:"itemsPerPage"`
	Resources    []Group `json:"Resources"`
}

// ---- Vista simplificada expuesta a los callers ----

// GatewayUser es la vista normalizada de un usuario SCIM2. Derivada, nunca
// almacenada: se recalcula por respuesta.
type GatewayUser struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	DisplayName string   `json:"displayName"`
	Phone       *string  `json:"phone"`
	Active      bool     `json:"active"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	Groups      []string `json:"groups"`
}

// GroupSummary es la vista de grupo que se lista a los callers.
type GroupSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

// Normalized convierte el registro SCIM2 a la vista simplificada.
func (u User) Normalized() GatewayUser {
	out := GatewayUser{
		ID:        u.ID,
		FirstName: u.Name.GivenName,
		LastName:  u.Name.FamilyName,
		CreatedAt: u.Meta.Created,
		UpdatedAt: u.Meta.LastModified,
		Groups:    []string{},
	}

	// email: primero emails[0], si no el userName sin el prefijo de namespace
	if len(u.Emails) > 0 {
		out.Email = u.Emails[0].Value
	} else {
		out.Email = strings.TrimPrefix(u.UserName, userNamePrefix)
	}

	if u.DisplayName != "" {
		out.DisplayName = u.DisplayName
	} else {
		out.DisplayName = strings.TrimSpace(u.Name.GivenName + " " + u.Name.FamilyName)
	}

	if len(u.PhoneNumbers) > 0 {
		p := u.PhoneNumbers[0].Value
		out.Phone = &p
	}

	// active ausente cuenta como activo
	out.Active = u.Active == nil || *u.Active

	for _, g := range u.Groups {
		out.Groups = append(out.Groups, g.Display)
	}
	return out
}

// Summary convierte un grupo SCIM2 a la vista de listado.
func (g Group) Summary() GroupSummary {
	return GroupSummary{
		ID:          g.ID,
		Name:        strings.TrimPrefix(g.DisplayName, userNamePrefix),
		MemberCount: len(g.Members),
	}
}
