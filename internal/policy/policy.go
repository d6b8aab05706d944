// Package policy concentra las reglas de autorización del gateway como
// funciones puras sobre identidades y membresías, sin I/O. Eso permite
// testear la lógica de seguridad sin mocks de red.
package policy

import (
	"strings"

	"github.com/dropDatabas3/identity-gateway/internal/scim"
)

// IsCallerAdmin decide si el caller es administrador: algún grupo igual a
// "admin" o que contenga "admin" (case-insensitive) como substring.
//
// OJO: el match por substring es deliberadamente laxo y es comportamiento
// preexistente que se preserva tal cual. Un grupo llamado
// "administrative-assistant" clasifica como admin. No "arreglar" sin cambio
// de contrato acordado.
func IsCallerAdmin(groups []string) bool {
	for _, g := range groups {
		if g == "admin" || strings.Contains(strings.ToLower(g), "admin") {
			return true
		}
	}
	return false
}

// IsProtectedTarget decide si un usuario objetivo está protegido: alguna de
// sus membresías tiene el id del grupo admin, o un display cuyo lowercase
// contiene "admin".
func IsProtectedTarget(memberships []scim.MemberRef, adminGroupID string) bool {
	for _, m := range memberships {
		if adminGroupID != "" && m.Value == adminGroupID {
			return true
		}
		if strings.Contains(strings.ToLower(m.Display), "admin") {
			return true
		}
	}
	return false
}

// FilterProtectedGroups quita de un listado los grupos admin: id igual al
// grupo admin configurado o displayName que contenga "admin".
func FilterProtectedGroups(groups []scim.Group, adminGroupID string) []scim.Group {
	out := make([]scim.Group, 0, len(groups))
	for _, g := range groups {
		if adminGroupID != "" && g.ID == adminGroupID {
			continue
		}
		if strings.Contains(strings.ToLower(g.DisplayName), "admin") {
			continue
		}
		out = append(out, g)
	}
	return out
}
