// Package role derives a user's effective role from their stored profile
// and the current club ownership.
package role

import "github.com/garyjia/club-expenses/internal/domain/entity"

// Resolve returns the effective role of profile given the current clubs.
// A nil profile means the principal has not been provisioned and resolves
// to RoleUnauthenticated. A stored admin role always wins; otherwise the user
// is a representative iff some club names them, else a student.
func Resolve(profile *entity.User, clubs []entity.Club) entity.Role {
	if profile == nil {
		return entity.RoleUnauthenticated
	}

	if profile.Role == entity.RoleAdmin {
		return entity.RoleAdmin
	}

	for _, c := range clubs {
		if c.RepresentativeID != "" && c.RepresentativeID == profile.ID {
			return entity.RoleRepresentative
		}
	}

	return entity.RoleStudent
}

// Can reports whether role may perform action
func Can(r entity.Role, action Action) bool {
	allowed, ok := permissions[action]
	if !ok {
		return false
	}
	return allowed[r]
}
