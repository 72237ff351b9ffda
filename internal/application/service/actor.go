package service

import (
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/role"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Actor is the signed-in user performing a write, with the role resolved
// for them at request time.
type Actor struct {
	ID   string
	Name string
	Role entity.Role
}

// NewActor builds an actor from a resolved profile and role
func NewActor(user *entity.User, r entity.Role) (Actor, error) {
	if user == nil || !r.IsValid() {
		return Actor{}, ErrUnauthenticated
	}
	return Actor{ID: user.ID, Name: user.DisplayName(), Role: r}, nil
}

func (a Actor) authorize(action role.Action) error {
	if a.ID == "" {
		return ErrUnauthenticated
	}
	if !role.Can(a.Role, action) {
		return ErrForbidden
	}
	return nil
}
