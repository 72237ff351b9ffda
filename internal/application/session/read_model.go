package session

import (
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/workflow"
)

// ReadModel is an immutable view of everything a signed-in session can see.
// Role is empty when the principal has no profile or the session is not Ready.
type ReadModel struct {
	State                  workflow.SessionState          `json:"state"`
	Ready                  bool                           `json:"ready"`
	Principal              *entity.Principal              `json:"principal,omitempty"`
	User                   *entity.User                   `json:"user"`
	Role                   entity.Role                    `json:"role,omitempty"`
	Clubs                  []entity.Club                  `json:"clubs"`
	Expenses               []entity.Expense               `json:"expenses"`
	Users                  []entity.User                  `json:"users"`
	RepresentativeRequests []entity.RepresentativeRequest `json:"representativeRequests"`
}

// signedOutModel is the read model of a session with no principal
func signedOutModel() ReadModel {
	return ReadModel{
		State:                  workflow.SessionSignedOut,
		Ready:                  true,
		Clubs:                  []entity.Club{},
		Expenses:               []entity.Expense{},
		Users:                  []entity.User{},
		RepresentativeRequests: []entity.RepresentativeRequest{},
	}
}

// clone returns a deep copy so callers cannot reach the aggregator's slices
func (m ReadModel) clone() ReadModel {
	out := m
	if m.Principal != nil {
		p := *m.Principal
		out.Principal = &p
	}
	if m.User != nil {
		u := *m.User
		out.User = &u
	}
	out.Clubs = append([]entity.Club{}, m.Clubs...)
	out.Expenses = append([]entity.Expense{}, m.Expenses...)
	out.Users = append([]entity.User{}, m.Users...)
	out.RepresentativeRequests = append([]entity.RepresentativeRequest{}, m.RepresentativeRequests...)
	return out
}

// IsAuthenticated reports whether the principal resolved to a provisioned profile
func (m ReadModel) IsAuthenticated() bool {
	return m.Ready && m.User != nil && m.Role != entity.RoleUnauthenticated
}
