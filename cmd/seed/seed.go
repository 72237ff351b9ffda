package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// SeedFile lists the profiles and clubs to provision
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
	Clubs []SeedClub `yaml:"clubs"`
}

// SeedUser is a profile keyed by its identity provider id
type SeedUser struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Role      string `yaml:"role"`
	AvatarURL string `yaml:"avatar_url"`
}

// SeedClub is a club with an optional representative
type SeedClub struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	Description      string `yaml:"description"`
	RepresentativeID string `yaml:"representative_id"`
}

// DocumentSetter writes a document under a fixed id
type DocumentSetter interface {
	Set(ctx context.Context, collection, id string, fields any) error
}

// LoadSeedFile reads and validates a seed file
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed file: %w", err)
	}

	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks ids, roles and representative references
func (s *SeedFile) Validate() error {
	users := make(map[string]bool, len(s.Users))
	for i, u := range s.Users {
		if u.ID == "" {
			return fmt.Errorf("users[%d]: id is required", i)
		}
		if users[u.ID] {
			return fmt.Errorf("users[%d]: duplicate id %q", i, u.ID)
		}
		users[u.ID] = true

		role := entity.Role(u.Role)
		if role == entity.RoleUnauthenticated {
			role = entity.RoleStudent
		}
		if !role.IsValid() {
			return fmt.Errorf("users[%d]: invalid role %q", i, u.Role)
		}
	}

	clubs := make(map[string]bool, len(s.Clubs))
	for i, c := range s.Clubs {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("clubs[%d]: id and name are required", i)
		}
		if clubs[c.ID] {
			return fmt.Errorf("clubs[%d]: duplicate id %q", i, c.ID)
		}
		clubs[c.ID] = true

		if c.RepresentativeID != "" && !users[c.RepresentativeID] {
			return fmt.Errorf("clubs[%d]: unknown representative %q", i, c.RepresentativeID)
		}
	}
	return nil
}

// Apply writes every user and club. Existing documents with the same ids
// are replaced.
func (s *SeedFile) Apply(ctx context.Context, store DocumentSetter) error {
	for _, u := range s.Users {
		role := entity.Role(u.Role)
		if role == entity.RoleUnauthenticated {
			role = entity.RoleStudent
		}
		user := entity.User{
			Name:      u.Name,
			Email:     u.Email,
			Role:      role,
			AvatarURL: u.AvatarURL,
		}
		if err := store.Set(ctx, entity.CollectionUsers, u.ID, user); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	for _, c := range s.Clubs {
		club := entity.Club{
			Name:             c.Name,
			Description:      c.Description,
			RepresentativeID: c.RepresentativeID,
		}
		if err := store.Set(ctx, entity.CollectionClubs, c.ID, club); err != nil {
			return fmt.Errorf("seed club %s: %w", c.ID, err)
		}
	}
	return nil
}
