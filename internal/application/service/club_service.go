package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/garyjia/club-expenses/internal/application/dispatcher"
	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/event"
	"github.com/garyjia/club-expenses/internal/domain/role"
	"github.com/garyjia/club-expenses/pkg/utils"
)

// RegisterClubInput is a new club as entered by its creator
type RegisterClubInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ClubService manages club registration
type ClubService interface {
	Register(ctx context.Context, actor Actor, input RegisterClubInput) (*entity.Club, error)
}

type clubServiceImpl struct {
	store     port.DocumentStore
	publisher dispatcher.Publisher
	logger    Logger
}

// NewClubService creates a new ClubService
func NewClubService(store port.DocumentStore, publisher dispatcher.Publisher, logger Logger) ClubService {
	return &clubServiceImpl{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Register creates a club with the actor as its representative
func (s *clubServiceImpl) Register(ctx context.Context, actor Actor, input RegisterClubInput) (*entity.Club, error) {
	if err := actor.authorize(role.ActionRegisterClub); err != nil {
		return nil, err
	}

	name := utils.SanitizeText(input.Name)
	description := utils.SanitizeText(input.Description)
	if utf8.RuneCountInString(name) < entity.MinClubNameLength {
		return nil, invalid("name", "must be at least %d characters", entity.MinClubNameLength)
	}
	if utf8.RuneCountInString(description) < entity.MinClubDescriptionLength {
		return nil, invalid("description", "must be at least %d characters", entity.MinClubDescriptionLength)
	}

	club := &entity.Club{
		Name:             name,
		Description:      description,
		RepresentativeID: actor.ID,
	}

	id, err := s.store.Create(ctx, entity.CollectionClubs, club)
	if err != nil {
		s.logger.Error("Failed to register club", "error", err, "name", name)
		return nil, fmt.Errorf("create club: %w", err)
	}
	club.ID = id

	s.logger.Info("Club registered", "id", id, "name", name, "representative_id", actor.ID)
	publish(ctx, s.publisher, event.NewEvent(event.TypeClubRegistered, entity.CollectionClubs, id, actor.ID, map[string]interface{}{
		"club_name":           name,
		"representative_name": actor.Name,
	}))
	return club, nil
}
