package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreateParticipant registers a new participant. name is required.
func (s *Service) CreateParticipant(ctx context.Context, name, phone string) (*models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("participant name is required")
	}

	p := &models.Participant{
		ID:        s.newID(),
		Name:      name,
		Phone:     strings.TrimSpace(phone),
		CreatedAt: s.now().Unix(),
	}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}

	s.logger.InfoContext(ctx, "Participant created", "participant_id", p.ID)
	return p, nil
}

// GetParticipant returns the participant with the given ID.
func (s *Service) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	p, err := s.store.GetParticipant(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// ListParticipants returns every participant, ordered by name.
func (s *Service) ListParticipants(ctx context.Context) ([]*models.Participant, error) {
	return s.store.ListParticipants(ctx)
}

// EnsureParticipant returns the participant with id, creating it with name if
// it does not exist yet. Registered users are mirrored this way so their user
// ID can be used directly on bills.
func (s *Service) EnsureParticipant(ctx context.Context, id, name string) (*models.Participant, error) {
	p, err := s.store.GetParticipant(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil, validationf("participant id and name are required")
	}
	p = &models.Participant{ID: id, Name: name, CreatedAt: s.now().Unix()}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}

	s.logger.InfoContext(ctx, "Participant mirrored", "participant_id", id)
	return p, nil
}

// ParticipantNames resolves ids to display names. IDs that no longer resolve
// map to models.UnknownParticipantName.
func (s *Service) ParticipantNames(ctx context.Context, ids []string) (map[string]string, error) {
	found, err := s.store.GetParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id] = found[id].DisplayName()
	}
	return names, nil
}

// requireParticipants fails with ErrValidation if any of ids is unknown.
func (s *Service) requireParticipants(ctx context.Context, ids []string) error {
	found, err := s.store.GetParticipants(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return validationf("unknown participant %q", id)
		}
	}
	return nil
}
