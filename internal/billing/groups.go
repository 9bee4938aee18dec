package billing

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
)

// CreateGroup creates a named group of existing participants. Duplicate IDs
// are collapsed, keeping the first occurrence.
func (s *Service) CreateGroup(ctx context.Context, name string, participantIDs []string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("group name is required")
	}

	ids := dedupe(participantIDs)
	if err := s.requireParticipants(ctx, ids); err != nil {
		return nil, err
	}

	g := &models.Group{
		ID:           s.newID(),
		Name:         name,
		Participants: make([]models.Participant, len(ids)),
		CreatedAt:    s.now().Unix(),
	}
	for i, id := range ids {
		g.Participants[i] = models.Participant{ID: id}
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", translate(err))
	}

	s.metrics.GroupsCreated.Inc()
	s.logger.InfoContext(ctx, "Group created", "group_id", g.ID, "members", len(ids))
	s.publish(ctx, events.Event{Type: events.GroupCreated, GroupID: g.ID})

	return s.GetGroup(ctx, g.ID)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// GetGroup returns a group with its members resolved.
func (s *Service) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return g, nil
}

// ListGroups returns every group, newest first.
func (s *Service) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.store.ListGroups(ctx)
}

// DeleteGroup removes a group. Its participants and bills are untouched.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	if err := s.store.DeleteGroup(ctx, id); err != nil {
		return translate(err)
	}

	s.metrics.GroupsDeleted.Inc()
	s.logger.InfoContext(ctx, "Group deleted", "group_id", id)
	s.publish(ctx, events.Event{Type: events.GroupDeleted, GroupID: id})
	return nil
}

// AddParticipantToGroup appends a participant to a group. Adding a current
// member is a no-op. A missing group is ErrNotFound; an unknown participant is
// ErrValidation, as in CreateGroup.
func (s *Service) AddParticipantToGroup(ctx context.Context, groupID, participantID string) (*models.Group, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, translate(err)
	}
	if err := s.requireParticipants(ctx, []string{participantID}); err != nil {
		return nil, err
	}
	if err := s.store.AddGroupMember(ctx, groupID, participantID); err != nil {
		return nil, translate(err)
	}
	s.logger.InfoContext(ctx, "Group member added", "group_id", groupID, "participant_id", participantID)
	return s.GetGroup(ctx, groupID)
}

// RemoveParticipantFromGroup drops a participant from a group. Bills created
// from the group keep the participant.
func (s *Service) RemoveParticipantFromGroup(ctx context.Context, groupID, participantID string) (*models.Group, error) {
	if err := s.store.RemoveGroupMember(ctx, groupID, participantID); err != nil {
		return nil, translate(err)
	}
	s.logger.InfoContext(ctx, "Group member removed", "group_id", groupID, "participant_id", participantID)
	return s.GetGroup(ctx, groupID)
}

// GroupBalanceReport is the net "who pays whom" view over a group's active bills.
type GroupBalanceReport struct {
	GroupID  string                     `json:"groupId"`
	Balances []calculator.MemberBalance `json:"balances"`
	Debts    []calculator.DebtEdge      `json:"debts"`
}

// GroupBalances nets the outstanding remainders of every active bill created
// from the group.
func (s *Service) GroupBalances(ctx context.Context, groupID string) (*GroupBalanceReport, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, translate(err)
	}

	bills, err := s.store.ListBillsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group bills: %w", err)
	}
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	balances, debts := calculator.GroupBalances(bills, payments)
	return &GroupBalanceReport{
		GroupID:  groupID,
		Balances: balances,
		Debts:    debts,
	}, nil
}
