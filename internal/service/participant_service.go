package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/billing"
)

// ParticipantService implements the ParticipantService RPC interface.
type ParticipantService struct {
	ledger *billing.Service
	logger *slog.Logger
}

// NewParticipantService creates a new ParticipantService.
func NewParticipantService(ledger *billing.Service, logger *slog.Logger) *ParticipantService {
	return &ParticipantService{ledger: ledger, logger: logger}
}

// CreateParticipant registers a new participant.
func (s *ParticipantService) CreateParticipant(ctx context.Context, req *connect.Request[CreateParticipantRequest]) (*connect.Response[ParticipantResponse], error) {
	s.logger.Debug("CreateParticipant request received", "name", req.Msg.Name)

	p, err := s.ledger.CreateParticipant(ctx, req.Msg.Name, req.Msg.Phone)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantResponse{Participant: p}), nil
}

// GetParticipant retrieves a participant by ID.
func (s *ParticipantService) GetParticipant(ctx context.Context, req *connect.Request[GetParticipantRequest]) (*connect.Response[ParticipantResponse], error) {
	p, err := s.ledger.GetParticipant(ctx, req.Msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantResponse{Participant: p}), nil
}

// ListParticipants retrieves all participants.
func (s *ParticipantService) ListParticipants(ctx context.Context, req *connect.Request[ListParticipantsRequest]) (*connect.Response[ListParticipantsResponse], error) {
	participants, err := s.ledger.ListParticipants(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Debug("ListParticipants successful", "count", len(participants))
	return connect.NewResponse(&ListParticipantsResponse{Participants: participants}), nil
}
