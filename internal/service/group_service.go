package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/billing"
)

// GroupService implements the GroupService RPC interface.
type GroupService struct {
	ledger *billing.Service
	logger *slog.Logger
}

// NewGroupService creates a new GroupService on top of the ledger.
func NewGroupService(ledger *billing.Service, logger *slog.Logger) *GroupService {
	return &GroupService{ledger: ledger, logger: logger}
}

// CreateGroup creates a new group.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	s.logger.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.ParticipantIDs),
	)

	group, err := s.ledger.CreateGroup(ctx, req.Msg.Name, req.Msg.ParticipantIDs)
	if err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	group, err := s.ledger.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		s.logger.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// ListGroups retrieves all groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	groups, err := s.ledger.ListGroups(ctx)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Debug("ListGroups successful", "count", len(groups))
	return connect.NewResponse(&ListGroupsResponse{Groups: groups}), nil
}

// DeleteGroup removes a group by ID. Participants and bills are kept.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	if err := s.ledger.DeleteGroup(ctx, req.Msg.GroupID); err != nil {
		s.logger.Error("DeleteGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteGroupResponse{}), nil
}

// AddGroupMember appends a participant to a group.
func (s *GroupService) AddGroupMember(ctx context.Context, req *connect.Request[GroupMemberRequest]) (*connect.Response[GroupResponse], error) {
	group, err := s.ledger.AddParticipantToGroup(ctx, req.Msg.GroupID, req.Msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// RemoveGroupMember removes a participant from a group.
func (s *GroupService) RemoveGroupMember(ctx context.Context, req *connect.Request[GroupMemberRequest]) (*connect.Response[GroupResponse], error) {
	group, err := s.ledger.RemoveParticipantFromGroup(ctx, req.Msg.GroupID, req.Msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// GetGroupBalances calculates balances across all active bills in a group.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	groupID := req.Msg.GroupID
	s.logger.Info("GetGroupBalances request received", "group_id", groupID)

	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("group_id required"))
	}

	report, err := s.ledger.GroupBalances(ctx, groupID)
	if err != nil {
		s.logger.Error("GetGroupBalances failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	ids := make([]string, len(report.Balances))
	for i, b := range report.Balances {
		ids[i] = b.ParticipantID
	}
	names, err := s.ledger.ParticipantNames(ctx, ids)
	if err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Info("GetGroupBalances successful",
		"group_id", groupID,
		"members", len(report.Balances),
		"debts", len(report.Debts),
	)
	return connect.NewResponse(&GetGroupBalancesResponse{
		GroupID:  report.GroupID,
		Balances: report.Balances,
		Debts:    report.Debts,
		Names:    names,
	}), nil
}
