package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{codecOption}, opts...)
}

func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, opts...)
}

// AuthServiceClient calls the AuthService.
type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, AuthResponse]
	login          *connect.Client[LoginRequest, AuthResponse]
	logout         *connect.Client[LogoutRequest, LogoutResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
}

// NewAuthServiceClient creates a client for the AuthService served at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register:       newClient[RegisterRequest, AuthResponse](httpClient, baseURL, AuthServiceRegisterProcedure, opts),
		login:          newClient[LoginRequest, AuthResponse](httpClient, baseURL, AuthServiceLoginProcedure, opts),
		logout:         newClient[LogoutRequest, LogoutResponse](httpClient, baseURL, AuthServiceLogoutProcedure, opts),
		getCurrentUser: newClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL, AuthServiceGetCurrentUserProcedure, opts),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

// ParticipantServiceClient calls the ParticipantService.
type ParticipantServiceClient struct {
	createParticipant *connect.Client[CreateParticipantRequest, ParticipantResponse]
	getParticipant    *connect.Client[GetParticipantRequest, ParticipantResponse]
	listParticipants  *connect.Client[ListParticipantsRequest, ListParticipantsResponse]
}

// NewParticipantServiceClient creates a client for the ParticipantService served at baseURL.
func NewParticipantServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ParticipantServiceClient {
	opts = clientOptions(opts)
	return &ParticipantServiceClient{
		createParticipant: newClient[CreateParticipantRequest, ParticipantResponse](httpClient, baseURL, ParticipantServiceCreateParticipantProcedure, opts),
		getParticipant:    newClient[GetParticipantRequest, ParticipantResponse](httpClient, baseURL, ParticipantServiceGetParticipantProcedure, opts),
		listParticipants:  newClient[ListParticipantsRequest, ListParticipantsResponse](httpClient, baseURL, ParticipantServiceListParticipantsProcedure, opts),
	}
}

func (c *ParticipantServiceClient) CreateParticipant(ctx context.Context, req *connect.Request[CreateParticipantRequest]) (*connect.Response[ParticipantResponse], error) {
	return c.createParticipant.CallUnary(ctx, req)
}

func (c *ParticipantServiceClient) GetParticipant(ctx context.Context, req *connect.Request[GetParticipantRequest]) (*connect.Response[ParticipantResponse], error) {
	return c.getParticipant.CallUnary(ctx, req)
}

func (c *ParticipantServiceClient) ListParticipants(ctx context.Context, req *connect.Request[ListParticipantsRequest]) (*connect.Response[ListParticipantsResponse], error) {
	return c.listParticipants.CallUnary(ctx, req)
}

// GroupServiceClient calls the GroupService.
type GroupServiceClient struct {
	createGroup       *connect.Client[CreateGroupRequest, GroupResponse]
	getGroup          *connect.Client[GetGroupRequest, GroupResponse]
	listGroups        *connect.Client[ListGroupsRequest, ListGroupsResponse]
	deleteGroup       *connect.Client[DeleteGroupRequest, DeleteGroupResponse]
	addGroupMember    *connect.Client[GroupMemberRequest, GroupResponse]
	removeGroupMember *connect.Client[GroupMemberRequest, GroupResponse]
	getGroupBalances  *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
}

// NewGroupServiceClient creates a client for the GroupService served at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	opts = clientOptions(opts)
	return &GroupServiceClient{
		createGroup:       newClient[CreateGroupRequest, GroupResponse](httpClient, baseURL, GroupServiceCreateGroupProcedure, opts),
		getGroup:          newClient[GetGroupRequest, GroupResponse](httpClient, baseURL, GroupServiceGetGroupProcedure, opts),
		listGroups:        newClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL, GroupServiceListGroupsProcedure, opts),
		deleteGroup:       newClient[DeleteGroupRequest, DeleteGroupResponse](httpClient, baseURL, GroupServiceDeleteGroupProcedure, opts),
		addGroupMember:    newClient[GroupMemberRequest, GroupResponse](httpClient, baseURL, GroupServiceAddGroupMemberProcedure, opts),
		removeGroupMember: newClient[GroupMemberRequest, GroupResponse](httpClient, baseURL, GroupServiceRemoveGroupMemberProcedure, opts),
		getGroupBalances:  newClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL, GroupServiceGetGroupBalancesProcedure, opts),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddGroupMember(ctx context.Context, req *connect.Request[GroupMemberRequest]) (*connect.Response[GroupResponse], error) {
	return c.addGroupMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RemoveGroupMember(ctx context.Context, req *connect.Request[GroupMemberRequest]) (*connect.Response[GroupResponse], error) {
	return c.removeGroupMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

// BillServiceClient calls the BillService.
type BillServiceClient struct {
	createBill      *connect.Client[CreateBillRequest, BillResponse]
	getBill         *connect.Client[GetBillRequest, BillResponse]
	updateBill      *connect.Client[UpdateBillRequest, BillResponse]
	listBills       *connect.Client[ListBillsRequest, ListBillsResponse]
	completeBill    *connect.Client[CompleteBillRequest, BillResponse]
	deleteBill      *connect.Client[DeleteBillRequest, DeleteBillResponse]
	registerPayment *connect.Client[RegisterPaymentRequest, PaymentResponse]
	listPayments    *connect.Client[ListPaymentsRequest, ListPaymentsResponse]
	getBillReport   *connect.Client[GetBillReportRequest, GetBillReportResponse]
	getSummary      *connect.Client[GetSummaryRequest, GetSummaryResponse]
	getSnapshot     *connect.Client[GetSnapshotRequest, GetSnapshotResponse]
}

// NewBillServiceClient creates a client for the BillService served at baseURL.
func NewBillServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BillServiceClient {
	opts = clientOptions(opts)
	return &BillServiceClient{
		createBill:      newClient[CreateBillRequest, BillResponse](httpClient, baseURL, BillServiceCreateBillProcedure, opts),
		getBill:         newClient[GetBillRequest, BillResponse](httpClient, baseURL, BillServiceGetBillProcedure, opts),
		updateBill:      newClient[UpdateBillRequest, BillResponse](httpClient, baseURL, BillServiceUpdateBillProcedure, opts),
		listBills:       newClient[ListBillsRequest, ListBillsResponse](httpClient, baseURL, BillServiceListBillsProcedure, opts),
		completeBill:    newClient[CompleteBillRequest, BillResponse](httpClient, baseURL, BillServiceCompleteBillProcedure, opts),
		deleteBill:      newClient[DeleteBillRequest, DeleteBillResponse](httpClient, baseURL, BillServiceDeleteBillProcedure, opts),
		registerPayment: newClient[RegisterPaymentRequest, PaymentResponse](httpClient, baseURL, BillServiceRegisterPaymentProcedure, opts),
		listPayments:    newClient[ListPaymentsRequest, ListPaymentsResponse](httpClient, baseURL, BillServiceListPaymentsProcedure, opts),
		getBillReport:   newClient[GetBillReportRequest, GetBillReportResponse](httpClient, baseURL, BillServiceGetBillReportProcedure, opts),
		getSummary:      newClient[GetSummaryRequest, GetSummaryResponse](httpClient, baseURL, BillServiceGetSummaryProcedure, opts),
		getSnapshot:     newClient[GetSnapshotRequest, GetSnapshotResponse](httpClient, baseURL, BillServiceGetSnapshotProcedure, opts),
	}
}

func (c *BillServiceClient) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[BillResponse], error) {
	return c.createBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetBill(ctx context.Context, req *connect.Request[GetBillRequest]) (*connect.Response[BillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) UpdateBill(ctx context.Context, req *connect.Request[UpdateBillRequest]) (*connect.Response[BillResponse], error) {
	return c.updateBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) ListBills(ctx context.Context, req *connect.Request[ListBillsRequest]) (*connect.Response[ListBillsResponse], error) {
	return c.listBills.CallUnary(ctx, req)
}

func (c *BillServiceClient) CompleteBill(ctx context.Context, req *connect.Request[CompleteBillRequest]) (*connect.Response[BillResponse], error) {
	return c.completeBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) DeleteBill(ctx context.Context, req *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error) {
	return c.deleteBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) RegisterPayment(ctx context.Context, req *connect.Request[RegisterPaymentRequest]) (*connect.Response[PaymentResponse], error) {
	return c.registerPayment.CallUnary(ctx, req)
}

func (c *BillServiceClient) ListPayments(ctx context.Context, req *connect.Request[ListPaymentsRequest]) (*connect.Response[ListPaymentsResponse], error) {
	return c.listPayments.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetBillReport(ctx context.Context, req *connect.Request[GetBillReportRequest]) (*connect.Response[GetBillReportResponse], error) {
	return c.getBillReport.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetSummary(ctx context.Context, req *connect.Request[GetSummaryRequest]) (*connect.Response[GetSummaryResponse], error) {
	return c.getSummary.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetSnapshot(ctx context.Context, req *connect.Request[GetSnapshotRequest]) (*connect.Response[GetSnapshotResponse], error) {
	return c.getSnapshot.CallUnary(ctx, req)
}
