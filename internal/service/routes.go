package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// Fully-qualified service names.
const (
	AuthServiceName        = "splitledger.v1.AuthService"
	ParticipantServiceName = "splitledger.v1.ParticipantService"
	GroupServiceName       = "splitledger.v1.GroupService"
	BillServiceName        = "splitledger.v1.BillService"
)

// Procedure paths. Each is the HTTP path a unary call is POSTed to.
const (
	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceLogoutProcedure         = "/" + AuthServiceName + "/Logout"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"

	ParticipantServiceCreateParticipantProcedure = "/" + ParticipantServiceName + "/CreateParticipant"
	ParticipantServiceGetParticipantProcedure    = "/" + ParticipantServiceName + "/GetParticipant"
	ParticipantServiceListParticipantsProcedure  = "/" + ParticipantServiceName + "/ListParticipants"

	GroupServiceCreateGroupProcedure       = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure          = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure        = "/" + GroupServiceName + "/ListGroups"
	GroupServiceDeleteGroupProcedure       = "/" + GroupServiceName + "/DeleteGroup"
	GroupServiceAddGroupMemberProcedure    = "/" + GroupServiceName + "/AddGroupMember"
	GroupServiceRemoveGroupMemberProcedure = "/" + GroupServiceName + "/RemoveGroupMember"
	GroupServiceGetGroupBalancesProcedure  = "/" + GroupServiceName + "/GetGroupBalances"

	BillServiceCreateBillProcedure      = "/" + BillServiceName + "/CreateBill"
	BillServiceGetBillProcedure         = "/" + BillServiceName + "/GetBill"
	BillServiceUpdateBillProcedure      = "/" + BillServiceName + "/UpdateBill"
	BillServiceListBillsProcedure       = "/" + BillServiceName + "/ListBills"
	BillServiceCompleteBillProcedure    = "/" + BillServiceName + "/CompleteBill"
	BillServiceDeleteBillProcedure      = "/" + BillServiceName + "/DeleteBill"
	BillServiceRegisterPaymentProcedure = "/" + BillServiceName + "/RegisterPayment"
	BillServiceListPaymentsProcedure    = "/" + BillServiceName + "/ListPayments"
	BillServiceGetBillReportProcedure   = "/" + BillServiceName + "/GetBillReport"
	BillServiceGetSummaryProcedure      = "/" + BillServiceName + "/GetSummary"
	BillServiceGetSnapshotProcedure     = "/" + BillServiceName + "/GetSnapshot"
)

// serviceMux routes the procedures of one service.
type serviceMux map[string]http.Handler

func (m serviceMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, ok := m[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.ServeHTTP(w, r)
}

func unary[Req, Res any](
	m serviceMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	m[procedure] = connect.NewUnaryHandler(procedure, fn, opts...)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{codecOption}, opts...)
}

// NewAuthServiceHandler builds an HTTP handler for the AuthService. It returns
// the path prefix to mount it on.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	m := serviceMux{}
	unary(m, AuthServiceRegisterProcedure, svc.Register, opts)
	unary(m, AuthServiceLoginProcedure, svc.Login, opts)
	unary(m, AuthServiceLogoutProcedure, svc.Logout, opts)
	unary(m, AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts)
	return "/" + AuthServiceName + "/", m
}

// NewParticipantServiceHandler builds an HTTP handler for the ParticipantService.
func NewParticipantServiceHandler(svc *ParticipantService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	m := serviceMux{}
	unary(m, ParticipantServiceCreateParticipantProcedure, svc.CreateParticipant, opts)
	unary(m, ParticipantServiceGetParticipantProcedure, svc.GetParticipant, opts)
	unary(m, ParticipantServiceListParticipantsProcedure, svc.ListParticipants, opts)
	return "/" + ParticipantServiceName + "/", m
}

// NewGroupServiceHandler builds an HTTP handler for the GroupService.
func NewGroupServiceHandler(svc *GroupService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	m := serviceMux{}
	unary(m, GroupServiceCreateGroupProcedure, svc.CreateGroup, opts)
	unary(m, GroupServiceGetGroupProcedure, svc.GetGroup, opts)
	unary(m, GroupServiceListGroupsProcedure, svc.ListGroups, opts)
	unary(m, GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts)
	unary(m, GroupServiceAddGroupMemberProcedure, svc.AddGroupMember, opts)
	unary(m, GroupServiceRemoveGroupMemberProcedure, svc.RemoveGroupMember, opts)
	unary(m, GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts)
	return "/" + GroupServiceName + "/", m
}

// NewBillServiceHandler builds an HTTP handler for the BillService.
func NewBillServiceHandler(svc *BillService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	m := serviceMux{}
	unary(m, BillServiceCreateBillProcedure, svc.CreateBill, opts)
	unary(m, BillServiceGetBillProcedure, svc.GetBill, opts)
	unary(m, BillServiceUpdateBillProcedure, svc.UpdateBill, opts)
	unary(m, BillServiceListBillsProcedure, svc.ListBills, opts)
	unary(m, BillServiceCompleteBillProcedure, svc.CompleteBill, opts)
	unary(m, BillServiceDeleteBillProcedure, svc.DeleteBill, opts)
	unary(m, BillServiceRegisterPaymentProcedure, svc.RegisterPayment, opts)
	unary(m, BillServiceListPaymentsProcedure, svc.ListPayments, opts)
	unary(m, BillServiceGetBillReportProcedure, svc.GetBillReport, opts)
	unary(m, BillServiceGetSummaryProcedure, svc.GetSummary, opts)
	unary(m, BillServiceGetSnapshotProcedure, svc.GetSnapshot, opts)
	return "/" + BillServiceName + "/", m
}
