package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/billing"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/middleware"
)

// BillService implements the BillService RPC interface: the bill lifecycle,
// the payment ledger and reconciliation queries.
type BillService struct {
	ledger *billing.Service
	logger *slog.Logger
}

// NewBillService creates a new BillService on top of the ledger.
func NewBillService(ledger *billing.Service, logger *slog.Logger) *BillService {
	return &BillService{ledger: ledger, logger: logger}
}

// callerID returns the authenticated user, who is also a participant.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// CreateBill validates and stores a new bill. The payer defaults to the caller.
func (s *BillService) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[BillResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("CreateBill request received",
		"name", req.Msg.Name,
		"total", req.Msg.TotalAmount,
		"method", req.Msg.DivisionMethod,
		"participants", len(req.Msg.Participants),
		"group_id", req.Msg.GroupID,
	)

	bill, err := s.ledger.CreateBill(ctx, req.Msg.input(userID))
	if err != nil {
		s.logger.Error("CreateBill failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toBillResponse(bill)), nil
}

// GetBill retrieves a bill by ID together with the computed shares.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[GetBillRequest]) (*connect.Response[BillResponse], error) {
	bill, err := s.ledger.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		s.logger.Error("GetBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toBillResponse(bill)), nil
}

// UpdateBill edits an active bill. A stale version fails with CodeAborted.
func (s *BillService) UpdateBill(ctx context.Context, req *connect.Request[UpdateBillRequest]) (*connect.Response[BillResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("UpdateBill request received", "bill_id", req.Msg.BillID, "version", req.Msg.Version)

	bill, err := s.ledger.UpdateBill(ctx, req.Msg.BillID, req.Msg.input(userID), req.Msg.Version)
	if err != nil {
		s.logger.Error("UpdateBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toBillResponse(bill)), nil
}

// ListBills lists bills, optionally only those in one status.
func (s *BillService) ListBills(ctx context.Context, req *connect.Request[ListBillsRequest]) (*connect.Response[ListBillsResponse], error) {
	bills, err := s.ledger.ListBillsByStatus(ctx, req.Msg.Status)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Debug("ListBills successful", "status", req.Msg.Status, "count", len(bills))
	return connect.NewResponse(&ListBillsResponse{Bills: bills}), nil
}

// CompleteBill moves an active bill to completed.
func (s *BillService) CompleteBill(ctx context.Context, req *connect.Request[CompleteBillRequest]) (*connect.Response[BillResponse], error) {
	bill, err := s.ledger.CompleteBill(ctx, req.Msg.BillID)
	if err != nil {
		s.logger.Warn("CompleteBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toBillResponse(bill)), nil
}

// DeleteBill removes a bill and its payments.
func (s *BillService) DeleteBill(ctx context.Context, req *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error) {
	if err := s.ledger.DeleteBill(ctx, req.Msg.BillID); err != nil {
		s.logger.Error("DeleteBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteBillResponse{}), nil
}

// RegisterPayment records a payment. The participant defaults to the caller.
func (s *BillService) RegisterPayment(ctx context.Context, req *connect.Request[RegisterPaymentRequest]) (*connect.Response[PaymentResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	participantID := req.Msg.ParticipantID
	if participantID == "" {
		participantID = userID
	}

	payment, err := s.ledger.RegisterPayment(ctx, billing.PaymentInput{
		BillID:        req.Msg.BillID,
		ParticipantID: participantID,
		Amount:        req.Msg.Amount,
		Date:          req.Msg.Date,
		Notes:         req.Msg.Notes,
	})
	if err != nil {
		s.logger.Error("RegisterPayment failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}

	// The payment is stored at this point; a failed balance lookup only leaves
	// Remaining and Settled unset.
	resp := &PaymentResponse{Payment: payment}
	remaining, err := s.ledger.Remaining(ctx, payment.BillID, participantID)
	if err != nil {
		s.logger.Warn("Remaining unavailable after payment",
			"bill_id", payment.BillID,
			"payment_id", payment.ID,
			"error", err,
		)
		return connect.NewResponse(resp), nil
	}
	settled := remaining <= 0
	resp.Remaining = &remaining
	resp.Settled = &settled
	return connect.NewResponse(resp), nil
}

// ListPayments lists the payments on a bill, optionally for one participant.
func (s *BillService) ListPayments(ctx context.Context, req *connect.Request[ListPaymentsRequest]) (*connect.Response[ListPaymentsResponse], error) {
	var (
		resp = &ListPaymentsResponse{}
		err  error
	)
	if req.Msg.ParticipantID != "" {
		resp.Payments, err = s.ledger.GetPaymentsByParticipant(ctx, req.Msg.BillID, req.Msg.ParticipantID)
	} else {
		resp.Payments, err = s.ledger.GetPaymentsByBill(ctx, req.Msg.BillID)
	}
	if err != nil {
		return nil, toConnectError(err)
	}

	resp.TotalPaid = calculator.SumPayments(resp.Payments)
	return connect.NewResponse(resp), nil
}

// GetBillReport returns the settlement report of a bill.
func (s *BillService) GetBillReport(ctx context.Context, req *connect.Request[GetBillReportRequest]) (*connect.Response[GetBillReportResponse], error) {
	report, err := s.ledger.BillReport(ctx, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !report.Allocation.Balanced {
		s.logger.Warn("Bill allocation does not match its total",
			"bill_id", req.Msg.BillID,
			"method", report.Allocation.Method,
			"difference", report.Allocation.Difference,
		)
	}
	return connect.NewResponse(&GetBillReportResponse{Report: report}), nil
}

// GetSummary returns what a participant is owed and owes across active bills.
func (s *BillService) GetSummary(ctx context.Context, req *connect.Request[GetSummaryRequest]) (*connect.Response[GetSummaryResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	participantID := req.Msg.ParticipantID
	if participantID == "" {
		participantID = userID
	}

	summary, err := s.ledger.Summary(ctx, participantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetSummaryResponse{ParticipantID: participantID, Summary: summary}), nil
}

// GetSnapshot exports the whole ledger with computed balances.
func (s *BillService) GetSnapshot(ctx context.Context, req *connect.Request[GetSnapshotRequest]) (*connect.Response[GetSnapshotResponse], error) {
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetSnapshotResponse{Snapshot: snap}), nil
}
