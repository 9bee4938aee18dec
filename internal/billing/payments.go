package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
)

// PaymentInput describes money a participant paid against a bill.
type PaymentInput struct {
	BillID        string
	ParticipantID string
	Amount        float64
	Date          time.Time // zero means now
	Notes         string
}

// RegisterPayment records a payment. The bill must exist and list the
// participant (included or not), and the amount must be positive. Payments
// on completed bills are accepted.
func (s *Service) RegisterPayment(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	if !validAmount(in.Amount) {
		return nil, validationf("payment amount must be greater than 0, got %v", in.Amount)
	}

	bill, err := s.store.GetBill(ctx, in.BillID)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, validationf("unknown bill %q", in.BillID)
		}
		return nil, err
	}
	if !bill.HasParticipant(in.ParticipantID) {
		return nil, validationf("participant %q is not on bill %s", in.ParticipantID, in.BillID)
	}

	now := s.now()
	p := &models.Payment{
		ID:            s.newID(),
		BillID:        in.BillID,
		ParticipantID: in.ParticipantID,
		Amount:        in.Amount,
		Date:          in.Date,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now.Unix(),
	}
	if p.Date.IsZero() {
		p.Date = now.UTC()
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", translate(err))
	}

	s.metrics.PaymentsRegistered.Inc()
	s.metrics.AmountPaid.Add(p.Amount)
	s.logger.InfoContext(ctx, "Payment registered",
		"payment_id", p.ID,
		"bill_id", p.BillID,
		"participant_id", p.ParticipantID,
		"amount", p.Amount,
	)
	s.publish(ctx, events.Event{
		Type:          events.PaymentRegistered,
		BillID:        p.BillID,
		GroupID:       bill.GroupID,
		PaymentID:     p.ID,
		ParticipantID: p.ParticipantID,
		Amount:        p.Amount,
	})
	return p, nil
}

// GetPaymentsByBill returns every payment recorded against billID. A bill
// that does not exist, or no longer exists, has no payments.
func (s *Service) GetPaymentsByBill(ctx context.Context, billID string) ([]*models.Payment, error) {
	payments, err := s.store.ListPaymentsByBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}

// GetPaymentsByParticipant returns the payments participantID made against billID.
func (s *Service) GetPaymentsByParticipant(ctx context.Context, billID, participantID string) ([]*models.Payment, error) {
	payments, err := s.GetPaymentsByBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.ParticipantID == participantID {
			out = append(out, p)
		}
	}
	return out, nil
}

// TotalPaid sums what participantID has paid against billID; 0 if nothing.
func (s *Service) TotalPaid(ctx context.Context, billID, participantID string) (float64, error) {
	payments, err := s.GetPaymentsByBill(ctx, billID)
	if err != nil {
		return 0, err
	}
	return calculator.TotalPaid(payments, billID, participantID), nil
}
