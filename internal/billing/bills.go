package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// BillInput carries the editable fields of a bill.
type BillInput struct {
	Name            string
	TotalAmount     float64
	Date            time.Time
	Category        string
	DivisionMethod  models.DivisionMethod
	GroupID         string
	PayerID         string
	ReceiptImageURL string

	// Participants is the bill's share list. When empty and GroupID is set,
	// the group's current members are copied in as included participants.
	Participants []models.ParticipantShare
}

// CreateBill validates in and stores a new active bill.
func (s *Service) CreateBill(ctx context.Context, in BillInput) (*models.Bill, error) {
	bill, err := s.buildBill(ctx, in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	bill.ID = s.newID()
	bill.Status = models.BillActive
	bill.CreatedAt = now.Unix()
	if bill.Date.IsZero() {
		bill.Date = now.UTC()
	}

	if err := s.store.CreateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("create bill: %w", translate(err))
	}

	s.metrics.BillsCreated.Inc()
	s.logger.InfoContext(ctx, "Bill created",
		"bill_id", bill.ID,
		"method", bill.DivisionMethod,
		"total", bill.TotalAmount,
		"participants", len(bill.Participants),
	)
	s.publish(ctx, events.Event{
		Type:    events.BillCreated,
		BillID:  bill.ID,
		GroupID: bill.GroupID,
		Amount:  bill.TotalAmount,
		Version: bill.Version,
	})
	return bill, nil
}

// UpdateBill replaces the editable fields of an active bill. expectedVersion
// must match the stored version; a stale edit fails with ErrConflict.
func (s *Service) UpdateBill(ctx context.Context, id string, in BillInput, expectedVersion int64) (*models.Bill, error) {
	current, err := s.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsActive() {
		return nil, fmt.Errorf("%w: bill %s is %s and can no longer be edited", ErrInvalidState, id, current.Status)
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: bill %s is at version %d, edit based on %d",
			ErrConflict, id, current.Version, expectedVersion)
	}

	bill, err := s.buildBill(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.checkPaidParticipantsKept(ctx, current, bill); err != nil {
		return nil, err
	}

	bill.ID = current.ID
	bill.Status = current.Status
	bill.CreatedAt = current.CreatedAt
	bill.Version = expectedVersion
	if bill.Date.IsZero() {
		bill.Date = current.Date
	}

	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("update bill: %w", translate(err))
	}

	s.metrics.BillsUpdated.Inc()
	s.logger.InfoContext(ctx, "Bill updated", "bill_id", bill.ID, "version", bill.Version)
	s.publish(ctx, events.Event{
		Type:    events.BillUpdated,
		BillID:  bill.ID,
		GroupID: bill.GroupID,
		Amount:  bill.TotalAmount,
		Version: bill.Version,
	})
	return bill, nil
}

// checkPaidParticipantsKept rejects edits that would drop a participant who
// already has payments on the bill; those payments would be orphaned.
func (s *Service) checkPaidParticipantsKept(ctx context.Context, current, next *models.Bill) error {
	payments, err := s.store.ListPaymentsByBill(ctx, current.ID)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	for _, p := range payments {
		if !next.HasParticipant(p.ParticipantID) {
			return validationf("participant %q has payments on this bill and cannot be removed", p.ParticipantID)
		}
	}
	return nil
}

// buildBill validates in and turns it into an unsaved bill.
func (s *Service) buildBill(ctx context.Context, in BillInput) (*models.Bill, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationf("bill name is required")
	}
	if !validAmount(in.TotalAmount) {
		return nil, validationf("total amount must be greater than 0, got %v", in.TotalAmount)
	}
	if !in.DivisionMethod.Valid() {
		return nil, validationf("unknown division method %q", in.DivisionMethod)
	}

	shares := in.Participants
	if in.GroupID != "" {
		group, err := s.store.GetGroup(ctx, in.GroupID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, validationf("unknown group %q", in.GroupID)
		}
		if err != nil {
			return nil, err
		}
		if len(shares) == 0 {
			shares = make([]models.ParticipantShare, len(group.Participants))
			for i, p := range group.Participants {
				shares[i] = models.ParticipantShare{ParticipantID: p.ID, IsIncluded: true}
			}
		}
	}

	bill := &models.Bill{
		Name:            name,
		TotalAmount:     in.TotalAmount,
		Date:            in.Date,
		Category:        strings.TrimSpace(in.Category),
		DivisionMethod:  in.DivisionMethod,
		GroupID:         in.GroupID,
		PayerID:         in.PayerID,
		ReceiptImageURL: strings.TrimSpace(in.ReceiptImageURL),
		Participants:    shares,
	}
	// Detach from the caller's slice and pointers.
	bill = bill.Clone()

	if err := validateShares(bill.Participants); err != nil {
		return nil, err
	}
	ids := make([]string, len(bill.Participants))
	for i, p := range bill.Participants {
		ids[i] = p.ParticipantID
	}
	if err := s.requireParticipants(ctx, ids); err != nil {
		return nil, err
	}

	if bill.PayerID == "" {
		return nil, validationf("payer is required")
	}
	if !bill.HasParticipant(bill.PayerID) {
		return nil, validationf("payer %q is not a participant of the bill", bill.PayerID)
	}
	return bill, nil
}

func validateShares(shares []models.ParticipantShare) error {
	if len(shares) == 0 {
		return validationf("a bill needs at least one participant")
	}

	seen := make(map[string]bool, len(shares))
	included := 0
	for _, sh := range shares {
		if sh.ParticipantID == "" {
			return validationf("participant id is required")
		}
		if seen[sh.ParticipantID] {
			return validationf("participant %q listed twice", sh.ParticipantID)
		}
		seen[sh.ParticipantID] = true
		if sh.IsIncluded {
			included++
		}

		if v, ok := value(sh.Amount); ok && (!finite(v) || v < 0) {
			return validationf("amount for %q must be >= 0, got %v", sh.ParticipantID, v)
		}
		if v, ok := value(sh.Percentage); ok && (!finite(v) || v < 0 || v > 100) {
			return validationf("percentage for %q must be between 0 and 100, got %v", sh.ParticipantID, v)
		}
		if v, ok := value(sh.Weight); ok && (!finite(v) || v < 0) {
			return validationf("weight for %q must be >= 0, got %v", sh.ParticipantID, v)
		}
	}
	if included == 0 {
		return validationf("a bill needs at least one included participant")
	}
	return nil
}

func value(f *float64) (float64, bool) {
	if f == nil {
		return 0, false
	}
	return *f, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validAmount(v float64) bool {
	return finite(v) && v > 0
}

// GetBill returns the bill with the given ID.
func (s *Service) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	bill, err := s.store.GetBill(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return bill, nil
}

// ListBills returns every bill, newest first.
func (s *Service) ListBills(ctx context.Context) ([]*models.Bill, error) {
	return s.store.ListBills(ctx)
}

// ListBillsByStatus returns the bills in status, or every bill when status is empty.
func (s *Service) ListBillsByStatus(ctx context.Context, status models.BillStatus) ([]*models.Bill, error) {
	if status != "" && status != models.BillActive && status != models.BillCompleted {
		return nil, validationf("unknown bill status %q", status)
	}
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return bills, nil
	}
	out := make([]*models.Bill, 0, len(bills))
	for _, b := range bills {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetActiveBills returns the bills that are still open.
func (s *Service) GetActiveBills(ctx context.Context) ([]*models.Bill, error) {
	return s.ListBillsByStatus(ctx, models.BillActive)
}

// GetCompletedBills returns the bills that have been completed.
func (s *Service) GetCompletedBills(ctx context.Context) ([]*models.Bill, error) {
	return s.ListBillsByStatus(ctx, models.BillCompleted)
}

// CompleteBill moves an active bill to completed. There is no way back, and
// completing an already completed bill fails with ErrInvalidState.
func (s *Service) CompleteBill(ctx context.Context, id string) (*models.Bill, error) {
	bill, err := s.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bill.IsActive() {
		return nil, fmt.Errorf("%w: bill %s is already %s", ErrInvalidState, id, bill.Status)
	}

	bill.Status = models.BillCompleted
	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("complete bill: %w", translate(err))
	}

	s.metrics.BillsCompleted.Inc()
	s.logger.InfoContext(ctx, "Bill completed", "bill_id", id)
	s.publish(ctx, events.Event{
		Type:    events.BillCompleted,
		BillID:  id,
		GroupID: bill.GroupID,
		Version: bill.Version,
	})
	return bill, nil
}

// DeleteBill removes a bill in any state together with all of its payments.
func (s *Service) DeleteBill(ctx context.Context, id string) error {
	bill, err := s.GetBill(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBill(ctx, id); err != nil {
		return translate(err)
	}

	s.metrics.BillsDeleted.Inc()
	s.logger.InfoContext(ctx, "Bill deleted", "bill_id", id)
	s.publish(ctx, events.Event{Type: events.BillDeleted, BillID: id, GroupID: bill.GroupID})
	return nil
}
