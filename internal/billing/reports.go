package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
)

// Remaining returns participantID's share on billID minus what they paid.
func (s *Service) Remaining(ctx context.Context, billID, participantID string) (float64, error) {
	bill, payments, err := s.billWithPayments(ctx, billID)
	if err != nil {
		return 0, err
	}
	return calculator.Remaining(bill, payments, participantID), nil
}

// IsSettled reports whether participantID owes nothing more on billID.
func (s *Service) IsSettled(ctx context.Context, billID, participantID string) (bool, error) {
	bill, payments, err := s.billWithPayments(ctx, billID)
	if err != nil {
		return false, err
	}
	return calculator.IsSettled(bill, payments, participantID), nil
}

func (s *Service) billWithPayments(ctx context.Context, billID string) (*models.Bill, []*models.Payment, error) {
	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.store.ListPaymentsByBill(ctx, billID)
	if err != nil {
		return nil, nil, fmt.Errorf("list payments: %w", err)
	}
	return bill, payments, nil
}

// ParticipantReport is a participant's settlement status with their display name.
type ParticipantReport struct {
	calculator.ParticipantStatus
	Name string `json:"name"`
}

// BillReport is the full settlement picture of one bill.
type BillReport struct {
	Bill         *models.Bill          `json:"bill"`
	Participants []ParticipantReport   `json:"participants"`
	Payments     []*models.Payment     `json:"payments"`
	Allocation   calculator.Allocation `json:"allocation"`

	// TotalPaid is everything paid against the bill.
	TotalPaid float64 `json:"totalPaid"`
	// Outstanding is what included non-payers still owe the payer.
	Outstanding float64 `json:"outstanding"`
	// Settled is true once every included non-payer has paid their share.
	Settled bool `json:"settled"`
}

// BillReport computes the settlement report of billID.
func (s *Service) BillReport(ctx context.Context, billID string) (*BillReport, error) {
	bill, payments, err := s.billWithPayments(ctx, billID)
	if err != nil {
		return nil, err
	}

	statuses := calculator.SettlementStatuses(bill, payments)
	ids := make([]string, len(statuses))
	for i, st := range statuses {
		ids[i] = st.ParticipantID
	}
	names, err := s.ParticipantNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := &BillReport{
		Bill:         bill,
		Participants: make([]ParticipantReport, len(statuses)),
		Payments:     payments,
		Allocation:   calculator.CheckAllocation(bill),
		Settled:      true,
	}
	paid, outstanding := decimal.Zero, decimal.Zero
	for i, st := range statuses {
		report.Participants[i] = ParticipantReport{ParticipantStatus: st, Name: names[st.ParticipantID]}
		paid = paid.Add(decimal.NewFromFloat(st.Paid))
		if st.IsIncluded && !st.IsPayer && !st.Settled {
			outstanding = outstanding.Add(decimal.NewFromFloat(st.Remaining))
			report.Settled = false
		}
	}
	report.TotalPaid = paid.InexactFloat64()
	report.Outstanding = outstanding.InexactFloat64()
	return report, nil
}

// Summary aggregates what selfID is owed and owes across all active bills.
func (s *Service) Summary(ctx context.Context, selfID string) (calculator.Summary, error) {
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return calculator.Summary{}, fmt.Errorf("list bills: %w", err)
	}
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return calculator.Summary{}, fmt.Errorf("list payments: %w", err)
	}
	return calculator.Summarize(bills, payments, selfID), nil
}

// BillSnapshot is a bill with the computed position of each participant.
type BillSnapshot struct {
	Bill     *models.Bill                   `json:"bill"`
	Statuses []calculator.ParticipantStatus `json:"statuses"`
}

// Snapshot is a read-only export of the whole ledger at one point in time.
type Snapshot struct {
	GeneratedAt  time.Time             `json:"generatedAt"`
	Participants []*models.Participant `json:"participants"`
	Groups       []*models.Group       `json:"groups"`
	Bills        []BillSnapshot        `json:"bills"`
	Payments     []*models.Payment     `json:"payments"`
}

// Snapshot exports every participant, group, bill and payment together with
// each participant's share, paid and remaining amounts.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	byBill := make(map[string][]*models.Payment)
	for _, p := range payments {
		byBill[p.BillID] = append(byBill[p.BillID], p)
	}

	snap := &Snapshot{
		GeneratedAt:  s.now().UTC(),
		Participants: participants,
		Groups:       groups,
		Bills:        make([]BillSnapshot, len(bills)),
		Payments:     payments,
	}
	for i, b := range bills {
		snap.Bills[i] = BillSnapshot{
			Bill:     b,
			Statuses: calculator.SettlementStatuses(b, byBill[b.ID]),
		}
	}
	return snap, nil
}
