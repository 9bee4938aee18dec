package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

const tolerance = 0.001

// recordingPublisher keeps every published event. When fail is set, Publish
// returns an error after recording.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	if p.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	svc       *Service
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	pub := &recordingPublisher{}
	m := metrics.New()
	next := 0
	svc := NewService(memory.New(),
		WithPublisher(pub),
		WithMetrics(m),
		WithClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string {
			next++
			return fmt.Sprintf("id-%d", next)
		}),
	)
	return &testEnv{svc: svc, publisher: pub, metrics: m}
}

func (e *testEnv) participants(t *testing.T, names ...string) []string {
	t.Helper()
	ids := make([]string, len(names))
	for i, name := range names {
		p, err := e.svc.CreateParticipant(context.Background(), name, "")
		if err != nil {
			t.Fatalf("CreateParticipant(%s) failed: %v", name, err)
		}
		ids[i] = p.ID
	}
	return ids
}

func included(ids ...string) []models.ParticipantShare {
	shares := make([]models.ParticipantShare, len(ids))
	for i, id := range ids {
		shares[i] = models.ParticipantShare{ParticipantID: id, IsIncluded: true}
	}
	return shares
}

func assertAmount(t *testing.T, what string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s = %.2f, want %.2f", what, got, want)
	}
}

func TestScenario_EqualSplit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B", "C")

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name:           "Groceries",
		TotalAmount:    300,
		DivisionMethod: models.DivisionEqual,
		PayerID:        ids[0],
		Participants:   included(ids...),
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	for _, id := range ids {
		remaining, err := env.svc.Remaining(ctx, bill.ID, id)
		if err != nil {
			t.Fatalf("Remaining failed: %v", err)
		}
		assertAmount(t, "share of "+id, remaining, 100)
	}
}

func TestScenario_PercentageSplit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B")

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name:           "Dinner",
		TotalAmount:    100,
		DivisionMethod: models.DivisionPercentage,
		PayerID:        ids[0],
		Participants: []models.ParticipantShare{
			{ParticipantID: ids[0], IsIncluded: true, Percentage: models.Float(60)},
			{ParticipantID: ids[1], IsIncluded: true, Percentage: models.Float(40)},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	report, err := env.svc.BillReport(ctx, bill.ID)
	if err != nil {
		t.Fatalf("BillReport failed: %v", err)
	}
	assertAmount(t, "A share", report.Participants[0].Share, 60)
	assertAmount(t, "B share", report.Participants[1].Share, 40)
	if !report.Allocation.Balanced {
		t.Errorf("60/40 percentages should be balanced: %+v", report.Allocation)
	}
	if report.Participants[0].Name != "A" {
		t.Errorf("Name = %q, want A", report.Participants[0].Name)
	}
}

func TestScenario_WeightSplitAndSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B")
	a, b := ids[0], ids[1]

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name:           "Taxi",
		TotalAmount:    90,
		DivisionMethod: models.DivisionWeight,
		PayerID:        b,
		Participants: []models.ParticipantShare{
			{ParticipantID: a, IsIncluded: true, Weight: models.Float(1)},
			{ParticipantID: b, IsIncluded: true, Weight: models.Float(2)},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	remA, _ := env.svc.Remaining(ctx, bill.ID, a)
	remB, _ := env.svc.Remaining(ctx, bill.ID, b)
	assertAmount(t, "A share", remA, 30)
	assertAmount(t, "B share", remB, 60)

	if _, err := env.svc.RegisterPayment(ctx, PaymentInput{BillID: bill.ID, ParticipantID: a, Amount: 30}); err != nil {
		t.Fatalf("RegisterPayment failed: %v", err)
	}

	remA, err = env.svc.Remaining(ctx, bill.ID, a)
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if remA != 0 {
		t.Errorf("remaining after paying the exact share = %v, want exactly 0", remA)
	}
	settled, err := env.svc.IsSettled(ctx, bill.ID, a)
	if err != nil {
		t.Fatalf("IsSettled failed: %v", err)
	}
	if !settled {
		t.Error("expected A to be settled")
	}

	// Deleting the bill takes its payments with it.
	if err := env.svc.DeleteBill(ctx, bill.ID); err != nil {
		t.Fatalf("DeleteBill failed: %v", err)
	}
	payments, err := env.svc.GetPaymentsByBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetPaymentsByBill failed: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("expected no payments after deleting the bill, got %d", len(payments))
	}
	if _, err := env.svc.GetBill(ctx, bill.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBill after delete = %v, want ErrNotFound", err)
	}
}

func TestFixedMismatchIsAcceptedAndFlagged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B")

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name:           "Concert",
		TotalAmount:    100,
		DivisionMethod: models.DivisionFixed,
		PayerID:        ids[0],
		Participants: []models.ParticipantShare{
			{ParticipantID: ids[0], IsIncluded: true, Amount: models.Float(30)},
			{ParticipantID: ids[1], IsIncluded: true, Amount: models.Float(50)},
		},
	})
	if err != nil {
		t.Fatalf("mismatched fixed amounts must be accepted, got %v", err)
	}

	report, err := env.svc.BillReport(ctx, bill.ID)
	if err != nil {
		t.Fatalf("BillReport failed: %v", err)
	}
	if report.Allocation.Balanced {
		t.Errorf("expected allocation to be flagged: %+v", report.Allocation)
	}
	assertAmount(t, "difference", report.Allocation.Difference, -20)
	assertAmount(t, "B share", report.Participants[1].Share, 50)
}

func TestCreateBill_Validation(t *testing.T) {
	env := newTestEnv(t)
	ids := env.participants(t, "A", "B")
	a, b := ids[0], ids[1]

	valid := func() BillInput {
		return BillInput{
			Name:           "Lunch",
			TotalAmount:    50,
			DivisionMethod: models.DivisionEqual,
			PayerID:        a,
			Participants:   included(a, b),
		}
	}

	tests := []struct {
		name   string
		mutate func(in *BillInput)
	}{
		{"empty name", func(in *BillInput) { in.Name = "   " }},
		{"zero total", func(in *BillInput) { in.TotalAmount = 0 }},
		{"negative total", func(in *BillInput) { in.TotalAmount = -10 }},
		{"NaN total", func(in *BillInput) { in.TotalAmount = math.NaN() }},
		{"unknown method", func(in *BillInput) { in.DivisionMethod = "random" }},
		{"no participants", func(in *BillInput) { in.Participants = nil }},
		{"nobody included", func(in *BillInput) {
			in.Participants = []models.ParticipantShare{{ParticipantID: a}, {ParticipantID: b}}
		}},
		{"duplicate participant", func(in *BillInput) { in.Participants = included(a, a) }},
		{"unknown participant", func(in *BillInput) { in.Participants = included(a, "ghost") }},
		{"missing payer", func(in *BillInput) { in.PayerID = "" }},
		{"payer not on bill", func(in *BillInput) { in.Participants = included(b) }},
		{"negative weight", func(in *BillInput) {
			in.DivisionMethod = models.DivisionWeight
			in.Participants[0].Weight = models.Float(-1)
		}},
		{"percentage over 100", func(in *BillInput) {
			in.DivisionMethod = models.DivisionPercentage
			in.Participants[0].Percentage = models.Float(120)
		}},
		{"negative fixed amount", func(in *BillInput) {
			in.DivisionMethod = models.DivisionFixed
			in.Participants[0].Amount = models.Float(-5)
		}},
		{"unknown group", func(in *BillInput) { in.GroupID = "nope" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := env.svc.CreateBill(context.Background(), in)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("CreateBill = %v, want ErrValidation", err)
			}
		})
	}

	bills, _ := env.svc.ListBills(context.Background())
	if len(bills) != 0 {
		t.Errorf("rejected bills must not be stored, found %d", len(bills))
	}
}

func TestCreateBill_ZeroWeightsAccepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B")

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name:           "Gift",
		TotalAmount:    40,
		DivisionMethod: models.DivisionWeight,
		PayerID:        ids[0],
		Participants: []models.ParticipantShare{
			{ParticipantID: ids[0], IsIncluded: true, Weight: models.Float(0)},
			{ParticipantID: ids[1], IsIncluded: true, Weight: models.Float(0)},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	rem, _ := env.svc.Remaining(ctx, bill.ID, ids[1])
	if rem != 0 {
		t.Errorf("share with all-zero weights = %v, want 0", rem)
	}
}

func TestCreateBill_FromGroupSnapshotsMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B", "C")
	a, b, c := ids[0], ids[1], ids[2]

	group, err := env.svc.CreateGroup(ctx, "Flat", []string{a, b, a})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if len(group.Participants) != 2 {
		t.Fatalf("duplicate member not collapsed: %v", group.MemberIDs())
	}

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name:           "Rent",
		TotalAmount:    1000,
		DivisionMethod: models.DivisionEqual,
		GroupID:        group.ID,
		PayerID:        a,
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if len(bill.Participants) != 2 || !bill.Participants[0].IsIncluded || !bill.Participants[1].IsIncluded {
		t.Fatalf("expected both members included, got %+v", bill.Participants)
	}

	if _, err := env.svc.AddParticipantToGroup(ctx, group.ID, c); err != nil {
		t.Fatalf("AddParticipantToGroup failed: %v", err)
	}
	if _, err := env.svc.RemoveParticipantFromGroup(ctx, group.ID, b); err != nil {
		t.Fatalf("RemoveParticipantFromGroup failed: %v", err)
	}

	got, err := env.svc.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if len(got.Participants) != 2 || got.HasParticipant(c) || !got.HasParticipant(b) {
		t.Errorf("group edits leaked into the bill: %+v", got.Participants)
	}

	if err := env.svc.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	got, err = env.svc.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("bill must survive its group: %v", err)
	}
	if got.GroupID != "" {
		t.Errorf("GroupID = %q, want cleared", got.GroupID)
	}
	if _, err := env.svc.GetParticipant(ctx, b); err != nil {
		t.Errorf("participants must survive group deletion: %v", err)
	}
}

func TestCreateBill_ReturnsDetachedCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B")

	shares := included(ids...)
	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Snacks", TotalAmount: 10, DivisionMethod: models.DivisionEqual,
		PayerID: ids[0], Participants: shares,
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	shares[1].IsIncluded = false
	bill.Participants[0].IsIncluded = false

	got, _ := env.svc.GetBill(ctx, bill.ID)
	if !got.Participants[0].IsIncluded || !got.Participants[1].IsIncluded {
		t.Errorf("stored bill changed through caller-held values: %+v", got.Participants)
	}
}

func TestRegisterPayment_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B", "C", "D")
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Dinner", TotalAmount: 90, DivisionMethod: models.DivisionEqual, PayerID: a,
		Participants: []models.ParticipantShare{
			{ParticipantID: a, IsIncluded: true},
			{ParticipantID: b, IsIncluded: true},
			{ParticipantID: c, IsIncluded: false},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	tests := []struct {
		name string
		in   PaymentInput
	}{
		{"zero amount", PaymentInput{BillID: bill.ID, ParticipantID: b, Amount: 0}},
		{"negative amount", PaymentInput{BillID: bill.ID, ParticipantID: b, Amount: -1}},
		{"infinite amount", PaymentInput{BillID: bill.ID, ParticipantID: b, Amount: math.Inf(1)}},
		{"unknown bill", PaymentInput{BillID: "missing", ParticipantID: b, Amount: 10}},
		{"participant not on bill", PaymentInput{BillID: bill.ID, ParticipantID: d, Amount: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.RegisterPayment(ctx, tt.in); !errors.Is(err, ErrValidation) {
				t.Errorf("RegisterPayment = %v, want ErrValidation", err)
			}
		})
	}

	// Excluded participants are still on the bill and may pay.
	p, err := env.svc.RegisterPayment(ctx, PaymentInput{BillID: bill.ID, ParticipantID: c, Amount: 5, Notes: " cash "})
	if err != nil {
		t.Fatalf("payment by excluded participant rejected: %v", err)
	}
	if p.Notes != "cash" || p.Date.IsZero() {
		t.Errorf("payment not normalized: %+v", p)
	}
	rem, _ := env.svc.Remaining(ctx, bill.ID, c)
	assertAmount(t, "excluded participant remaining", rem, -5)

	total, err := env.svc.TotalPaid(ctx, bill.ID, b)
	if err != nil {
		t.Fatalf("TotalPaid failed: %v", err)
	}
	if total != 0 {
		t.Errorf("TotalPaid with no payments = %v, want 0", total)
	}
}

// racingEditStore runs onGetBill once, after GetBill has read the bill, so an
// edit can land between a payment's membership check and its write.
type racingEditStore struct {
	*memory.Store
	onGetBill func()
}

func (s *racingEditStore) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	bill, err := s.Store.GetBill(ctx, id)
	if f := s.onGetBill; f != nil {
		s.onGetBill = nil
		f()
	}
	return bill, err
}

func TestRegisterPayment_ParticipantRemovedConcurrently(t *testing.T) {
	store := &racingEditStore{Store: memory.New()}
	svc := NewService(store)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"A", "B"} {
		p, err := svc.CreateParticipant(ctx, name, "")
		if err != nil {
			t.Fatalf("CreateParticipant(%s) failed: %v", name, err)
		}
		ids = append(ids, p.ID)
	}
	bill, err := svc.CreateBill(ctx, BillInput{
		Name:           "Pizza",
		TotalAmount:    40,
		DivisionMethod: models.DivisionEqual,
		PayerID:        ids[0],
		Participants:   included(ids...),
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	store.onGetBill = func() {
		edited, err := store.Store.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		edited.Participants = edited.Participants[:1]
		if err := store.Store.UpdateBill(ctx, edited); err != nil {
			t.Fatalf("UpdateBill failed: %v", err)
		}
	}

	_, err = svc.RegisterPayment(ctx, PaymentInput{BillID: bill.ID, ParticipantID: ids[1], Amount: 20})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("RegisterPayment after removal = %v, want ErrConflict", err)
	}
	payments, err := svc.GetPaymentsByBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetPaymentsByBill failed: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("expected no stored payment, got %+v", payments)
	}
}

func TestPaymentsByParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B", "C")

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Trip", TotalAmount: 300, DivisionMethod: models.DivisionEqual, PayerID: ids[0],
		Participants: included(ids...),
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	for _, pay := range []PaymentInput{
		{BillID: bill.ID, ParticipantID: ids[1], Amount: 40},
		{BillID: bill.ID, ParticipantID: ids[1], Amount: 60},
		{BillID: bill.ID, ParticipantID: ids[2], Amount: 25},
	} {
		if _, err := env.svc.RegisterPayment(ctx, pay); err != nil {
			t.Fatalf("RegisterPayment failed: %v", err)
		}
	}

	byB, err := env.svc.GetPaymentsByParticipant(ctx, bill.ID, ids[1])
	if err != nil {
		t.Fatalf("GetPaymentsByParticipant failed: %v", err)
	}
	if len(byB) != 2 {
		t.Errorf("expected 2 payments for B, got %d", len(byB))
	}

	total, _ := env.svc.TotalPaid(ctx, bill.ID, ids[1])
	assertAmount(t, "B paid", total, 100)
	settled, _ := env.svc.IsSettled(ctx, bill.ID, ids[1])
	if !settled {
		t.Error("B paid the full share and should be settled")
	}
	settled, _ = env.svc.IsSettled(ctx, bill.ID, ids[2])
	if settled {
		t.Error("C paid 25 of 100 and should not be settled")
	}

	report, err := env.svc.BillReport(ctx, bill.ID)
	if err != nil {
		t.Fatalf("BillReport failed: %v", err)
	}
	assertAmount(t, "total paid", report.TotalPaid, 125)
	assertAmount(t, "outstanding", report.Outstanding, 75)
	if report.Settled {
		t.Error("bill with outstanding debt reported as settled")
	}
}

func TestLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B")

	newBill := func(name string) *models.Bill {
		b, err := env.svc.CreateBill(ctx, BillInput{
			Name: name, TotalAmount: 20, DivisionMethod: models.DivisionEqual,
			PayerID: ids[0], Participants: included(ids...),
		})
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		return b
	}
	first, second := newBill("first"), newBill("second")
	newBill("third")

	if first.Status != models.BillActive {
		t.Errorf("new bill status = %s, want active", first.Status)
	}

	completed, err := env.svc.CompleteBill(ctx, second.ID)
	if err != nil {
		t.Fatalf("CompleteBill failed: %v", err)
	}
	if completed.Status != models.BillCompleted {
		t.Errorf("status = %s, want completed", completed.Status)
	}

	if _, err := env.svc.CompleteBill(ctx, second.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second CompleteBill = %v, want ErrInvalidState", err)
	}
	if _, err := env.svc.CompleteBill(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteBill(missing) = %v, want ErrNotFound", err)
	}

	_, err = env.svc.UpdateBill(ctx, second.ID, BillInput{
		Name: "renamed", TotalAmount: 20, DivisionMethod: models.DivisionEqual,
		PayerID: ids[0], Participants: included(ids...),
	}, completed.Version)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("UpdateBill on completed bill = %v, want ErrInvalidState", err)
	}

	// Late payments on completed bills are still recorded.
	if _, err := env.svc.RegisterPayment(ctx, PaymentInput{BillID: second.ID, ParticipantID: ids[1], Amount: 10}); err != nil {
		t.Errorf("payment on completed bill rejected: %v", err)
	}

	active, _ := env.svc.GetActiveBills(ctx)
	done, _ := env.svc.GetCompletedBills(ctx)
	all, _ := env.svc.ListBills(ctx)
	if len(active)+len(done) != len(all) {
		t.Errorf("active (%d) + completed (%d) != all (%d)", len(active), len(done), len(all))
	}
	if len(done) != 1 || done[0].ID != second.ID {
		t.Errorf("completed bills = %v, want only %s", done, second.ID)
	}
	for _, b := range active {
		if b.ID == second.ID {
			t.Error("completed bill listed as active")
		}
	}

	if err := env.svc.DeleteBill(ctx, second.ID); err != nil {
		t.Errorf("completed bills must be deletable: %v", err)
	}
	if err := env.svc.DeleteBill(ctx, second.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteBill = %v, want ErrNotFound", err)
	}

	if _, err := env.svc.ListBillsByStatus(ctx, "archived"); !errors.Is(err, ErrValidation) {
		t.Errorf("ListBillsByStatus(archived) = %v, want ErrValidation", err)
	}
}

func TestUpdateBill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B", "C")
	a, b, c := ids[0], ids[1], ids[2]

	bill, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Pizza", TotalAmount: 60, DivisionMethod: models.DivisionEqual,
		PayerID: a, Participants: included(a, b, c),
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if _, err := env.svc.RegisterPayment(ctx, PaymentInput{BillID: bill.ID, ParticipantID: b, Amount: 20}); err != nil {
		t.Fatalf("RegisterPayment failed: %v", err)
	}

	updated, err := env.svc.UpdateBill(ctx, bill.ID, BillInput{
		Name: "Pizza and drinks", TotalAmount: 90, DivisionMethod: models.DivisionEqual,
		PayerID: a, Participants: included(a, b, c),
	}, bill.Version)
	if err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}
	if updated.Version != bill.Version+1 {
		t.Errorf("Version = %d, want %d", updated.Version, bill.Version+1)
	}
	if !updated.Date.Equal(bill.Date) {
		t.Errorf("omitted date should keep the stored date: got %v, want %v", updated.Date, bill.Date)
	}
	rem, _ := env.svc.Remaining(ctx, bill.ID, b)
	assertAmount(t, "B remaining after total change", rem, 10)

	_, err = env.svc.UpdateBill(ctx, bill.ID, BillInput{
		Name: "stale", TotalAmount: 90, DivisionMethod: models.DivisionEqual,
		PayerID: a, Participants: included(a, b, c),
	}, bill.Version)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("stale UpdateBill = %v, want ErrConflict", err)
	}

	_, err = env.svc.UpdateBill(ctx, bill.ID, BillInput{
		Name: "without B", TotalAmount: 90, DivisionMethod: models.DivisionEqual,
		PayerID: a, Participants: included(a, c),
	}, updated.Version)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("dropping a participant with payments = %v, want ErrValidation", err)
	}

	// Excluding instead of removing keeps the payment attached.
	shares := included(a, b, c)
	shares[1].IsIncluded = false
	excluded, err := env.svc.UpdateBill(ctx, bill.ID, BillInput{
		Name: "B excluded", TotalAmount: 90, DivisionMethod: models.DivisionEqual,
		PayerID: a, Participants: shares,
	}, updated.Version)
	if err != nil {
		t.Fatalf("UpdateBill excluding B failed: %v", err)
	}
	rem, _ = env.svc.Remaining(ctx, excluded.ID, c)
	assertAmount(t, "C remaining with two included", rem, 45)

	if _, err := env.svc.UpdateBill(ctx, "missing", BillInput{}, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateBill(missing) = %v, want ErrNotFound", err)
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "Me", "Ana", "Ben")
	me, ana, ben := ids[0], ids[1], ids[2]

	// I paid 90 split three ways: Ana and Ben owe me 30 each.
	mine, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Dinner", TotalAmount: 90, DivisionMethod: models.DivisionEqual,
		PayerID: me, Participants: included(me, ana, ben),
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	// Ana overpays; that must not offset Ben's debt.
	env.svc.RegisterPayment(ctx, PaymentInput{BillID: mine.ID, ParticipantID: ana, Amount: 50})

	// Ben paid 40 split with me: I owe 20.
	if _, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Taxi", TotalAmount: 40, DivisionMethod: models.DivisionEqual,
		PayerID: ben, Participants: included(me, ben),
	}); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	// Completed bills are ignored.
	old, _ := env.svc.CreateBill(ctx, BillInput{
		Name: "Old", TotalAmount: 500, DivisionMethod: models.DivisionEqual,
		PayerID: ana, Participants: included(me, ana),
	})
	if _, err := env.svc.CompleteBill(ctx, old.ID); err != nil {
		t.Fatalf("CompleteBill failed: %v", err)
	}

	summary, err := env.svc.Summary(ctx, me)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	assertAmount(t, "to receive", summary.TotalToReceive, 30)
	assertAmount(t, "to pay", summary.TotalToPay, 20)
	assertAmount(t, "balance", summary.Balance, 10)
}

func TestGroupBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B", "C")
	a, b, c := ids[0], ids[1], ids[2]

	group, err := env.svc.CreateGroup(ctx, "Trip", ids)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if _, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Hotel", TotalAmount: 300, DivisionMethod: models.DivisionEqual,
		GroupID: group.ID, PayerID: a,
	}); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if _, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Food", TotalAmount: 60, DivisionMethod: models.DivisionEqual,
		GroupID: group.ID, PayerID: b,
	}); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	report, err := env.svc.GroupBalances(ctx, group.ID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}

	net := make(map[string]float64)
	for _, mb := range report.Balances {
		net[mb.ParticipantID] = mb.NetBalance
	}
	// A is owed 200 and owes 20; B is owed 40 and owes 100; C owes 120.
	assertAmount(t, "A net", net[a], 180)
	assertAmount(t, "B net", net[b], -60)
	assertAmount(t, "C net", net[c], -120)

	var owedToA float64
	for _, d := range report.Debts {
		if d.To == a {
			owedToA += d.Amount
		}
	}
	assertAmount(t, "debts settled towards A", owedToA, 180)

	if _, err := env.svc.GroupBalances(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GroupBalances(missing) = %v, want ErrNotFound", err)
	}
}

func TestGroups_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A")

	if _, err := env.svc.CreateGroup(ctx, " ", ids); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateGroup(empty name) = %v, want ErrValidation", err)
	}
	if _, err := env.svc.CreateGroup(ctx, "Ghosts", []string{"ghost"}); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateGroup(unknown participant) = %v, want ErrValidation", err)
	}
	if _, err := env.svc.GetGroup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGroup(missing) = %v, want ErrNotFound", err)
	}
	if err := env.svc.DeleteGroup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteGroup(missing) = %v, want ErrNotFound", err)
	}
	if _, err := env.svc.AddParticipantToGroup(ctx, "missing", ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddParticipantToGroup(missing group) = %v, want ErrNotFound", err)
	}

	g, err := env.svc.CreateGroup(ctx, "Flat", ids)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if _, err := env.svc.AddParticipantToGroup(ctx, g.ID, "ghost"); !errors.Is(err, ErrValidation) {
		t.Errorf("AddParticipantToGroup(unknown participant) = %v, want ErrValidation", err)
	}
	if _, err := env.svc.AddParticipantToGroup(ctx, "missing", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddParticipantToGroup(missing group, unknown participant) = %v, want ErrNotFound", err)
	}
	got, err := env.svc.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(got.Participants) != 1 {
		t.Errorf("members = %d after rejected add, want 1", len(got.Participants))
	}
}

func TestParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.CreateParticipant(ctx, "  ", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateParticipant(blank) = %v, want ErrValidation", err)
	}

	p, err := env.svc.CreateParticipant(ctx, " Maria ", "+55 11 5555-0000")
	if err != nil {
		t.Fatalf("CreateParticipant failed: %v", err)
	}
	if p.Name != "Maria" {
		t.Errorf("Name = %q, want trimmed", p.Name)
	}

	mirrored, err := env.svc.EnsureParticipant(ctx, "user-42", "Jo")
	if err != nil {
		t.Fatalf("EnsureParticipant failed: %v", err)
	}
	again, err := env.svc.EnsureParticipant(ctx, "user-42", "Someone else")
	if err != nil {
		t.Fatalf("second EnsureParticipant failed: %v", err)
	}
	if again.Name != mirrored.Name {
		t.Errorf("EnsureParticipant overwrote an existing participant: %q", again.Name)
	}

	names, err := env.svc.ParticipantNames(ctx, []string{p.ID, "gone"})
	if err != nil {
		t.Fatalf("ParticipantNames failed: %v", err)
	}
	if names[p.ID] != "Maria" || names["gone"] != models.UnknownParticipantName {
		t.Errorf("ParticipantNames = %v", names)
	}

	list, _ := env.svc.ListParticipants(ctx)
	if len(list) != 2 {
		t.Errorf("expected 2 participants, got %d", len(list))
	}
	if _, err := env.svc.GetParticipant(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetParticipant(nobody) = %v, want ErrNotFound", err)
	}
}

func TestEventsAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B")

	group, _ := env.svc.CreateGroup(ctx, "G", ids)
	bill, _ := env.svc.CreateBill(ctx, BillInput{
		Name: "X", TotalAmount: 10, DivisionMethod: models.DivisionEqual,
		GroupID: group.ID, PayerID: ids[0],
	})
	env.svc.RegisterPayment(ctx, PaymentInput{BillID: bill.ID, ParticipantID: ids[1], Amount: 5})
	env.svc.CompleteBill(ctx, bill.ID)
	env.svc.DeleteBill(ctx, bill.ID)
	env.svc.DeleteGroup(ctx, group.ID)

	want := []events.Type{
		events.GroupCreated,
		events.BillCreated,
		events.PaymentRegistered,
		events.BillCompleted,
		events.BillDeleted,
		events.GroupDeleted,
	}
	got := env.publisher.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if e := env.publisher.events[2]; e.BillID != bill.ID || e.Amount != 5 || e.ID == "" {
		t.Errorf("payment event = %+v", e)
	}

	if v := testutil.ToFloat64(env.metrics.BillsCreated); v != 1 {
		t.Errorf("bills_created_total = %v, want 1", v)
	}
	if v := testutil.ToFloat64(env.metrics.AmountPaid); v != 5 {
		t.Errorf("payment_amount_total = %v, want 5", v)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.fail = true
	ctx := context.Background()

	ids := env.participants(t, "A")
	if _, err := env.svc.CreateBill(ctx, BillInput{
		Name: "Solo", TotalAmount: 10, DivisionMethod: models.DivisionEqual,
		PayerID: ids[0], Participants: included(ids...),
	}); err != nil {
		t.Fatalf("CreateBill must succeed when publishing fails: %v", err)
	}
	if v := testutil.ToFloat64(env.metrics.PublishFailures); v != 1 {
		t.Errorf("event_publish_failures_total = %v, want 1", v)
	}
}

func TestSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.participants(t, "A", "B")

	bill, _ := env.svc.CreateBill(ctx, BillInput{
		Name: "Cinema", TotalAmount: 30, DivisionMethod: models.DivisionEqual,
		PayerID: ids[0], Participants: included(ids...),
	})
	env.svc.RegisterPayment(ctx, PaymentInput{BillID: bill.ID, ParticipantID: ids[1], Amount: 15})

	snap, err := env.svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Participants) != 2 || len(snap.Bills) != 1 || len(snap.Payments) != 1 {
		t.Fatalf("snapshot = %d participants, %d bills, %d payments",
			len(snap.Participants), len(snap.Bills), len(snap.Payments))
	}
	statuses := snap.Bills[0].Statuses
	if len(statuses) != 2 || !statuses[1].Settled || statuses[1].Paid != 15 {
		t.Errorf("statuses = %+v", statuses)
	}

	// The snapshot is a copy: editing it changes nothing stored.
	snap.Bills[0].Bill.Participants[1].IsIncluded = false
	got, _ := env.svc.GetBill(ctx, bill.ID)
	if !got.Participants[1].IsIncluded {
		t.Error("snapshot shares storage with the ledger")
	}
}
