// Package storetest is a conformance suite every storage.Store implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Run exercises store against the storage.Store contract. newStore must
// return an empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"Participants", testParticipants},
		{"Groups", testGroups},
		{"DeleteGroupKeepsBills", testDeleteGroupKeepsBills},
		{"BillRoundTrip", testBillRoundTrip},
		{"BillCopiesAreIndependent", testBillCopiesAreIndependent},
		{"ListBills", testListBills},
		{"UpdateBillVersioning", testUpdateBillVersioning},
		{"DeleteBillCascadesPayments", testDeleteBillCascadesPayments},
		{"PaymentForMissingBill", testPaymentForMissingBill},
		{"PaymentByParticipantOffBill", testPaymentByParticipantOffBill},
		{"Users", testUsers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func mustParticipant(t *testing.T, s storage.Store, name string) *models.Participant {
	t.Helper()
	p := &models.Participant{Name: name}
	if err := s.CreateParticipant(context.Background(), p); err != nil {
		t.Fatalf("CreateParticipant(%s) failed: %v", name, err)
	}
	return p
}

func mustBill(t *testing.T, s storage.Store, bill *models.Bill) *models.Bill {
	t.Helper()
	if err := s.CreateBill(context.Background(), bill); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	return bill
}

func equalBill(payer string, others ...string) *models.Bill {
	b := &models.Bill{
		Name:           "Dinner",
		TotalAmount:    90,
		Date:           time.Date(2024, 3, 10, 19, 30, 0, 0, time.UTC),
		DivisionMethod: models.DivisionEqual,
		PayerID:        payer,
		Status:         models.BillActive,
		Participants:   []models.ParticipantShare{{ParticipantID: payer, IsIncluded: true}},
	}
	for _, o := range others {
		b.Participants = append(b.Participants, models.ParticipantShare{ParticipantID: o, IsIncluded: true})
	}
	return b
}

func testParticipants(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := &models.Participant{Name: "Alice", Phone: "+55 11 99999-0000"}
	if err := s.CreateParticipant(ctx, alice); err != nil {
		t.Fatalf("CreateParticipant failed: %v", err)
	}
	if alice.ID == "" || alice.CreatedAt == 0 {
		t.Errorf("expected ID and CreatedAt to be generated, got %+v", alice)
	}
	bob := mustParticipant(t, s, "Bob")

	got, err := s.GetParticipant(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetParticipant failed: %v", err)
	}
	if got.Name != "Alice" || got.Phone != alice.Phone {
		t.Errorf("GetParticipant = %+v, want %+v", got, alice)
	}

	if _, err := s.GetParticipant(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	found, err := s.GetParticipants(ctx, []string{alice.ID, "missing", bob.ID})
	if err != nil {
		t.Fatalf("GetParticipants failed: %v", err)
	}
	if len(found) != 2 || found[bob.ID] == nil || found[bob.ID].Name != "Bob" {
		t.Errorf("GetParticipants = %+v, want Alice and Bob", found)
	}

	all, err := s.ListParticipants(ctx)
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Alice" || all[1].Name != "Bob" {
		t.Errorf("ListParticipants = %+v, want [Alice Bob]", all)
	}
}

func testGroups(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustParticipant(t, s, "Alice")
	b := mustParticipant(t, s, "Bob")
	c := mustParticipant(t, s, "Charlie")

	g := &models.Group{Name: "Roommates", Participants: []models.Participant{*b, *a, *b}}
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if g.ID == "" || g.CreatedAt == 0 {
		t.Errorf("expected ID and CreatedAt to be generated, got %+v", g)
	}

	got, err := s.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if ids := got.MemberIDs(); len(ids) != 2 || ids[0] != b.ID || ids[1] != a.ID {
		t.Errorf("members = %v, want [Bob Alice] without duplicates", ids)
	}
	if got.Participants[0].Name != "Bob" {
		t.Errorf("member name not resolved: %+v", got.Participants[0])
	}

	if err := s.AddGroupMember(ctx, g.ID, c.ID); err != nil {
		t.Fatalf("AddGroupMember failed: %v", err)
	}
	if err := s.AddGroupMember(ctx, g.ID, a.ID); err != nil {
		t.Fatalf("AddGroupMember of existing member failed: %v", err)
	}
	if err := s.RemoveGroupMember(ctx, g.ID, b.ID); err != nil {
		t.Fatalf("RemoveGroupMember failed: %v", err)
	}
	got, _ = s.GetGroup(ctx, g.ID)
	if ids := got.MemberIDs(); len(ids) != 2 || ids[0] != a.ID || ids[1] != c.ID {
		t.Errorf("members after add/remove = %v, want [Alice Charlie]", ids)
	}

	if err := s.AddGroupMember(ctx, g.ID, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddGroupMember(unknown participant) = %v, want ErrNotFound", err)
	}
	if err := s.AddGroupMember(ctx, "missing", a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddGroupMember(unknown group) = %v, want ErrNotFound", err)
	}
	if err := s.CreateGroup(ctx, &models.Group{Name: "Ghosts", Participants: []models.Participant{{ID: "missing"}}}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("CreateGroup(unknown participant) = %v, want ErrNotFound", err)
	}

	groups, err := s.ListGroups(ctx)
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != g.ID {
		t.Errorf("ListGroups = %+v, want only %s", groups, g.ID)
	}

	if err := s.DeleteGroup(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	if _, err := s.GetGroup(ctx, g.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetGroup after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteGroup(ctx, g.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteGroup = %v, want ErrNotFound", err)
	}
	if _, err := s.GetParticipant(ctx, a.ID); err != nil {
		t.Errorf("participants must survive group deletion: %v", err)
	}
}

func testDeleteGroupKeepsBills(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustParticipant(t, s, "Alice")
	b := mustParticipant(t, s, "Bob")
	g := &models.Group{Name: "Trip", Participants: []models.Participant{*a, *b}}
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	bill := equalBill(a.ID, b.ID)
	bill.GroupID = g.ID
	mustBill(t, s, bill)

	byGroup, err := s.ListBillsByGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListBillsByGroup failed: %v", err)
	}
	if len(byGroup) != 1 {
		t.Fatalf("expected 1 bill in group, got %d", len(byGroup))
	}

	if err := s.RemoveGroupMember(ctx, g.ID, b.ID); err != nil {
		t.Fatalf("RemoveGroupMember failed: %v", err)
	}
	if err := s.DeleteGroup(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	got, err := s.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("bill must survive group deletion: %v", err)
	}
	if got.GroupID != "" {
		t.Errorf("expected group reference to be cleared, got %q", got.GroupID)
	}
	if len(got.Participants) != 2 || !got.HasParticipant(b.ID) {
		t.Errorf("bill shares changed after group edits: %+v", got.Participants)
	}
}

func testBillRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustParticipant(t, s, "Alice")
	b := mustParticipant(t, s, "Bob")
	c := mustParticipant(t, s, "Charlie")

	original := &models.Bill{
		Name:            "Groceries",
		TotalAmount:     150.75,
		Date:            time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Category:        "food",
		DivisionMethod:  models.DivisionWeight,
		PayerID:         a.ID,
		Status:          models.BillActive,
		ReceiptImageURL: "https://example.com/r.jpg",
		Participants: []models.ParticipantShare{
			{ParticipantID: c.ID, IsIncluded: true, Weight: models.Float(2)},
			{ParticipantID: a.ID, IsIncluded: true, Weight: models.Float(1), Amount: models.Float(10)},
			{ParticipantID: b.ID, IsIncluded: false},
		},
	}
	mustBill(t, s, original)
	if original.ID == "" || original.CreatedAt == 0 || original.Version != 1 {
		t.Errorf("expected ID, CreatedAt and Version 1, got %+v", original)
	}

	got, err := s.GetBill(ctx, original.ID)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if got.Name != original.Name || got.TotalAmount != original.TotalAmount ||
		got.Category != original.Category || got.DivisionMethod != original.DivisionMethod ||
		got.PayerID != original.PayerID || got.Status != original.Status ||
		got.ReceiptImageURL != original.ReceiptImageURL || got.Version != 1 {
		t.Errorf("GetBill = %+v, want %+v", got, original)
	}
	if !got.Date.Equal(original.Date) {
		t.Errorf("Date = %v, want %v", got.Date, original.Date)
	}
	if len(got.Participants) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(got.Participants))
	}
	first := got.Participants[0]
	if first.ParticipantID != c.ID || !first.IsIncluded || first.Weight == nil || *first.Weight != 2 ||
		first.Amount != nil || first.Percentage != nil {
		t.Errorf("first share = %+v, want Charlie weight 2", first)
	}
	second := got.Participants[1]
	if second.Amount == nil || *second.Amount != 10 {
		t.Errorf("second share lost its amount: %+v", second)
	}
	if got.Participants[2].IsIncluded {
		t.Errorf("third share should be excluded: %+v", got.Participants[2])
	}

	if _, err := s.GetBill(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBill(nonexistent) = %v, want ErrNotFound", err)
	}
}

func testBillCopiesAreIndependent(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustParticipant(t, s, "Alice")
	b := mustParticipant(t, s, "Bob")
	bill := mustBill(t, s, equalBill(a.ID, b.ID))

	got, _ := s.GetBill(ctx, bill.ID)
	got.Participants[1].IsIncluded = false
	got.Participants = got.Participants[:1]
	bill.Participants[0].IsIncluded = false

	again, err := s.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if len(again.Participants) != 2 || !again.Participants[0].IsIncluded || !again.Participants[1].IsIncluded {
		t.Errorf("stored bill changed through a returned copy: %+v", again.Participants)
	}
}

func testListBills(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustParticipant(t, s, "Alice")

	older := equalBill(a.ID)
	older.Name = "older"
	older.Date = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := equalBill(a.ID)
	newer.Name = "newer"
	newer.Date = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mustBill(t, s, older)
	mustBill(t, s, newer)

	bills, err := s.ListBills(ctx)
	if err != nil {
		t.Fatalf("ListBills failed: %v", err)
	}
	if len(bills) != 2 || bills[0].Name != "newer" || bills[1].Name != "older" {
		t.Errorf("ListBills order wrong: %v", billNames(bills))
	}
	for _, b := range bills {
		if len(b.Participants) != 1 {
			t.Errorf("bill %s listed without shares", b.Name)
		}
	}
}

func billNames(bills []*models.Bill) []string {
	names := make([]string, len(bills))
	for i, b := range bills {
		names[i] = b.Name
	}
	return names
}

func testUpdateBillVersioning(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustParticipant(t, s, "Alice")
	b := mustParticipant(t, s, "Bob")
	bill := mustBill(t, s, equalBill(a.ID, b.ID))

	first, _ := s.GetBill(ctx, bill.ID)
	stale, _ := s.GetBill(ctx, bill.ID)

	first.TotalAmount = 120
	first.Participants = first.Participants[:1]
	if err := s.UpdateBill(ctx, first); err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("Version after update = %d, want 2", first.Version)
	}

	got, _ := s.GetBill(ctx, bill.ID)
	if got.TotalAmount != 120 || len(got.Participants) != 1 || got.Version != 2 {
		t.Errorf("update not applied: %+v", got)
	}

	stale.Name = "lost update"
	if err := s.UpdateBill(ctx, stale); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("stale UpdateBill = %v, want ErrConflict", err)
	}
	got, _ = s.GetBill(ctx, bill.ID)
	if got.Name == "lost update" {
		t.Error("stale update must not be applied")
	}

	missing := equalBill(a.ID)
	missing.ID = "missing"
	missing.Version = 1
	if err := s.UpdateBill(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateBill(missing) = %v, want ErrNotFound", err)
	}
}

func testDeleteBillCascadesPayments(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustParticipant(t, s, "Alice")
	b := mustParticipant(t, s, "Bob")
	keep := mustBill(t, s, equalBill(a.ID, b.ID))
	doomed := mustBill(t, s, equalBill(a.ID, b.ID))

	for _, p := range []*models.Payment{
		{BillID: doomed.ID, ParticipantID: b.ID, Amount: 20, Date: time.Now()},
		{BillID: doomed.ID, ParticipantID: b.ID, Amount: 25, Date: time.Now(), Notes: "pix"},
		{BillID: keep.ID, ParticipantID: b.ID, Amount: 45, Date: time.Now()},
	} {
		if err := s.CreatePayment(ctx, p); err != nil {
			t.Fatalf("CreatePayment failed: %v", err)
		}
		if p.ID == "" {
			t.Error("expected payment ID to be generated")
		}
	}

	payments, err := s.ListPaymentsByBill(ctx, doomed.ID)
	if err != nil {
		t.Fatalf("ListPaymentsByBill failed: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}

	if err := s.DeleteBill(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteBill failed: %v", err)
	}
	payments, err = s.ListPaymentsByBill(ctx, doomed.ID)
	if err != nil {
		t.Fatalf("ListPaymentsByBill failed: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("expected payments to be deleted with their bill, got %d", len(payments))
	}

	all, _ := s.ListPayments(ctx)
	if len(all) != 1 || all[0].BillID != keep.ID {
		t.Errorf("payments of other bills must survive, got %+v", all)
	}

	if err := s.DeleteBill(ctx, doomed.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteBill = %v, want ErrNotFound", err)
	}
}

func testPaymentForMissingBill(t *testing.T, s storage.Store) {
	a := mustParticipant(t, s, "Alice")
	err := s.CreatePayment(context.Background(), &models.Payment{
		BillID: "missing", ParticipantID: a.ID, Amount: 10, Date: time.Now(),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("CreatePayment(missing bill) = %v, want ErrNotFound", err)
	}
}

// testPaymentByParticipantOffBill covers a payment validated against a bill
// that an edit changed before the write landed.
func testPaymentByParticipantOffBill(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustParticipant(t, s, "Alice")
	b := mustParticipant(t, s, "Bob")
	c := mustParticipant(t, s, "Carol")
	bill := mustBill(t, s, equalBill(a.ID, b.ID))

	err := s.CreatePayment(ctx, &models.Payment{BillID: bill.ID, ParticipantID: c.ID, Amount: 10, Date: time.Now()})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("CreatePayment(never listed) = %v, want ErrConflict", err)
	}

	edited, _ := s.GetBill(ctx, bill.ID)
	edited.Participants = edited.Participants[:1]
	if err := s.UpdateBill(ctx, edited); err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}
	err = s.CreatePayment(ctx, &models.Payment{BillID: bill.ID, ParticipantID: b.ID, Amount: 45, Date: time.Now()})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("CreatePayment(removed participant) = %v, want ErrConflict", err)
	}

	payments, err := s.ListPaymentsByBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListPaymentsByBill failed: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("rejected payments must not be stored, got %+v", payments)
	}

	// An excluded participant is still listed and may pay.
	edited, _ = s.GetBill(ctx, bill.ID)
	edited.Participants = append(edited.Participants, models.ParticipantShare{ParticipantID: c.ID})
	if err := s.UpdateBill(ctx, edited); err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}
	if err := s.CreatePayment(ctx, &models.Payment{BillID: bill.ID, ParticipantID: c.ID, Amount: 5, Date: time.Now()}); err != nil {
		t.Errorf("CreatePayment(excluded but listed) failed: %v", err)
	}
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	user := models.NewUser("alice@example.com", "Alice", "hash")
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := s.CreateUser(ctx, models.NewUser("alice@example.com", "Other", "hash")); err == nil {
		t.Error("expected duplicate email to be rejected")
	}

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.PasswordHash != "hash" {
		t.Errorf("GetUserByEmail = %+v, want %+v", byEmail, user)
	}

	byID, err := s.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, want Alice", byID.DisplayName)
	}

	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUserByEmail(unknown) = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUserByID(unknown) = %v, want ErrNotFound", err)
	}
}
