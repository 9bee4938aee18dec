// Package memory provides an in-process implementation of storage.Store.
// It backs single-session use and tests; nothing survives a restart.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

type groupRecord struct {
	id        string
	name      string
	createdAt int64
	members   []string
}

// Store is a mutex-guarded, map-backed storage.Store.
type Store struct {
	mu sync.RWMutex

	participants map[string]*models.Participant
	groups       map[string]*groupRecord
	bills        map[string]*models.Bill
	payments     []*models.Payment
	users        map[string]*models.User
	userEmails   map[string]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		participants: make(map[string]*models.Participant),
		groups:       make(map[string]*groupRecord),
		bills:        make(map[string]*models.Bill),
		users:        make(map[string]*models.User),
		userEmails:   make(map[string]string),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

// --- participants ---

// CreateParticipant stores a copy of p.
func (s *Store) CreateParticipant(_ context.Context, p *models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.participants[p.ID]; exists {
		return fmt.Errorf("participant %s already exists", p.ID)
	}
	c := *p
	s.participants[p.ID] = &c
	return nil
}

// GetParticipant returns the participant with the given ID.
func (s *Store) GetParticipant(_ context.Context, id string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, notFound("participant", id)
	}
	c := *p
	return &c, nil
}

// GetParticipants returns the subset of ids that exist.
func (s *Store) GetParticipants(_ context.Context, ids []string) (map[string]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Participant, len(ids))
	for _, id := range ids {
		if p, ok := s.participants[id]; ok {
			c := *p
			out[id] = &c
		}
	}
	return out, nil
}

// ListParticipants returns all participants ordered by name.
func (s *Store) ListParticipants(_ context.Context) ([]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		c := *p
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.Participant) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// --- groups ---

// CreateGroup stores g. Duplicate member IDs are collapsed.
func (s *Store) CreateGroup(_ context.Context, g *models.Group) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &groupRecord{id: g.ID, name: g.Name, createdAt: g.CreatedAt}
	for _, p := range g.Participants {
		if _, ok := s.participants[p.ID]; !ok {
			return notFound("participant", p.ID)
		}
		if !slices.Contains(rec.members, p.ID) {
			rec.members = append(rec.members, p.ID)
		}
	}
	s.groups[g.ID] = rec
	return nil
}

func (s *Store) resolveGroup(rec *groupRecord) *models.Group {
	g := &models.Group{
		ID:           rec.id,
		Name:         rec.name,
		CreatedAt:    rec.createdAt,
		Participants: make([]models.Participant, 0, len(rec.members)),
	}
	for _, id := range rec.members {
		if p, ok := s.participants[id]; ok {
			g.Participants = append(g.Participants, *p)
		} else {
			g.Participants = append(g.Participants, models.Participant{ID: id, Name: models.UnknownParticipantName})
		}
	}
	return g
}

// GetGroup returns the group with its members resolved.
func (s *Store) GetGroup(_ context.Context, id string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.groups[id]
	if !ok {
		return nil, notFound("group", id)
	}
	return s.resolveGroup(rec), nil
}

// ListGroups returns every group, newest first.
func (s *Store) ListGroups(_ context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Group, 0, len(s.groups))
	for _, rec := range s.groups {
		out = append(out, s.resolveGroup(rec))
	}
	slices.SortFunc(out, func(a, b *models.Group) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// DeleteGroup removes the group and clears the back-reference on its bills.
func (s *Store) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return notFound("group", id)
	}
	delete(s.groups, id)
	for _, b := range s.bills {
		if b.GroupID == id {
			b.GroupID = ""
		}
	}
	return nil
}

// AddGroupMember appends participantID to the group's membership.
func (s *Store) AddGroupMember(_ context.Context, groupID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.groups[groupID]
	if !ok {
		return notFound("group", groupID)
	}
	if _, ok := s.participants[participantID]; !ok {
		return notFound("participant", participantID)
	}
	if !slices.Contains(rec.members, participantID) {
		rec.members = append(rec.members, participantID)
	}
	return nil
}

// RemoveGroupMember drops participantID from the group's membership.
func (s *Store) RemoveGroupMember(_ context.Context, groupID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.groups[groupID]
	if !ok {
		return notFound("group", groupID)
	}
	rec.members = slices.DeleteFunc(rec.members, func(id string) bool { return id == participantID })
	return nil
}

// --- bills ---

// CreateBill stores a deep copy of bill.
func (s *Store) CreateBill(_ context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if bill.CreatedAt == 0 {
		bill.CreatedAt = now
	}
	bill.UpdatedAt = bill.CreatedAt
	bill.Version = 1

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bills[bill.ID]; exists {
		return fmt.Errorf("bill %s already exists", bill.ID)
	}
	if bill.GroupID != "" {
		if _, ok := s.groups[bill.GroupID]; !ok {
			return notFound("group", bill.GroupID)
		}
	}
	s.bills[bill.ID] = bill.Clone()
	return nil
}

// GetBill returns a deep copy of the bill.
func (s *Store) GetBill(_ context.Context, id string) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bills[id]
	if !ok {
		return nil, notFound("bill", id)
	}
	return b.Clone(), nil
}

// ListBills returns every bill, newest date first.
func (s *Store) ListBills(_ context.Context) ([]*models.Bill, error) {
	return s.listBills(func(*models.Bill) bool { return true }), nil
}

// ListBillsByGroup returns the bills that reference groupID.
func (s *Store) ListBillsByGroup(_ context.Context, groupID string) ([]*models.Bill, error) {
	return s.listBills(func(b *models.Bill) bool { return b.GroupID == groupID }), nil
}

func (s *Store) listBills(keep func(*models.Bill) bool) []*models.Bill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Bill) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// UpdateBill replaces the stored bill when the versions match.
func (s *Store) UpdateBill(_ context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bills[bill.ID]
	if !ok {
		return notFound("bill", bill.ID)
	}
	if current.Version != bill.Version {
		return fmt.Errorf("bill %s at version %d, update based on %d: %w",
			bill.ID, current.Version, bill.Version, storage.ErrConflict)
	}
	if bill.GroupID != "" {
		if _, ok := s.groups[bill.GroupID]; !ok {
			return notFound("group", bill.GroupID)
		}
	}
	bill.Version = current.Version + 1
	bill.CreatedAt = current.CreatedAt
	bill.UpdatedAt = time.Now().Unix()
	s.bills[bill.ID] = bill.Clone()
	return nil
}

// DeleteBill removes the bill and its payments.
func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return notFound("bill", id)
	}
	delete(s.bills, id)
	s.payments = slices.DeleteFunc(s.payments, func(p *models.Payment) bool { return p.BillID == id })
	return nil
}

// --- payments ---

// CreatePayment appends a copy of p to the ledger.
func (s *Store) CreatePayment(_ context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[p.BillID]
	if !ok {
		return notFound("bill", p.BillID)
	}
	if !bill.HasParticipant(p.ParticipantID) {
		return fmt.Errorf("participant %s not on bill %s: %w", p.ParticipantID, p.BillID, storage.ErrConflict)
	}
	c := *p
	s.payments = append(s.payments, &c)
	return nil
}

// ListPaymentsByBill returns the payments recorded against billID.
func (s *Store) ListPaymentsByBill(_ context.Context, billID string) ([]*models.Payment, error) {
	return s.listPayments(func(p *models.Payment) bool { return p.BillID == billID }), nil
}

// ListPayments returns every payment.
func (s *Store) ListPayments(_ context.Context) ([]*models.Payment, error) {
	return s.listPayments(func(*models.Payment) bool { return true }), nil
}

func (s *Store) listPayments(keep func(*models.Payment) bool) []*models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Payment
	for _, p := range s.payments {
		if keep(p) {
			c := *p
			out = append(out, &c)
		}
	}
	return out
}

// --- users ---

// CreateUser stores a copy of user. Emails are unique.
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.userEmails[user.Email]; exists {
		return fmt.Errorf("failed to create user: email %s already registered", user.Email)
	}
	c := *user
	s.users[user.ID] = &c
	s.userEmails[user.Email] = user.ID
	return nil
}

// GetUserByEmail looks a user up by email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userEmails[email]
	if !ok {
		return nil, notFound("user", email)
	}
	c := *s.users[id]
	return &c, nil
}

// GetUserByID looks a user up by ID.
func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	c := *u
	return &c, nil
}
