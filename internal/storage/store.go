// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a participant, group, bill or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write no longer matches the stored bill:
	// an update carrying a stale version, or a payment by someone the bill
	// no longer lists.
	ErrConflict = errors.New("bill conflict")
)

// Store defines the interface for splitledger storage operations.
// This abstraction allows swapping storage backends (SQLite, in-memory)
// without changing the billing layer.
//
// Implementations return copies: mutating a returned value never changes
// stored state.
type Store interface {
	ParticipantStore
	GroupStore
	BillStore
	PaymentStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// ParticipantStore persists the participant registry.
type ParticipantStore interface {
	// CreateParticipant persists a new participant. ID and CreatedAt are
	// populated when empty.
	CreateParticipant(ctx context.Context, p *models.Participant) error
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
	// GetParticipants returns the participants that exist among ids, keyed by ID.
	GetParticipants(ctx context.Context, ids []string) (map[string]*models.Participant, error)
	ListParticipants(ctx context.Context) ([]*models.Participant, error)
}

// GroupStore persists groups and their ordered membership.
type GroupStore interface {
	// CreateGroup persists a new group with its members. Members must exist.
	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	// DeleteGroup removes the group. Bills keep their shares; their group
	// reference is cleared.
	DeleteGroup(ctx context.Context, id string) error
	// AddGroupMember appends participantID to the group. Adding an existing
	// member is a no-op.
	AddGroupMember(ctx context.Context, groupID, participantID string) error
	// RemoveGroupMember removes participantID from the group, if present.
	RemoveGroupMember(ctx context.Context, groupID, participantID string) error
}

// BillStore persists bills together with their embedded shares.
type BillStore interface {
	// CreateBill persists a new bill. ID, CreatedAt, UpdatedAt and Version
	// are populated by the store.
	CreateBill(ctx context.Context, bill *models.Bill) error
	GetBill(ctx context.Context, id string) (*models.Bill, error)
	// ListBills returns every bill, newest date first.
	ListBills(ctx context.Context) ([]*models.Bill, error)
	ListBillsByGroup(ctx context.Context, groupID string) ([]*models.Bill, error)
	// UpdateBill replaces a bill if bill.Version matches the stored version,
	// and bumps the version. Returns ErrConflict otherwise.
	UpdateBill(ctx context.Context, bill *models.Bill) error
	// DeleteBill removes a bill and all of its payments.
	DeleteBill(ctx context.Context, id string) error
}

// PaymentStore persists the payment ledger.
type PaymentStore interface {
	// CreatePayment returns ErrNotFound for an unknown bill and ErrConflict
	// when the participant is not listed on the bill at write time.
	CreatePayment(ctx context.Context, p *models.Payment) error
	ListPaymentsByBill(ctx context.Context, billID string) ([]*models.Payment, error)
	ListPayments(ctx context.Context) ([]*models.Payment, error)
}

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail and GetUserByID return ErrNotFound for unknown users.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
