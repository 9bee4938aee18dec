package service

import (
	"time"

	"github.com/mmynk/splitledger/internal/billing"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
)

// --- auth ---

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

func toUser(u *models.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type LogoutRequest struct{}
type LogoutResponse struct{}

type GetCurrentUserRequest struct{}
type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// --- participants ---

type CreateParticipantRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type GetParticipantRequest struct {
	ParticipantID string `json:"participantId"`
}

type ParticipantResponse struct {
	Participant *models.Participant `json:"participant"`
}

type ListParticipantsRequest struct{}
type ListParticipantsResponse struct {
	Participants []*models.Participant `json:"participants"`
}

// --- groups ---

type CreateGroupRequest struct {
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participantIds"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GroupResponse struct {
	Group *models.Group `json:"group"`
}

type ListGroupsRequest struct{}
type ListGroupsResponse struct {
	Groups []*models.Group `json:"groups"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId"`
}
type DeleteGroupResponse struct{}

// GroupMemberRequest is used by AddGroupMember and RemoveGroupMember.
type GroupMemberRequest struct {
	GroupID       string `json:"groupId"`
	ParticipantID string `json:"participantId"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupBalancesResponse struct {
	GroupID  string                     `json:"groupId"`
	Balances []calculator.MemberBalance `json:"balances"`
	Debts    []calculator.DebtEdge      `json:"debts"`
	// Names maps every participant id above to a display name.
	Names map[string]string `json:"names"`
}

// --- bills ---

// BillFields are the editable fields shared by CreateBill and UpdateBill.
type BillFields struct {
	Name            string                    `json:"name"`
	TotalAmount     float64                   `json:"totalAmount"`
	Date            time.Time                 `json:"date"`
	Category        string                    `json:"category,omitempty"`
	DivisionMethod  models.DivisionMethod     `json:"divisionMethod"`
	GroupID         string                    `json:"groupId,omitempty"`
	PayerID         string                    `json:"payerId,omitempty"` // defaults to the caller
	ReceiptImageURL string                    `json:"receiptImageUrl,omitempty"`
	Participants    []models.ParticipantShare `json:"participants,omitempty"`
}

func (f BillFields) input(callerID string) billing.BillInput {
	payer := f.PayerID
	if payer == "" {
		payer = callerID
	}
	return billing.BillInput{
		Name:            f.Name,
		TotalAmount:     f.TotalAmount,
		Date:            f.Date,
		Category:        f.Category,
		DivisionMethod:  f.DivisionMethod,
		GroupID:         f.GroupID,
		PayerID:         payer,
		ReceiptImageURL: f.ReceiptImageURL,
		Participants:    f.Participants,
	}
}

type CreateBillRequest struct {
	BillFields
}

type UpdateBillRequest struct {
	BillID string `json:"billId"`
	// Version is the version the edit is based on.
	Version int64 `json:"version"`
	BillFields
}

type GetBillRequest struct {
	BillID string `json:"billId"`
}

type BillResponse struct {
	Bill *models.Bill `json:"bill"`
	// Shares is every listed participant's computed share.
	Shares []calculator.ParticipantAmount `json:"shares"`
}

func toBillResponse(b *models.Bill) *BillResponse {
	return &BillResponse{Bill: b, Shares: calculator.Shares(b)}
}

type ListBillsRequest struct {
	// Status filters by lifecycle state; empty lists every bill.
	Status models.BillStatus `json:"status,omitempty"`
}

type ListBillsResponse struct {
	Bills []*models.Bill `json:"bills"`
}

type CompleteBillRequest struct {
	BillID string `json:"billId"`
}

type DeleteBillRequest struct {
	BillID string `json:"billId"`
}
type DeleteBillResponse struct{}

// --- payments ---

type RegisterPaymentRequest struct {
	BillID        string    `json:"billId"`
	ParticipantID string    `json:"participantId,omitempty"` // defaults to the caller
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
	Notes         string    `json:"notes,omitempty"`
}

type PaymentResponse struct {
	Payment *models.Payment `json:"payment"`
	// Remaining is what the participant still owes on the bill afterwards.
	// Remaining and Settled are nil when the balance could not be read back.
	Remaining *float64 `json:"remaining,omitempty"`
	Settled   *bool    `json:"settled,omitempty"`
}

type ListPaymentsRequest struct {
	BillID string `json:"billId"`
	// ParticipantID optionally narrows the list to one participant.
	ParticipantID string `json:"participantId,omitempty"`
}

type ListPaymentsResponse struct {
	Payments  []*models.Payment `json:"payments"`
	TotalPaid float64           `json:"totalPaid"`
}

// --- reconciliation ---

type GetBillReportRequest struct {
	BillID string `json:"billId"`
}

type GetBillReportResponse struct {
	Report *billing.BillReport `json:"report"`
}

type GetSummaryRequest struct {
	// ParticipantID defaults to the caller.
	ParticipantID string `json:"participantId,omitempty"`
}

type GetSummaryResponse struct {
	ParticipantID string             `json:"participantId"`
	Summary       calculator.Summary `json:"summary"`
}

type GetSnapshotRequest struct{}
type GetSnapshotResponse struct {
	Snapshot *billing.Snapshot `json:"snapshot"`
}
