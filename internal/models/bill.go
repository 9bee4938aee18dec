package models

import "time"

// DivisionMethod selects how a bill's total is divided among its participants.
type DivisionMethod string

const (
	// DivisionEqual splits the total evenly across included participants.
	DivisionEqual DivisionMethod = "equal"
	// DivisionFixed uses each participant's recorded amount.
	DivisionFixed DivisionMethod = "fixed"
	// DivisionPercentage applies each participant's percentage to the total.
	DivisionPercentage DivisionMethod = "percentage"
	// DivisionWeight splits the total proportionally to participant weights.
	DivisionWeight DivisionMethod = "weight"
)

// Valid reports whether m is a known division method.
func (m DivisionMethod) Valid() bool {
	switch m {
	case DivisionEqual, DivisionFixed, DivisionPercentage, DivisionWeight:
		return true
	}
	return false
}

// BillStatus is the lifecycle state of a bill.
type BillStatus string

const (
	BillActive    BillStatus = "active"
	BillCompleted BillStatus = "completed"
)

// Bill represents a single shared expense.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string `json:"id"`

	// Name is the human-readable label, e.g. "Dinner at Mario's".
	Name string `json:"name"`

	// TotalAmount is the full amount of the expense. Always > 0.
	TotalAmount float64 `json:"totalAmount"`

	// Date is when the expense happened.
	Date time.Time `json:"date"`

	// Category is an optional free-form label.
	Category string `json:"category,omitempty"`

	// DivisionMethod decides how TotalAmount is divided.
	DivisionMethod DivisionMethod `json:"divisionMethod"`

	// GroupID optionally points back at the group the bill was created from.
	GroupID string `json:"groupId,omitempty"`

	// PayerID is the participant who fronted the bill and is owed by the others.
	PayerID string `json:"payerId"`

	// Status is active until the bill is explicitly completed.
	Status BillStatus `json:"status"`

	// ReceiptImageURL optionally links to a photo of the receipt.
	ReceiptImageURL string `json:"receiptImageUrl,omitempty"`

	// Participants is the bill's own snapshot of who takes part and how.
	Participants []ParticipantShare `json:"participants"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`

	// Version increments on every stored update and guards concurrent edits.
	Version int64 `json:"version"`
}

// ParticipantShare is one participant's entry on a bill.
// Only the field matching the bill's division method is consulted; absent
// values are nil.
type ParticipantShare struct {
	ParticipantID string   `json:"participantId"`
	IsIncluded    bool     `json:"isIncluded"`
	Amount        *float64 `json:"amount,omitempty"`
	Percentage    *float64 `json:"percentage,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
}

// Share returns the entry for participantID, or nil if the participant is not listed.
func (b *Bill) Share(participantID string) *ParticipantShare {
	for i := range b.Participants {
		if b.Participants[i].ParticipantID == participantID {
			return &b.Participants[i]
		}
	}
	return nil
}

// HasParticipant reports whether participantID is listed on the bill, included or not.
func (b *Bill) HasParticipant(participantID string) bool {
	return b.Share(participantID) != nil
}

// Included returns the shares of included participants in display order.
func (b *Bill) Included() []ParticipantShare {
	var out []ParticipantShare
	for _, s := range b.Participants {
		if s.IsIncluded {
			out = append(out, s)
		}
	}
	return out
}

// IsActive reports whether the bill is still open.
func (b *Bill) IsActive() bool {
	return b.Status == BillActive
}

// Clone returns a deep copy of the bill, including its share values.
func (b *Bill) Clone() *Bill {
	if b == nil {
		return nil
	}
	c := *b
	c.Participants = make([]ParticipantShare, len(b.Participants))
	for i, s := range b.Participants {
		c.Participants[i] = s.clone()
	}
	return &c
}

func (s ParticipantShare) clone() ParticipantShare {
	s.Amount = cloneFloat(s.Amount)
	s.Percentage = cloneFloat(s.Percentage)
	s.Weight = cloneFloat(s.Weight)
	return s
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Float returns a pointer to v, for filling optional share fields.
func Float(v float64) *float64 {
	return &v
}
