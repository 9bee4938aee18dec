package models

import "time"

// Payment records money a participant paid against a bill.
// Payments are immutable and disappear only with their bill.
type Payment struct {
	ID            string    `json:"id"`
	BillID        string    `json:"billId"`
	ParticipantID string    `json:"participantId"`
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     int64     `json:"createdAt"`
}
