package models

// UnknownParticipantName is displayed for participant IDs that no longer resolve.
const UnknownParticipantName = "Unknown participant"

// Participant is a person who can be included in bills and groups.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format, or the
	// owning user's ID for participants mirrored from accounts).
	ID string `json:"id"`

	// Name is the display name. Required.
	Name string `json:"name"`

	// Phone is an optional contact number.
	Phone string `json:"phone,omitempty"`

	// CreatedAt is the Unix timestamp when the participant was created.
	CreatedAt int64 `json:"createdAt"`
}

// DisplayName returns the participant's name, or UnknownParticipantName for a nil participant.
func (p *Participant) DisplayName() string {
	if p == nil || p.Name == "" {
		return UnknownParticipantName
	}
	return p.Name
}
