package models

// Group represents a reusable participant list.
// Bills created from a group copy its members; later membership changes do not
// reach back into those bills.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string `json:"name"`

	// Participants are the members in insertion order. IDs are unique.
	Participants []Participant `json:"participants"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"createdAt"`
}

// HasMember reports whether participantID belongs to the group.
func (g *Group) HasMember(participantID string) bool {
	for _, p := range g.Participants {
		if p.ID == participantID {
			return true
		}
	}
	return false
}

// MemberIDs returns the member IDs in display order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Participants))
	for i, p := range g.Participants {
		ids[i] = p.ID
	}
	return ids
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := *g
	c.Participants = append([]Participant(nil), g.Participants...)
	return &c
}
