// Package models defines the core domain models for splitledger.
//
// # Entities
//
//   - Participant: a person who can be included in bills and groups
//   - Group: a named, ordered collection of participants used to pre-populate bills
//   - Bill: a shared expense with a division method and per-participant shares
//   - Payment: money a participant paid against a bill
//   - User: a registered account; its ID doubles as its participant ID
//
// # Relationships
//
// Bills own their ParticipantShare list. Everything else is referenced by ID
// strings rather than pointers, so a bill keeps its own snapshot of who was in
// it even after the group it was created from changes.
package models
