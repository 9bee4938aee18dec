package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
)

const participantColumns = "id, name, phone, created_at"

// CreateParticipant inserts a new participant.
func (s *SQLiteStore) CreateParticipant(ctx context.Context, p *models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO participants (id, name, phone, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.Name, nullString(p.Phone), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func scanParticipant(scan func(dest ...any) error) (*models.Participant, error) {
	p := &models.Participant{}
	var phone sql.NullString
	if err := scan(&p.ID, &p.Name, &phone, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Phone = phone.String
	return p, nil
}

// GetParticipant retrieves a participant by ID.
func (s *SQLiteStore) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE id = ?", id)
	p, err := scanParticipant(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("participant", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// GetParticipants retrieves multiple participants by their IDs.
// Participants that don't exist are omitted from the result.
func (s *SQLiteStore) GetParticipants(ctx context.Context, ids []string) (map[string]*models.Participant, error) {
	out := make(map[string]*models.Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE id IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return out, nil
}

// ListParticipants returns all participants ordered by name.
func (s *SQLiteStore) ListParticipants(ctx context.Context) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return out, nil
}
