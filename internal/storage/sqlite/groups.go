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

// CreateGroup persists a new group and its ordered members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().Unix()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO participant_groups (id, name, created_at) VALUES (?, ?, ?)",
			g.ID, g.Name, g.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		for _, p := range g.Participants {
			if err := addMember(ctx, tx, g.ID, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// addMember appends participantID to the end of the group's member list.
// Existing members are left where they are.
func addMember(ctx context.Context, q queryer, groupID, participantID string) error {
	ok, err := exists(ctx, q, "participants", participantID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("participant", participantID)
	}

	_, err = q.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, participant_id, position)
		 SELECT ?, ?, COALESCE(MAX(position), -1) + 1 FROM group_members WHERE group_id = ?`,
		groupID, participantID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members in order.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	g := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM participant_groups WHERE id = ?", id,
	).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("group", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.loadMembers(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	g.Participants = members[id]
	if g.Participants == nil {
		g.Participants = []models.Participant{}
	}
	return g, nil
}

// ListGroups retrieves all groups, newest first.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM participant_groups ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var (
		groups []*models.Group
		ids    []string
	)
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
		ids = append(ids, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	rows.Close()

	members, err := s.loadMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		g.Participants = members[g.ID]
		if g.Participants == nil {
			g.Participants = []models.Participant{}
		}
	}
	return groups, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, groupIDs []string) (map[string][]models.Participant, error) {
	out := make(map[string][]models.Participant, len(groupIDs))
	if len(groupIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT gm.group_id, gm.participant_id, p.name, p.phone, p.created_at
		 FROM group_members gm
		 LEFT JOIN participants p ON p.id = gm.participant_id
		 WHERE gm.group_id IN (`+placeholders(len(groupIDs))+`)
		 ORDER BY gm.group_id, gm.position`,
		stringArgs(groupIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			groupID   string
			p         models.Participant
			name      sql.NullString
			phone     sql.NullString
			createdAt sql.NullInt64
		)
		if err := rows.Scan(&groupID, &p.ID, &name, &phone, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		p.Name = name.String
		if !name.Valid {
			p.Name = models.UnknownParticipantName
		}
		p.Phone = phone.String
		p.CreatedAt = createdAt.Int64
		out[groupID] = append(out[groupID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return out, nil
}

// DeleteGroup removes a group. Its memberships go with it; bills keep their
// shares and lose the group reference.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "participant_groups", id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("group", id)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM participant_groups WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return nil
	})
}

// AddGroupMember appends a participant to a group.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, participantID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "participant_groups", groupID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("group", groupID)
		}
		return addMember(ctx, tx, groupID, participantID)
	})
}

// RemoveGroupMember removes a participant from a group.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, participantID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "participant_groups", groupID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("group", groupID)
		}
		_, err = tx.ExecContext(ctx,
			"DELETE FROM group_members WHERE group_id = ? AND participant_id = ?",
			groupID, participantID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete group member: %w", err)
		}
		return nil
	})
}
