package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreatePayment persists a new payment.
func (s *SQLiteStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "bills", p.BillID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("bill", p.BillID)
		}
		if err := checkBillParticipant(ctx, tx, p.BillID, p.ParticipantID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO payments (id, bill_id, participant_id, amount, date, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.BillID, p.ParticipantID, p.Amount, toMillis(p.Date), nullString(p.Notes), p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		return nil
	})
}

// ListPaymentsByBill retrieves the payments recorded against a bill.
func (s *SQLiteStore) ListPaymentsByBill(ctx context.Context, billID string) ([]*models.Payment, error) {
	return s.queryPayments(ctx,
		`SELECT id, bill_id, participant_id, amount, date, notes, created_at
		 FROM payments WHERE bill_id = ? ORDER BY date, created_at, id`,
		billID)
}

// ListPayments retrieves every payment.
func (s *SQLiteStore) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	return s.queryPayments(ctx,
		`SELECT id, bill_id, participant_id, amount, date, notes, created_at
		 FROM payments ORDER BY date, created_at, id`)
}

func (s *SQLiteStore) queryPayments(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		var (
			date  int64
			notes sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.BillID, &p.ParticipantID, &p.Amount, &date, &notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Date = fromMillis(date)
		p.Notes = notes.String
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func checkBillParticipant(ctx context.Context, q queryer, billID, participantID string) error {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM bill_participants WHERE bill_id = ? AND participant_id = ?",
		billID, participantID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("participant %s not on bill %s: %w", participantID, billID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to check bill participant: %w", err)
	}
	return nil
}
