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

const billColumns = `id, name, total_amount, date, category, division_method, group_id,
	payer_id, status, receipt_image_url, created_at, updated_at, version`

// CreateBill persists a new bill together with its participant shares.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	bill.UpdatedAt = bill.CreatedAt
	bill.Version = 1

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkGroup(ctx, tx, bill.GroupID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO bills (`+billColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			bill.ID, bill.Name, bill.TotalAmount, toMillis(bill.Date), nullString(bill.Category),
			string(bill.DivisionMethod), nullString(bill.GroupID), bill.PayerID, string(bill.Status),
			nullString(bill.ReceiptImageURL), bill.CreatedAt, bill.UpdatedAt, bill.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bill: %w", err)
		}

		return insertShares(ctx, tx, bill)
	})
}

func checkGroup(ctx context.Context, q queryer, groupID string) error {
	if groupID == "" {
		return nil
	}
	ok, err := exists(ctx, q, "participant_groups", groupID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("group", groupID)
	}
	return nil
}

func insertShares(ctx context.Context, q queryer, bill *models.Bill) error {
	for i, share := range bill.Participants {
		_, err := q.ExecContext(ctx,
			`INSERT INTO bill_participants
			 (bill_id, participant_id, position, is_included, amount, percentage, weight)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			bill.ID, share.ParticipantID, i, share.IsIncluded,
			nullFloat(share.Amount), nullFloat(share.Percentage), nullFloat(share.Weight),
		)
		if err != nil {
			return fmt.Errorf("failed to insert bill participant: %w", err)
		}
	}
	return nil
}

func scanBill(scan func(dest ...any) error) (*models.Bill, error) {
	b := &models.Bill{}
	var (
		date     int64
		method   string
		status   string
		category sql.NullString
		groupID  sql.NullString
		receipt  sql.NullString
	)
	err := scan(&b.ID, &b.Name, &b.TotalAmount, &date, &category, &method, &groupID,
		&b.PayerID, &status, &receipt, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	b.Date = fromMillis(date)
	b.Category = category.String
	b.DivisionMethod = models.DivisionMethod(method)
	b.GroupID = groupID.String
	b.Status = models.BillStatus(status)
	b.ReceiptImageURL = receipt.String
	return b, nil
}

// GetBill retrieves a bill by ID, including its participant shares.
func (s *SQLiteStore) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+billColumns+" FROM bills WHERE id = ?", id)
	bill, err := scanBill(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("bill", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	if err := s.attachShares(ctx, []*models.Bill{bill}); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListBills retrieves every bill, newest date first.
func (s *SQLiteStore) ListBills(ctx context.Context) ([]*models.Bill, error) {
	return s.queryBills(ctx,
		"SELECT "+billColumns+" FROM bills ORDER BY date DESC, created_at DESC, id")
}

// ListBillsByGroup retrieves all bills associated with a group.
func (s *SQLiteStore) ListBillsByGroup(ctx context.Context, groupID string) ([]*models.Bill, error) {
	return s.queryBills(ctx,
		"SELECT "+billColumns+" FROM bills WHERE group_id = ? ORDER BY date DESC, created_at DESC, id",
		groupID)
}

func (s *SQLiteStore) queryBills(ctx context.Context, query string, args ...any) ([]*models.Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	rows.Close()

	if err := s.attachShares(ctx, bills); err != nil {
		return nil, err
	}
	return bills, nil
}

// attachShares loads the participant shares of bills with a single query.
func (s *SQLiteStore) attachShares(ctx context.Context, bills []*models.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	byID := make(map[string]*models.Bill, len(bills))
	ids := make([]string, len(bills))
	for i, b := range bills {
		byID[b.ID] = b
		ids[i] = b.ID
		b.Participants = []models.ParticipantShare{}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT bill_id, participant_id, is_included, amount, percentage, weight
		 FROM bill_participants
		 WHERE bill_id IN (`+placeholders(len(ids))+`)
		 ORDER BY bill_id, position`,
		stringArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("failed to get bill participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			billID                     string
			share                      models.ParticipantShare
			amount, percentage, weight sql.NullFloat64
		)
		if err := rows.Scan(&billID, &share.ParticipantID, &share.IsIncluded, &amount, &percentage, &weight); err != nil {
			return fmt.Errorf("failed to scan bill participant: %w", err)
		}
		share.Amount = floatPtr(amount)
		share.Percentage = floatPtr(percentage)
		share.Weight = floatPtr(weight)
		b := byID[billID]
		b.Participants = append(b.Participants, share)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate bill participants: %w", err)
	}
	return nil
}

// UpdateBill replaces a bill and its shares if the caller's version is current.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	updatedAt := time.Now().Unix()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx, "SELECT version FROM bills WHERE id = ?", bill.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("bill", bill.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to get bill version: %w", err)
		}
		if current != bill.Version {
			return fmt.Errorf("bill %s at version %d, update based on %d: %w",
				bill.ID, current, bill.Version, storage.ErrConflict)
		}
		if err := checkGroup(ctx, tx, bill.GroupID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE bills SET name = ?, total_amount = ?, date = ?, category = ?, division_method = ?,
			 group_id = ?, payer_id = ?, status = ?, receipt_image_url = ?, updated_at = ?, version = ?
			 WHERE id = ?`,
			bill.Name, bill.TotalAmount, toMillis(bill.Date), nullString(bill.Category),
			string(bill.DivisionMethod), nullString(bill.GroupID), bill.PayerID, string(bill.Status),
			nullString(bill.ReceiptImageURL), updatedAt, current+1, bill.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update bill: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM bill_participants WHERE bill_id = ?", bill.ID); err != nil {
			return fmt.Errorf("failed to delete bill participants: %w", err)
		}
		return insertShares(ctx, tx, bill)
	})
	if err != nil {
		return err
	}

	bill.Version++
	bill.UpdatedAt = updatedAt
	return nil
}

// DeleteBill removes a bill; shares and payments cascade.
func (s *SQLiteStore) DeleteBill(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "bills", id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("bill", id)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete bill: %w", err)
		}
		return nil
	})
}
