package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"splitbill/internal/models"
	"splitbill/internal/storage"
)

// CreateSplitbill persists a splitbill and its initial members in one
// transaction.
func (s *SQLiteStore) CreateSplitbill(ctx context.Context, bill *models.Splitbill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Status == "" {
		bill.Status = models.StatusActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO splitbills (id, title, currency, owner_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.Title, bill.Currency, bill.OwnerID, bill.Status, bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert splitbill: %w", err)
	}

	for i := range bill.Members {
		m := &bill.Members[i]
		m.SplitbillID = bill.ID
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.CreatedAt == 0 {
			m.CreatedAt = bill.CreatedAt
		}
		if err := insertMember(ctx, tx, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertMember(ctx context.Context, tx *sql.Tx, m *models.Member) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO members (id, splitbill_id, alias, email, user_id, invited_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SplitbillID, m.Alias, m.Email, m.UserID, m.InvitedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member %s: %w", m.Alias, err)
	}
	return nil
}

// GetSplitbill retrieves a splitbill with its members.
func (s *SQLiteStore) GetSplitbill(ctx context.Context, id string) (*models.Splitbill, error) {
	bill := &models.Splitbill{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, currency, owner_id, status, created_at FROM splitbills WHERE id = ?`,
		id,
	).Scan(&bill.ID, &bill.Title, &bill.Currency, &bill.OwnerID, &bill.Status, &bill.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("splitbill %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get splitbill: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, splitbill_id, alias, email, user_id, invited_by, created_at
		 FROM members WHERE splitbill_id = ? ORDER BY created_at, alias`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.SplitbillID, &m.Alias, &m.Email, &m.UserID, &m.InvitedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		bill.Members = append(bill.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return bill, nil
}

// ListSplitbillsByUser lists every splitbill the user is a member of,
// newest first. Members are not loaded for the list view.
func (s *SQLiteStore) ListSplitbillsByUser(ctx context.Context, userID string) ([]*models.Splitbill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT s.id, s.title, s.currency, s.owner_id, s.status, s.created_at
		 FROM splitbills s
		 JOIN members m ON m.splitbill_id = s.id
		 WHERE m.user_id = ?
		 ORDER BY s.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splitbills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Splitbill
	for rows.Next() {
		bill := &models.Splitbill{}
		if err := rows.Scan(&bill.ID, &bill.Title, &bill.Currency, &bill.OwnerID, &bill.Status, &bill.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan splitbill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splitbills: %w", err)
	}

	return bills, nil
}

// UpdateSplitbill rewrites title, currency and status.
func (s *SQLiteStore) UpdateSplitbill(ctx context.Context, bill *models.Splitbill) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE splitbills SET title = ?, currency = ?, status = ? WHERE id = ?`,
		bill.Title, bill.Currency, bill.Status, bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update splitbill: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check splitbill update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("splitbill %s: %w", bill.ID, storage.ErrNotFound)
	}

	return nil
}

// AddMember adds one member to an existing splitbill.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, splitbill_id, alias, email, user_id, invited_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		member.ID, member.SplitbillID, member.Alias, member.Email, member.UserID,
		member.InvitedBy, member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}

	return nil
}

// RemoveMember deletes a member from a splitbill.
func (s *SQLiteStore) RemoveMember(ctx context.Context, splitbillID, memberID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM members WHERE id = ? AND splitbill_id = ?`,
		memberID, splitbillID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check member delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}

	return nil
}

// ClaimPendingMembers links member rows invited under an email address to a
// freshly registered user and reports how many rows were claimed.
func (s *SQLiteStore) ClaimPendingMembers(ctx context.Context, email, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET user_id = ? WHERE user_id = '' AND email = ?`,
		userID, email,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending members: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count claimed members: %w", err)
	}

	return int(n), nil
}
