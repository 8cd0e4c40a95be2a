package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"splitbill/internal/models"
)

// ListBalances lists a splitbill's balance rows, active before settled,
// oldest first within each group.
func (s *SQLiteStore) ListBalances(ctx context.Context, splitbillID string) ([]*models.Balance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, splitbill_id, from_member_id, to_member_id, amount, status, created_at, updated_at
		 FROM balances WHERE splitbill_id = ? ORDER BY status, created_at, id`,
		splitbillID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []*models.Balance
	for rows.Next() {
		b := &models.Balance{}
		if err := rows.Scan(&b.ID, &b.SplitbillID, &b.FromMemberID, &b.ToMemberID,
			&b.Amount, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}

	return balances, nil
}

// ReplaceBalances applies one recompute's write set in a single
// transaction: amount/direction updates and settlements rewrite their rows
// in place, fresh debts are inserted as new active rows. Any failure rolls
// the whole set back.
func (s *SQLiteStore) ReplaceBalances(ctx context.Context, splitbillID string, update, settle, insert []models.Balance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()

	rewrite := func(rows []models.Balance) error {
		for _, b := range rows {
			_, err := tx.ExecContext(ctx,
				`UPDATE balances SET from_member_id = ?, to_member_id = ?, amount = ?, status = ?, updated_at = ?
				 WHERE id = ? AND splitbill_id = ?`,
				b.FromMemberID, b.ToMemberID, b.Amount, b.Status, now, b.ID, splitbillID,
			)
			if err != nil {
				return fmt.Errorf("failed to update balance %s: %w", b.ID, err)
			}
		}
		return nil
	}
	if err := rewrite(update); err != nil {
		return err
	}
	if err := rewrite(settle); err != nil {
		return err
	}

	for _, b := range insert {
		if b.ID == "" {
			b.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO balances (id, splitbill_id, from_member_id, to_member_id, amount, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, splitbillID, b.FromMemberID, b.ToMemberID, b.Amount, b.Status, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert balance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
