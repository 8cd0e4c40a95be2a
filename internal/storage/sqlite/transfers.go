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

// CreateTransfer persists a transfer.
func (s *SQLiteStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transfers (id, splitbill_id, title, amount, given_by_id, given_to_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		transfer.ID, transfer.SplitbillID, transfer.Title, transfer.Amount,
		transfer.GivenByID, transfer.GivenToID, transfer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

// GetTransfer retrieves a transfer by ID.
func (s *SQLiteStore) GetTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	transfer := &models.Transfer{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, splitbill_id, title, amount, given_by_id, given_to_id, created_at
		 FROM transfers WHERE id = ?`,
		id,
	).Scan(&transfer.ID, &transfer.SplitbillID, &transfer.Title, &transfer.Amount,
		&transfer.GivenByID, &transfer.GivenToID, &transfer.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transfer %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}

	return transfer, nil
}

// ListTransfers lists a splitbill's transfers, oldest first.
func (s *SQLiteStore) ListTransfers(ctx context.Context, splitbillID string) ([]*models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, splitbill_id, title, amount, given_by_id, given_to_id, created_at
		 FROM transfers WHERE splitbill_id = ? ORDER BY created_at, id`,
		splitbillID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer := &models.Transfer{}
		if err := rows.Scan(&transfer.ID, &transfer.SplitbillID, &transfer.Title, &transfer.Amount,
			&transfer.GivenByID, &transfer.GivenToID, &transfer.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}

	return transfers, nil
}

// UpdateTransfer rewrites a transfer.
func (s *SQLiteStore) UpdateTransfer(ctx context.Context, transfer *models.Transfer) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transfers SET title = ?, amount = ?, given_by_id = ?, given_to_id = ? WHERE id = ?`,
		transfer.Title, transfer.Amount, transfer.GivenByID, transfer.GivenToID, transfer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check transfer update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transfer %s: %w", transfer.ID, storage.ErrNotFound)
	}

	return nil
}

// DeleteTransfer removes a transfer.
func (s *SQLiteStore) DeleteTransfer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transfers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check transfer delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transfer %s: %w", id, storage.ErrNotFound)
	}

	return nil
}
