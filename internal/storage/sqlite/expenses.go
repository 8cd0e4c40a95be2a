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

// CreateExpense persists an expense and its assignments in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, splitbill_id, title, amount, split_type, paid_by_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.SplitbillID, expense.Title, expense.Amount,
		expense.Type, expense.PaidByID, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertAssignments(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertAssignments(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for i := range expense.Assignments {
		a := &expense.Assignments[i]
		a.ExpenseID = expense.ID
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO assignments (id, expense_id, member_id, share_amount)
			 VALUES (?, ?, ?, ?)`,
			a.ID, a.ExpenseID, a.MemberID, a.ShareAmount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}
	return nil
}

// GetExpense retrieves an expense with its assignments.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense := &models.Expense{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, splitbill_id, title, amount, split_type, paid_by_id, created_at
		 FROM expenses WHERE id = ?`,
		id,
	).Scan(&expense.ID, &expense.SplitbillID, &expense.Title, &expense.Amount,
		&expense.Type, &expense.PaidByID, &expense.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, expense_id, member_id, share_amount FROM assignments WHERE expense_id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.ExpenseID, &a.MemberID, &a.ShareAmount); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		expense.Assignments = append(expense.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return expense, nil
}

// ListExpenses lists a splitbill's expenses with their assignments, oldest
// first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, splitbillID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, splitbill_id, title, amount, split_type, paid_by_id, created_at
		 FROM expenses WHERE splitbill_id = ? ORDER BY created_at, id`,
		splitbillID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense := &models.Expense{}
		if err := rows.Scan(&expense.ID, &expense.SplitbillID, &expense.Title, &expense.Amount,
			&expense.Type, &expense.PaidByID, &expense.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
		byID[expense.ID] = expense
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	assignRows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.expense_id, a.member_id, a.share_amount
		 FROM assignments a
		 JOIN expenses e ON e.id = a.expense_id
		 WHERE e.splitbill_id = ?
		 ORDER BY a.expense_id, a.id`,
		splitbillID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer assignRows.Close()

	for assignRows.Next() {
		var a models.Assignment
		if err := assignRows.Scan(&a.ID, &a.ExpenseID, &a.MemberID, &a.ShareAmount); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if expense, ok := byID[a.ExpenseID]; ok {
			expense.Assignments = append(expense.Assignments, a)
		}
	}
	if err := assignRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return expenses, nil
}

// UpdateExpense rewrites an expense and replaces its assignment set in one
// transaction.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET title = ?, amount = ?, split_type = ?, paid_by_id = ? WHERE id = ?`,
		expense.Title, expense.Amount, expense.Type, expense.PaidByID, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check expense update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE expense_id = ?`, expense.ID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	for i := range expense.Assignments {
		expense.Assignments[i].ID = ""
	}
	if err := insertAssignments(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteExpense removes an expense; assignments go with it via cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check expense delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}

	return nil
}
