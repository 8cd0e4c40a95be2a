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

// CreateUser inserts a new user. The unique index on email rejects
// duplicate registrations.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	if user.UpdatedAt == 0 {
		user.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, status, activation_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Status,
		user.ActivationToken, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.userBy(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userBy(ctx, "email = ?", email)
}

// GetUserByActivationToken retrieves the user holding an activation token.
func (s *SQLiteStore) GetUserByActivationToken(ctx context.Context, token string) (*models.User, error) {
	return s.userBy(ctx, "activation_token = ? AND activation_token != ''", token)
}

func (s *SQLiteStore) userBy(ctx context.Context, where string, args ...interface{}) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, status, activation_token, created_at, updated_at
		FROM users
		WHERE ` + where

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Status,
		&user.ActivationToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ActivateUser flips a user to active and burns the activation token.
func (s *SQLiteStore) ActivateUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = ?, activation_token = '', updated_at = ? WHERE id = ?`,
		models.UserActive, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check activation result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}

	return nil
}

// CreatePasswordReset inserts a password reset token.
func (s *SQLiteStore) CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	if reset.CreatedAt == 0 {
		reset.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO password_resets (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		reset.Token, reset.UserID, reset.ExpiresAt, reset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert password reset: %w", err)
	}

	return nil
}

// GetPasswordReset retrieves a password reset by token.
func (s *SQLiteStore) GetPasswordReset(ctx context.Context, token string) (*models.PasswordReset, error) {
	reset := &models.PasswordReset{}
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at, created_at FROM password_resets WHERE token = ?`,
		token,
	).Scan(&reset.Token, &reset.UserID, &reset.ExpiresAt, &reset.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("password reset: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}

	return reset, nil
}

// ResetPassword sets a new password hash and burns every outstanding reset
// token for the user in one transaction.
func (s *SQLiteStore) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check password update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM password_resets WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("failed to burn reset tokens: %w", err)
	}

	return tx.Commit()
}
