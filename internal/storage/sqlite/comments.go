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

// CreateComment persists a comment.
func (s *SQLiteStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt == 0 {
		comment.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, splitbill_id, author_member_id, text, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.ID, comment.SplitbillID, comment.AuthorMemberID, comment.Text, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	return nil
}

// ListComments lists a splitbill's comments, oldest first.
func (s *SQLiteStore) ListComments(ctx context.Context, splitbillID string) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, splitbill_id, author_member_id, text, created_at
		 FROM comments WHERE splitbill_id = ? ORDER BY created_at, id`,
		splitbillID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(&c.ID, &c.SplitbillID, &c.AuthorMemberID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}

	return comments, nil
}

// CreateGuestLink persists a guest access link.
func (s *SQLiteStore) CreateGuestLink(ctx context.Context, link *models.GuestLink) error {
	if link.CreatedAt == 0 {
		link.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guest_links (token, splitbill_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		link.Token, link.SplitbillID, link.ExpiresAt, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert guest link: %w", err)
	}

	return nil
}

// GetGuestLink retrieves a guest link by token.
func (s *SQLiteStore) GetGuestLink(ctx context.Context, token string) (*models.GuestLink, error) {
	link := &models.GuestLink{}
	err := s.db.QueryRowContext(ctx,
		`SELECT token, splitbill_id, expires_at, created_at FROM guest_links WHERE token = ?`,
		token,
	).Scan(&link.Token, &link.SplitbillID, &link.ExpiresAt, &link.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("guest link: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest link: %w", err)
	}

	return link, nil
}
