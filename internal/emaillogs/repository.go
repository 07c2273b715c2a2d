// Package emaillogs records every notification delivery attempt.
package emaillogs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shookla/walkthroughs/internal/models"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a delivery attempt and fills its id and created_at.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (session_id, request_id, email_type, recipient_email, subject, status, sent_at, error_message)
		VALUES (NULLIF($1,''), $2, $3, $4, NULLIF($5,''), $6, $7, NULLIF($8,''))
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, el.SessionID, el.RequestID, el.EmailType, el.RecipientEmail, el.Subject, el.Status, el.SentAt, el.ErrorMessage).
		Scan(&el.ID, &el.CreatedAt)
}

// List returns the most recent email logs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]*models.EmailLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	const q = `SELECT id, session_id, request_id, email_type, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var sessionID, subject, errMsg *string
		if err := rows.Scan(&el.ID, &sessionID, &el.RequestID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if sessionID != nil {
			el.SessionID = *sessionID
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
