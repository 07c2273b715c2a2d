// Package walkthroughs persists walkthroughs, their steps and the recording requests that produce them.
package walkthroughs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shookla/walkthroughs/internal/models"
)

// Repository handles users, walkthroughs, walkthrough_steps and recording_requests persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a walkthroughs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUser returns the user or nil if it does not exist.
func (r *Repository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const q = `SELECT id, username, password, email, role, created_at FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.Password, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateWalkthrough inserts w and fills its id and timestamps.
func (r *Repository) CreateWalkthrough(ctx context.Context, w *models.Walkthrough) error {
	if w.Status == "" {
		w.Status = models.WalkthroughStatusCompleted
	}
	const q = `INSERT INTO walkthroughs (title, description, target_app, target_url, user_type, environment, status, video_url, script_content, duration, email_sent, created_by)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, NULLIF($8,''), NULLIF($9,''), $10, $11, $12)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, w.Title, w.Description, w.TargetApp, w.TargetURL, w.UserType, w.Environment, w.Status,
		w.VideoURL, w.ScriptContent, w.Duration, w.EmailSent, w.CreatedBy).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

const walkthroughColumns = `id, title, COALESCE(description,''), target_app, target_url, user_type, environment, status,
	COALESCE(video_url,''), COALESCE(s3_key,''), COALESCE(script_content,''), COALESCE(duration,0), email_sent, COALESCE(created_by,0), created_at, updated_at`

// GetWalkthrough returns the walkthrough or nil if it does not exist.
func (r *Repository) GetWalkthrough(ctx context.Context, id int64) (*models.Walkthrough, error) {
	q := `SELECT ` + walkthroughColumns + ` FROM walkthroughs WHERE id = $1`
	var w models.Walkthrough
	err := r.pool.QueryRow(ctx, q, id).Scan(&w.ID, &w.Title, &w.Description, &w.TargetApp, &w.TargetURL, &w.UserType, &w.Environment,
		&w.Status, &w.VideoURL, &w.S3Key, &w.ScriptContent, &w.Duration, &w.EmailSent, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateS3Result records where the recording was published.
func (r *Repository) UpdateS3Result(ctx context.Context, id int64, s3Key, videoURL string) error {
	const q = `UPDATE walkthroughs SET s3_key = $1, video_url = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, s3Key, videoURL, id)
	return err
}

// SetEmailSent flags whether the ready notification was delivered.
func (r *Repository) SetEmailSent(ctx context.Context, id int64, sent bool) error {
	const q = `UPDATE walkthroughs SET email_sent = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, sent, id)
	return err
}

// ReplaceSteps stores steps for a walkthrough, replacing any existing ones.
func (r *Repository) ReplaceSteps(ctx context.Context, walkthroughID int64, steps []models.Step) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM walkthrough_steps WHERE walkthrough_id = $1`, walkthroughID); err != nil {
		return err
	}
	const q = `INSERT INTO walkthrough_steps (walkthrough_id, step_number, action_type, target_element, instructions, data)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, $6)`
	for _, s := range steps {
		var data []byte
		if len(s.Data) > 0 {
			data = s.Data
		}
		if _, err := tx.Exec(ctx, q, walkthroughID, s.StepNumber, string(s.ActionType), s.TargetElement, s.Instructions, data); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListSteps returns the steps of a walkthrough in order.
func (r *Repository) ListSteps(ctx context.Context, walkthroughID int64) ([]models.Step, error) {
	const q = `SELECT step_number, action_type, COALESCE(target_element,''), instructions, data
		FROM walkthrough_steps WHERE walkthrough_id = $1 ORDER BY step_number`
	rows, err := r.pool.Query(ctx, q, walkthroughID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Step
	for rows.Next() {
		var s models.Step
		var action string
		var data []byte
		if err := rows.Scan(&s.StepNumber, &action, &s.TargetElement, &s.Instructions, &data); err != nil {
			return nil, err
		}
		s.ActionType = models.StepAction(action)
		if len(data) > 0 {
			s.Data = data
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// CreateRecordingRequest inserts req. PasswordHash must already be hashed.
func (r *Repository) CreateRecordingRequest(ctx context.Context, req *models.RecordingRequest) error {
	if req.Status == "" {
		req.Status = string(models.SessionStatusPending)
	}
	const q = `INSERT INTO recording_requests (username, password, user_prompt, target_url, email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, req.Username, req.PasswordHash, req.UserPrompt, req.TargetURL, req.Email, req.Status).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

// UpdateRecordingRequest applies the non-empty fields of upd.
func (r *Repository) UpdateRecordingRequest(ctx context.Context, id int64, upd models.RecordingRequestUpdate) error {
	const q = `UPDATE recording_requests
		SET walkthrough_id = COALESCE($1, walkthrough_id),
		    status = COALESCE(NULLIF($2,''), status),
		    updated_at = NOW()
		WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, upd.WalkthroughID, upd.Status, id)
	return err
}

// ListRecordingRequests returns all recording requests, newest first.
func (r *Repository) ListRecordingRequests(ctx context.Context) ([]models.RecordingRequest, error) {
	const q = `SELECT id, username, user_prompt, target_url, email, status, walkthrough_id, created_at, updated_at
		FROM recording_requests ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RecordingRequest
	for rows.Next() {
		var req models.RecordingRequest
		if err := rows.Scan(&req.ID, &req.Username, &req.UserPrompt, &req.TargetURL, &req.Email, &req.Status, &req.WalkthroughID, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, req)
	}
	return list, rows.Err()
}
