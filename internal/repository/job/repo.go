package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/teerapatch/line-webhook/internal/model"
)

// Repository provides persistence for user-selected job records.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// SaveJob inserts a new job record and returns its UUID.
func (r *Repository) SaveJob(ctx context.Context, j model.Job) (uuid.UUID, error) {
	query := `
		INSERT INTO job_records (user_id, asset_id, job_kind, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRowContext(
		ctx, query, j.UserID, j.AssetID, j.Kind, j.Status,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save: failed to save job: %w", err)
	}

	return id, nil
}

// CountRecent returns how many jobs of the given kind the user created
// at or after the given time. Used for duplicate-selection suppression.
func (r *Repository) CountRecent(ctx context.Context, userID string, kind model.JobKind, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM job_records
		WHERE user_id = $1 AND job_kind = $2 AND created_at >= $3
	`

	var n int
	err := r.db.QueryRowContext(ctx, query, userID, kind, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent: failed to count jobs: %w", err)
	}

	return n, nil
}
