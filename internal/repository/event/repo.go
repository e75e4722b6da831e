package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
)

// Repository stores raw webhook deliveries for audit and replay.
// The table is append-only; rows are never updated or deleted.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// SaveBatch inserts one raw delivery payload and returns its UUID.
func (r *Repository) SaveBatch(ctx context.Context, destination string, payload []byte) (uuid.UUID, error) {
	query := `
		INSERT INTO webhook_events (destination, payload)
		VALUES ($1, $2)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, query, destination, payload).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save batch: failed to save webhook payload: %w", err)
	}

	return id, nil
}
