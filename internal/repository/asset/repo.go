package asset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/teerapatch/line-webhook/internal/model"
)

var ErrAssetNotFound = errors.New("asset not found")

// Repository provides persistence for stored media assets.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// SaveAsset inserts a new media asset record and returns its UUID.
func (r *Repository) SaveAsset(ctx context.Context, a model.MediaAsset) (uuid.UUID, error) {
	query := `
		INSERT INTO media_assets (user_id, message_id, kind, url, object_name, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal asset metadata: %w", err)
	}

	var id uuid.UUID
	err = r.db.QueryRowContext(
		ctx, query, a.UserID, a.MessageID, a.Kind, a.URL, a.ObjectName, metaJSON,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save: failed to save asset: %w", err)
	}

	return id, nil
}

// LatestByUser returns the user's image asset at the given offset when
// ordered by creation time descending. Offset 0 is the most recent
// image, offset 1 the one before it.
func (r *Repository) LatestByUser(ctx context.Context, userID string, offset int) (model.MediaAsset, error) {
	query := `
		SELECT id, user_id, message_id, kind, url, object_name, metadata, created_at
		FROM media_assets
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT 1 OFFSET $3
	`

	var a model.MediaAsset
	var metaBytes []byte

	err := r.db.QueryRowContext(
		ctx, query, userID, model.AssetKindImage, offset,
	).Scan(&a.ID, &a.UserID, &a.MessageID, &a.Kind, &a.URL, &a.ObjectName, &metaBytes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.MediaAsset{}, ErrAssetNotFound
		}

		return model.MediaAsset{}, fmt.Errorf("latest: failed to get asset: %w", err)
	}

	if err := json.Unmarshal(metaBytes, &a.Metadata); err != nil {
		return model.MediaAsset{}, fmt.Errorf("latest: failed to unmarshal metadata: %w", err)
	}

	return a, nil
}
