package model

import (
	"time"

	"github.com/google/uuid"
)

// AssetKindImage is the only asset kind produced today.
const AssetKindImage = "image"

// AssetMetadata describes the stored object. Persisted as jsonb.
type AssetMetadata struct {
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int64  `json:"size"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// MediaAsset is a stored copy of user-submitted binary content plus its
// object-storage descriptor. Created exactly once per stored image and
// never updated.
type MediaAsset struct {
	ID         uuid.UUID     `json:"id"`
	UserID     string        `json:"user_id"`
	MessageID  string        `json:"message_id"`
	Kind       string        `json:"kind"`
	URL        string        `json:"url"`
	ObjectName string        `json:"object_name"`
	Metadata   AssetMetadata `json:"metadata"`
	CreatedAt  time.Time     `json:"created_at"`
}
