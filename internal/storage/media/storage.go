package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const thumbnailSize = 240

// Object describes a stored media object.
type Object struct {
	URL          string
	ObjectName   string
	Format       string
	Width        int
	Height       int
	Size         int64
	ThumbnailURL string
}

// Storage provides an S3-compatible media storage backend using MinIO.
// Every saved image gets a preview thumbnail alongside the original so
// image replies can reference both URLs.
type Storage struct {
	client     *minio.Client
	bucketName string
	publicURL  string
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName, publicURL string, useSSL bool) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}, nil
}

// SaveImage decodes the image, uploads the original and a thumbnail to
// the bucket, and returns the stored-object descriptor.
func (s *Storage) SaveImage(ctx context.Context, userID, messageID string, data []byte) (Object, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Object{}, fmt.Errorf("failed to decode image: %w", err)
	}

	objectName := fmt.Sprintf("original/%s/%s.%s", userID, messageID, format)

	_, err = s.client.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/" + format,
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to save image: %w", err)
	}

	thumbName, err := s.saveThumbnail(ctx, img, userID, messageID)
	if err != nil {
		return Object{}, err
	}

	bounds := img.Bounds()

	return Object{
		URL:          s.objectURL(objectName),
		ObjectName:   objectName,
		Format:       format,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		Size:         int64(len(data)),
		ThumbnailURL: s.objectURL(thumbName),
	}, nil
}

// Load retrieves a stored object by name and returns a reader.
func (s *Storage) Load(ctx context.Context, objectName string) (*minio.Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load object: %w", err)
	}

	return obj, nil
}

// saveThumbnail generates a square JPEG preview and uploads it.
func (s *Storage) saveThumbnail(ctx context.Context, img image.Image, userID, messageID string) (string, error) {
	thumb := imaging.Thumbnail(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, thumb, imaging.JPEG); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	objectName := fmt.Sprintf("thumbnails/%s/%s.jpg", userID, messageID)

	_, err := s.client.PutObject(ctx, s.bucketName, objectName, buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	return objectName, nil
}

func (s *Storage) objectURL(objectName string) string {
	return s.publicURL + "/" + objectName
}
