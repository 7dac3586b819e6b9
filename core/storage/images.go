package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ImageStore resolves image references stored on catalog rows to URLs the
// storefront can fetch. The catalog never processes pixels; it only carries
// references and asks this collaborator to turn them into links.
type ImageStore interface {
	// ResolveURL turns an image reference into a fetchable URL.
	ResolveURL(ctx context.Context, ref string) (string, error)
	// Exists reports whether the referenced object is present.
	Exists(ctx context.Context, ref string) (bool, error)
}

// imageStore serves presigned URLs from the configured bucket. References
// that are already absolute URLs pass through untouched, so operators can
// paste external links into the grid.
type imageStore struct {
	client Client
	bucket string
	expiry time.Duration
}

// NewImageStore creates an ImageStore backed by the storage client.
func NewImageStore(client Client, bucket string, expiry time.Duration) ImageStore {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &imageStore{client: client, bucket: bucket, expiry: expiry}
}

func (s *imageStore) ResolveURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty image reference")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", ref, err)
	}
	return u.String(), nil
}

func (s *imageStore) Exists(ctx context.Context, ref string) (bool, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		// External references are taken at face value.
		return true, nil
	}
	_, err := s.client.StatObject(ctx, s.bucket, ref, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
