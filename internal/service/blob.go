package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/packsync/packsync/internal/auth"
	"github.com/packsync/packsync/internal/blob"
	"github.com/packsync/packsync/internal/domain"
)

// BlobService applies upload rules in front of a blob.Store.
type BlobService struct {
	store blob.Store
}

// NewBlobService constructs a BlobService.
func NewBlobService(store blob.Store) *BlobService {
	return &BlobService{store: store}
}

// Upload stores data at p. Objects under profile_images/ must be named after
// the caller (any extension).
func (s *BlobService) Upload(ctx context.Context, caller auth.Identity, p string, data []byte, contentType string) error {
	p, err := blob.CleanPath(p)
	if err != nil {
		return fmt.Errorf("service.BlobService.Upload: %w", err)
	}
	if rest, ok := strings.CutPrefix(p, domain.ProfileImagesPrefix); ok {
		if strings.TrimSuffix(rest, path.Ext(rest)) != caller.UserID {
			return fmt.Errorf("service.BlobService.Upload: %w", domain.ErrForbidden)
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.store.Upload(ctx, p, data, contentType); err != nil {
		return fmt.Errorf("service.BlobService.Upload: %w", err)
	}
	return nil
}

// DownloadURL returns a fetchable URL for p.
func (s *BlobService) DownloadURL(ctx context.Context, p string) (string, error) {
	p, err := blob.CleanPath(p)
	if err != nil {
		return "", fmt.Errorf("service.BlobService.DownloadURL: %w", err)
	}
	u, err := s.store.DownloadURL(ctx, p)
	if err != nil {
		return "", fmt.Errorf("service.BlobService.DownloadURL: %w", err)
	}
	return u, nil
}
