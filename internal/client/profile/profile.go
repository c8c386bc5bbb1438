// Package profile reads and edits the signed-in user's profile document and
// profile photo.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/packsync/packsync/internal/blob"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/imaging"
)

// Identity reports the signed-in user; "" means nobody.
type Identity interface {
	CurrentUserID() string
}

// Service edits users/{uid} for the current user.
type Service struct {
	store    docstore.Store
	blobs    blob.Store
	identity Identity
}

// NewService returns a Service.
func NewService(store docstore.Store, blobs blob.Store, identity Identity) *Service {
	return &Service{store: store, blobs: blobs, identity: identity}
}

// Load returns the current user's profile. A user without a profile
// document gets an empty profile.
func (s *Service) Load(ctx context.Context) (domain.Profile, error) {
	uid := s.identity.CurrentUserID()
	if uid == "" {
		return domain.Profile{}, fmt.Errorf("profile.Service.Load: %w", domain.ErrAuthRequired)
	}
	doc, err := s.store.Get(ctx, domain.UsersCollection, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Profile{ID: uid}, nil
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("profile.Service.Load: %w", err)
	}
	// Malformed fields fall back to "", which is fine for display.
	p, _ := domain.DecodeProfile(uid, doc.Fields)
	return p, nil
}

// Save merges a new display name and email into the profile.
func (s *Service) Save(ctx context.Context, displayName, email string) error {
	uid := s.identity.CurrentUserID()
	if uid == "" {
		return fmt.Errorf("profile.Service.Save: %w", domain.ErrAuthRequired)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return fmt.Errorf("profile.Service.Save: %w: display name is required", domain.ErrValidation)
	}
	fields := map[string]any{"displayName": displayName, "email": strings.TrimSpace(email)}
	if err := s.store.SetFields(ctx, domain.UsersCollection, uid, fields, true); err != nil {
		return fmt.Errorf("profile.Service.Save: %w",
			&domain.WriteError{Op: "set", Collection: domain.UsersCollection, ID: uid, Err: err})
	}
	return nil
}

// UploadPhoto shrinks the picture in r, stores it as the user's profile
// photo and records its download URL on the profile.
func (s *Service) UploadPhoto(ctx context.Context, r io.Reader) (string, error) {
	uid := s.identity.CurrentUserID()
	if uid == "" {
		return "", fmt.Errorf("profile.Service.UploadPhoto: %w", domain.ErrAuthRequired)
	}
	photo, err := imaging.PrepareProfilePhoto(r)
	if err != nil {
		return "", fmt.Errorf("profile.Service.UploadPhoto: %w", err)
	}

	path := domain.ProfileImagePath(uid)
	if err := s.blobs.Upload(ctx, path, photo.Data, imaging.ContentType); err != nil {
		return "", fmt.Errorf("profile.Service.UploadPhoto: uploading: %w", err)
	}
	url, err := s.blobs.DownloadURL(ctx, path)
	if err != nil {
		return "", fmt.Errorf("profile.Service.UploadPhoto: download url: %w", err)
	}

	fields := map[string]any{"profileImageUrl": url}
	if err := s.store.SetFields(ctx, domain.UsersCollection, uid, fields, true); err != nil {
		return "", fmt.Errorf("profile.Service.UploadPhoto: %w",
			&domain.WriteError{Op: "set", Collection: domain.UsersCollection, ID: uid, Err: err})
	}
	return url, nil
}
