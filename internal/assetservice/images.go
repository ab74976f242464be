package assetservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/models"
	"github.com/starford/brandvault/internal/sse"
	"github.com/starford/brandvault/internal/storage"
)

// CreateImage stores file and saves its metadata. Filename defaults to the
// upload's name; the stored object is removed when the save fails.
func (s *Service) CreateImage(ctx context.Context, meta models.ImageMetadata, file Upload) (*models.ImageMetadata, error) {
	if !meta.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown image type %q", apperr.ErrInvalid, meta.Type)
	}
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", apperr.ErrInvalid)
	}
	if err := checkImage(file.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if meta.ID == "" {
		meta.ID = s.newID()
	}
	if meta.Filename == "" {
		meta.Filename = storage.SanitizeFilename(file.Filename)
	}
	if meta.Type == models.ImageForeground && !models.HasValue(meta.Emotions) {
		return nil, fmt.Errorf("%w: foreground images need at least one emotion", apperr.ErrInvalid)
	}

	key, url, _, err := s.put(ctx, storage.ImageKey(string(meta.Type), meta.ID, meta.Filename), &file)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	meta.FileKey, meta.URL = key, url

	saved, err := s.images.Save(ctx, meta)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	s.logger.Info("image created", slog.String("id", saved.ID), slog.String("type", string(saved.Type)))
	s.publish(sse.EntityImage, sse.KindCreated, saved.ID)
	return saved, nil
}

// DeleteImage removes the metadata, then the stored file.
func (s *Service) DeleteImage(ctx context.Context, id string) (bool, error) {
	cur, err := s.images.Get(ctx, id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}
	ok, err := s.images.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	if cur != nil {
		s.discard(ctx, cur.FileKey)
	}
	s.publish(sse.EntityImage, sse.KindDeleted, id)
	return true, nil
}

// ImportImage downloads an http(s) or data: URI and creates an image from it.
func (s *Service) ImportImage(ctx context.Context, rawURL string, meta models.ImageMetadata) (*models.ImageMetadata, error) {
	file, err := s.fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if meta.Filename != "" {
		file.Filename = meta.Filename
	}
	meta.Filename = ""
	return s.CreateImage(ctx, meta, *file)
}
