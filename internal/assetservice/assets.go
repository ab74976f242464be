package assetservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/models"
	"github.com/starford/brandvault/internal/sse"
	"github.com/starford/brandvault/internal/storage"
)

// CreateAsset assigns an id when in has none, stores the uploaded files and
// saves the record. A secondary file is only accepted for logo versions.
// Uploaded objects are removed again when the save fails.
func (s *Service) CreateAsset(ctx context.Context, in models.BrandAsset, primary, secondary *Upload) (*models.BrandAsset, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown asset type %q", apperr.ErrInvalid, in.Type)
	}
	if secondary != nil && in.Type != models.AssetLogoVersion {
		return nil, fmt.Errorf("%w: only logo-version assets take a secondary file", apperr.ErrInvalid)
	}
	if in.ID == "" {
		in.ID = s.newID()
	} else if _, err := s.assets.Get(ctx, in.ID); err == nil {
		return nil, fmt.Errorf("asset %s: %w", in.ID, apperr.ErrAlreadyExists)
	}
	if in.Type.FileBacked() && primary == nil && in.URL == "" {
		return nil, fmt.Errorf("%w: %s assets need a file or url", apperr.ErrInvalid, in.Type)
	}

	var uploaded []string
	if primary != nil {
		key, url, format, err := s.put(ctx, storage.AssetKey(string(in.Type), in.ID, primary.Filename), primary)
		if err != nil {
			return nil, fmt.Errorf("store asset file: %w", err)
		}
		uploaded = append(uploaded, key)
		in.FileKey, in.URL, in.Format = key, url, format
		if in.Type == models.AssetFont && in.FontURL == "" {
			in.FontURL = url
		}
	}
	if secondary != nil {
		key, url, format, err := s.put(ctx, storage.AssetKey(string(in.Type), in.ID, "secondary-"+secondary.Filename), secondary)
		if err != nil {
			s.discard(ctx, uploaded...)
			return nil, fmt.Errorf("store secondary file: %w", err)
		}
		uploaded = append(uploaded, key)
		in.SecondaryFileKey, in.SecondaryURL, in.SecondaryFormat = key, url, format
	}

	saved, err := s.assets.Save(ctx, in)
	if err != nil {
		s.discard(ctx, uploaded...)
		return nil, err
	}
	s.logger.Info("asset created", slog.String("id", saved.ID), slog.String("type", string(saved.Type)))
	s.publish(sse.EntityAsset, sse.KindCreated, saved.ID)
	return saved, nil
}

// UpdateAsset applies patch to the asset. When file is set it replaces the
// primary file. The new object never shares the live key, so a failed save
// leaves the current file untouched; the superseded object is removed after
// the save succeeds.
func (s *Service) UpdateAsset(ctx context.Context, id string, patch models.AssetPatch, file *Upload) (*models.BrandAsset, error) {
	cur, err := s.assets.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var newKey string
	if file != nil {
		target := storage.AssetKey(string(cur.Type), cur.ID, file.Filename)
		if target == cur.FileKey || target == cur.SecondaryFileKey {
			target = storage.AssetKey(string(cur.Type), cur.ID, uuid.New().String()[:8]+"-"+file.Filename)
		}
		key, url, format, err := s.put(ctx, target, file)
		if err != nil {
			return nil, fmt.Errorf("store asset file: %w", err)
		}
		newKey = key
		patch.FileKey, patch.URL, patch.Format = &key, &url, &format
	}

	saved, err := s.assets.Update(ctx, id, patch)
	if err != nil {
		s.discard(ctx, newKey)
		return nil, err
	}
	if newKey != "" {
		s.discard(ctx, cur.FileKey)
	}
	s.publish(sse.EntityAsset, sse.KindUpdated, saved.ID)
	return saved, nil
}

// DeleteAsset removes the record, then its files. It returns false when the
// asset did not exist.
func (s *Service) DeleteAsset(ctx context.Context, id string) (bool, error) {
	cur, err := s.assets.Get(ctx, id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}
	ok, err := s.assets.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	if cur != nil {
		s.discard(ctx, cur.FileKey, cur.SecondaryFileKey)
	}
	s.logger.Info("asset deleted", slog.String("id", id))
	s.publish(sse.EntityAsset, sse.KindDeleted, id)
	return true, nil
}
