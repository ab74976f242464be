package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/models"
)

const (
	imagePrefix     = "image:"
	imagesAllKey    = "images:all"
	imagesTypeKey   = "images:type:"
	imageEmotionKey = "images:emotion:"
)

func imageKey(id string) string                { return imagePrefix + id }
func imageEmotionsKey(id string) string        { return imagePrefix + id + ":emotions" }
func imageTypeIndex(t models.ImageType) string { return imagesTypeKey + string(t) }
func imageEmotionIndex(e string) string        { return imageEmotionKey + e }

// Images is the compositing image repository.
type Images struct {
	store  kv.Store
	logger *slog.Logger
	opts   options
}

// NewImages creates an image repository on store.
func NewImages(store kv.Store, logger *slog.Logger, opts ...Option) *Images {
	return &Images{store: store, logger: orDiscard(logger), opts: buildOptions(opts)}
}

// Save upserts the full record. A changed type or emotion set moves the id
// out of the indices the previous version joined.
func (r *Images) Save(ctx context.Context, img models.ImageMetadata) (*models.ImageMetadata, error) {
	rec := img
	rec.Emotions = append([]string{}, img.Emotions...)
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	prev, err := r.load(ctx, rec.ID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("catalog: save image %s: %w", rec.ID, err)
	}

	var staleIndices []string
	if prev != nil {
		if prev.Type != rec.Type {
			staleIndices = append(staleIndices, imageTypeIndex(prev.Type))
		}
		for _, e := range missing(normalize(prev.Emotions), normalize(rec.Emotions)) {
			staleIndices = append(staleIndices, imageEmotionIndex(e))
		}
		if rec.UploadedAt.IsZero() {
			rec.UploadedAt = prev.UploadedAt
		}
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = r.opts.now()
	}
	rec.UploadedAt = rec.UploadedAt.UTC()

	id := rec.ID
	err = r.store.Atomic(ctx, func(w kv.Writer) error {
		if err := w.Del(ctx, imageKey(id), imageEmotionsKey(id)); err != nil {
			return err
		}
		if err := w.HSet(ctx, imageKey(id), encodeImage(&rec)); err != nil {
			return err
		}
		if err := w.RPush(ctx, imageEmotionsKey(id), rec.Emotions...); err != nil {
			return err
		}
		if err := w.SAdd(ctx, imagesAllKey, id); err != nil {
			return err
		}
		if err := w.SAdd(ctx, imageTypeIndex(rec.Type), id); err != nil {
			return err
		}
		for _, e := range normalize(rec.Emotions) {
			if err := w.SAdd(ctx, imageEmotionIndex(e), id); err != nil {
				return err
			}
		}
		for _, idx := range staleIndices {
			if err := w.SRem(ctx, idx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: save image %s: %w", id, err)
	}
	return &rec, nil
}

// Get returns the image or apperr.ErrNotFound.
func (r *Images) Get(ctx context.Context, id string) (*models.ImageMetadata, error) {
	img, err := r.load(ctx, id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			r.logger.Warn("get image failed", slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil, apperr.ErrNotFound
	}
	return img, nil
}

// GetAll returns every image, newest first.
func (r *Images) GetAll(ctx context.Context) []models.ImageMetadata {
	return r.hydrate(ctx, r.members(ctx, imagesAllKey))
}

// GetByType returns the images of one layer type.
func (r *Images) GetByType(ctx context.Context, t models.ImageType) []models.ImageMetadata {
	if !t.Valid() {
		return []models.ImageMetadata{}
	}
	return r.hydrate(ctx, r.members(ctx, imageTypeIndex(t)))
}

// GetByEmotion returns the images tagged with one emotion.
func (r *Images) GetByEmotion(ctx context.Context, emotion string) []models.ImageMetadata {
	return r.GetByEmotions(ctx, []string{emotion})
}

// GetByEmotions returns the images tagged with ANY of the emotions: the
// union of the per-emotion results, each image once.
func (r *Images) GetByEmotions(ctx context.Context, emotions []string) []models.ImageMetadata {
	norm := normalize(emotions)
	if len(norm) == 0 {
		return []models.ImageMetadata{}
	}
	keys := make([]string, len(norm))
	for i, e := range norm {
		keys[i] = imageEmotionIndex(e)
	}
	ids, err := r.store.SUnion(ctx, keys...)
	if err != nil {
		r.logger.Warn("read emotion indices failed", slog.Any("emotions", norm), slog.String("error", err.Error()))
		return []models.ImageMetadata{}
	}
	return r.hydrate(ctx, ids)
}

// Delete removes the image and prunes it from its type and emotion indices.
// A missing image is not an error.
func (r *Images) Delete(ctx context.Context, id string) (bool, error) {
	prev, err := r.load(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		r.logger.Debug("image not found, nothing to delete", slog.String("id", id))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: delete image %s: %w", id, err)
	}

	emotions := normalize(prev.Emotions)
	err = r.store.Atomic(ctx, func(w kv.Writer) error {
		if err := w.Del(ctx, imageKey(id), imageEmotionsKey(id)); err != nil {
			return err
		}
		if err := w.SRem(ctx, imagesAllKey, id); err != nil {
			return err
		}
		if err := w.SRem(ctx, imageTypeIndex(prev.Type), id); err != nil {
			return err
		}
		for _, e := range emotions {
			if err := w.SRem(ctx, imageEmotionIndex(e), id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("catalog: delete image %s: %w", id, err)
	}
	r.logger.Info("image deleted",
		slog.String("id", id),
		slog.String("type_index", imageTypeIndex(prev.Type)),
		slog.Any("emotion_indices", emotions))
	return true, nil
}

func (r *Images) load(ctx context.Context, id string) (*models.ImageMetadata, error) {
	if !models.ValidID(id) {
		return nil, apperr.ErrNotFound
	}
	h, err := r.store.HGetAll(ctx, imageKey(id))
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, apperr.ErrNotFound
	}
	img := decodeImage(h)
	if img.ID == "" {
		img.ID = id
	}
	emotions, err := r.store.LRange(ctx, imageEmotionsKey(id))
	if err != nil {
		return nil, err
	}
	img.Emotions = listOrLegacy(emotions, h, "emotions")
	return img, nil
}

func (r *Images) members(ctx context.Context, key string) []string {
	ids, err := r.store.SMembers(ctx, key)
	if err != nil {
		r.logger.Warn("read image index failed", slog.String("index", key), slog.String("error", err.Error()))
		return nil
	}
	return ids
}

func (r *Images) hydrate(ctx context.Context, ids []string) []models.ImageMetadata {
	out := make([]models.ImageMetadata, 0, len(ids))
	for _, id := range ids {
		img, err := r.load(ctx, id)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				r.logger.Warn("load image failed", slog.String("id", id), slog.String("error", err.Error()))
			}
			continue
		}
		out = append(out, *img)
	}
	SortImages(out)
	return out
}
