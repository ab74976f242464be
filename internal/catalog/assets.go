package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/models"
)

const (
	assetPrefix   = "brand-asset:"
	assetsAllKey  = "brand-assets:all"
	assetsTypeKey = "brand-assets:type:"
	assetsTagKey  = "brand-assets:tag:"
)

func assetKey(id string) string                { return assetPrefix + id }
func assetTagsKey(id string) string            { return assetPrefix + id + ":tags" }
func assetWeightsKey(id string) string         { return assetPrefix + id + ":weights" }
func assetTypeIndex(t models.AssetType) string { return assetsTypeKey + string(t) }
func assetTagIndex(tag string) string          { return assetsTagKey + tag }

// Assets is the brand asset repository.
type Assets struct {
	store  kv.Store
	logger *slog.Logger
	opts   options
}

// NewAssets creates an asset repository on store.
func NewAssets(store kv.Store, logger *slog.Logger, opts ...Option) *Assets {
	return &Assets{store: store, logger: orDiscard(logger), opts: buildOptions(opts)}
}

// Save upserts the full record and asserts its index membership. The stored
// type and createdAt of an existing id are kept; updatedAt is set to now.
// Tag indices the previous version joined but this one does not are pruned.
func (r *Assets) Save(ctx context.Context, asset models.BrandAsset) (*models.BrandAsset, error) {
	rec := asset
	rec.Tags = append([]string{}, asset.Tags...)
	rec.Weights = append([]string(nil), asset.Weights...)
	if rec.Brand == "" {
		rec.Brand = r.opts.defaultBrand
	}
	if !models.ValidID(rec.ID) {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, rec.Validate())
	}

	prev, err := r.load(ctx, rec.ID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("catalog: save asset %s: %w", rec.ID, err)
	}

	now := r.opts.now().UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	var staleTags []string
	if prev != nil {
		if prev.Type != rec.Type {
			r.logger.Warn("asset type is immutable, keeping stored type",
				slog.String("id", rec.ID),
				slog.String("stored", string(prev.Type)),
				slog.String("requested", string(rec.Type)))
			rec.Type = prev.Type
		}
		rec.CreatedAt = prev.CreatedAt
		staleTags = missing(normalize(prev.Tags), normalize(rec.Tags))
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	// Validated after the merge so type rules apply to the stored type.
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	id := rec.ID
	err = r.store.Atomic(ctx, func(w kv.Writer) error {
		if err := w.Del(ctx, assetKey(id), assetTagsKey(id), assetWeightsKey(id)); err != nil {
			return err
		}
		if err := w.HSet(ctx, assetKey(id), encodeAsset(&rec)); err != nil {
			return err
		}
		if err := w.RPush(ctx, assetTagsKey(id), rec.Tags...); err != nil {
			return err
		}
		if err := w.RPush(ctx, assetWeightsKey(id), rec.Weights...); err != nil {
			return err
		}
		if err := w.SAdd(ctx, assetsAllKey, id); err != nil {
			return err
		}
		if err := w.SAdd(ctx, assetTypeIndex(rec.Type), id); err != nil {
			return err
		}
		for _, t := range normalize(rec.Tags) {
			if err := w.SAdd(ctx, assetTagIndex(t), id); err != nil {
				return err
			}
		}
		for _, t := range staleTags {
			if err := w.SRem(ctx, assetTagIndex(t), id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: save asset %s: %w", id, err)
	}
	return &rec, nil
}

// Update loads the asset, applies patch and saves it.
func (r *Assets) Update(ctx context.Context, id string, patch models.AssetPatch) (*models.BrandAsset, error) {
	cur, err := r.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: update asset %s: %w", id, err)
	}
	patch.Apply(cur)
	return r.Save(ctx, *cur)
}

// Get returns the asset or apperr.ErrNotFound. An unavailable store is
// logged and reported as not found.
func (r *Assets) Get(ctx context.Context, id string) (*models.BrandAsset, error) {
	a, err := r.load(ctx, id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			r.logger.Warn("get asset failed", slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil, apperr.ErrNotFound
	}
	return a, nil
}

// GetAll returns every asset in display order.
func (r *Assets) GetAll(ctx context.Context) []models.BrandAsset {
	return r.hydrate(ctx, r.members(ctx, assetsAllKey))
}

// GetByType returns the assets of one type.
func (r *Assets) GetByType(ctx context.Context, t models.AssetType) []models.BrandAsset {
	if !t.Valid() {
		return []models.BrandAsset{}
	}
	return r.hydrate(ctx, r.members(ctx, assetTypeIndex(t)))
}

// GetByBrand filters every asset by brand (case-insensitive). Brands are
// few, so there is no dedicated index.
func (r *Assets) GetByBrand(ctx context.Context, brand string) []models.BrandAsset {
	return filterBrand(r.GetAll(ctx), brand)
}

// GetByBrandAndType filters the type index by brand.
func (r *Assets) GetByBrandAndType(ctx context.Context, brand string, t models.AssetType) []models.BrandAsset {
	return filterBrand(r.GetByType(ctx, t), brand)
}

// GetByTag returns the assets carrying tag (case-insensitive).
func (r *Assets) GetByTag(ctx context.Context, tag string) []models.BrandAsset {
	n := normalize([]string{tag})
	if len(n) == 0 {
		return []models.BrandAsset{}
	}
	return r.hydrate(ctx, r.members(ctx, assetTagIndex(n[0])))
}

// Delete removes the asset and prunes it from every index it joined. It
// returns false without error when the asset does not exist.
func (r *Assets) Delete(ctx context.Context, id string) (bool, error) {
	prev, err := r.load(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: delete asset %s: %w", id, err)
	}

	indices := []string{assetsAllKey, assetTypeIndex(prev.Type)}
	for _, t := range normalize(prev.Tags) {
		indices = append(indices, assetTagIndex(t))
	}

	err = r.store.Atomic(ctx, func(w kv.Writer) error {
		if err := w.Del(ctx, assetKey(id), assetTagsKey(id), assetWeightsKey(id)); err != nil {
			return err
		}
		for _, idx := range indices {
			if err := w.SRem(ctx, idx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("catalog: delete asset %s: %w", id, err)
	}
	r.logger.Debug("asset deleted", slog.String("id", id), slog.String("indices", strings.Join(indices, ",")))
	return true, nil
}

// load reads one asset, returning storage errors as they are.
func (r *Assets) load(ctx context.Context, id string) (*models.BrandAsset, error) {
	if !models.ValidID(id) {
		return nil, apperr.ErrNotFound
	}
	h, err := r.store.HGetAll(ctx, assetKey(id))
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, apperr.ErrNotFound
	}
	a := decodeAsset(h)
	if a.ID == "" {
		a.ID = id
	}

	tags, err := r.store.LRange(ctx, assetTagsKey(id))
	if err != nil {
		return nil, err
	}
	weights, err := r.store.LRange(ctx, assetWeightsKey(id))
	if err != nil {
		return nil, err
	}
	a.Tags = listOrLegacy(tags, h, "tags")
	a.Weights = listOrLegacy(weights, h, "weights")
	if len(a.Weights) == 0 {
		a.Weights = nil
	}
	return a, nil
}

func (r *Assets) members(ctx context.Context, key string) []string {
	ids, err := r.store.SMembers(ctx, key)
	if err != nil {
		r.logger.Warn("read asset index failed", slog.String("index", key), slog.String("error", err.Error()))
		return nil
	}
	return ids
}

// hydrate loads each id, skipping ids whose primary record is gone.
func (r *Assets) hydrate(ctx context.Context, ids []string) []models.BrandAsset {
	out := make([]models.BrandAsset, 0, len(ids))
	for _, id := range ids {
		a, err := r.load(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				r.logger.Debug("index entry without record", slog.String("id", id))
			} else {
				r.logger.Warn("load asset failed", slog.String("id", id), slog.String("error", err.Error()))
			}
			continue
		}
		out = append(out, *a)
	}
	SortAssets(out)
	return out
}

func filterBrand(in []models.BrandAsset, brand string) []models.BrandAsset {
	out := make([]models.BrandAsset, 0, len(in))
	for _, a := range in {
		if strings.EqualFold(a.Brand, brand) {
			out = append(out, a)
		}
	}
	return out
}
