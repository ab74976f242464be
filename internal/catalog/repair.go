package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/models"
)

// RepairReport counts what a repair pass found.
type RepairReport struct {
	// Checked is the number of distinct ids seen in any index.
	Checked int `json:"checked"`
	// Reindexed is the number of live records whose indices were re-asserted.
	Reindexed int `json:"reindexed"`
	// Pruned is the number of ids removed because their record is gone.
	Pruned int `json:"pruned"`
}

func (r *RepairReport) add(o RepairReport) {
	r.Checked += o.Checked
	r.Reindexed += o.Reindexed
	r.Pruned += o.Pruned
}

// Repair removes dangling ids from the all and type indices and re-asserts
// the index membership of every live asset.
func (r *Assets) Repair(ctx context.Context) (RepairReport, error) {
	typeKeys := make([]string, len(models.AssetTypes))
	for i, t := range models.AssetTypes {
		typeKeys[i] = assetTypeIndex(t)
	}
	ids, err := r.store.SUnion(ctx, append([]string{assetsAllKey}, typeKeys...)...)
	if err != nil {
		return RepairReport{}, fmt.Errorf("catalog: repair assets: %w", err)
	}

	var rep RepairReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Checked++
		a, err := r.load(ctx, id)
		if err != nil && !isNotFound(err) {
			return rep, fmt.Errorf("catalog: repair asset %s: %w", id, err)
		}

		err = r.store.Atomic(ctx, func(w kv.Writer) error {
			if a == nil {
				if err := w.SRem(ctx, assetsAllKey, id); err != nil {
					return err
				}
				if err := w.Del(ctx, assetTagsKey(id), assetWeightsKey(id)); err != nil {
					return err
				}
				return sremAll(ctx, w, typeKeys, id)
			}
			if err := w.SAdd(ctx, assetsAllKey, id); err != nil {
				return err
			}
			if err := sremAll(ctx, w, without(typeKeys, assetTypeIndex(a.Type)), id); err != nil {
				return err
			}
			if err := w.SAdd(ctx, assetTypeIndex(a.Type), id); err != nil {
				return err
			}
			for _, t := range normalize(a.Tags) {
				if err := w.SAdd(ctx, assetTagIndex(t), id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return rep, fmt.Errorf("catalog: repair asset %s: %w", id, err)
		}
		if a == nil {
			rep.Pruned++
			r.logger.Info("pruned dangling asset id", slog.String("id", id))
		} else {
			rep.Reindexed++
		}
	}
	return rep, nil
}

// Repair removes dangling ids from the all and type indices and re-asserts
// the index membership of every live image.
func (r *Images) Repair(ctx context.Context) (RepairReport, error) {
	typeKeys := make([]string, len(models.ImageTypes))
	for i, t := range models.ImageTypes {
		typeKeys[i] = imageTypeIndex(t)
	}
	ids, err := r.store.SUnion(ctx, append([]string{imagesAllKey}, typeKeys...)...)
	if err != nil {
		return RepairReport{}, fmt.Errorf("catalog: repair images: %w", err)
	}

	var rep RepairReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Checked++
		img, err := r.load(ctx, id)
		if err != nil && !isNotFound(err) {
			return rep, fmt.Errorf("catalog: repair image %s: %w", id, err)
		}

		err = r.store.Atomic(ctx, func(w kv.Writer) error {
			if img == nil {
				if err := w.SRem(ctx, imagesAllKey, id); err != nil {
					return err
				}
				if err := w.Del(ctx, imageEmotionsKey(id)); err != nil {
					return err
				}
				return sremAll(ctx, w, typeKeys, id)
			}
			if err := w.SAdd(ctx, imagesAllKey, id); err != nil {
				return err
			}
			if err := sremAll(ctx, w, without(typeKeys, imageTypeIndex(img.Type)), id); err != nil {
				return err
			}
			if err := w.SAdd(ctx, imageTypeIndex(img.Type), id); err != nil {
				return err
			}
			for _, e := range normalize(img.Emotions) {
				if err := w.SAdd(ctx, imageEmotionIndex(e), id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return rep, fmt.Errorf("catalog: repair image %s: %w", id, err)
		}
		if img == nil {
			rep.Pruned++
			r.logger.Info("pruned dangling image id", slog.String("id", id))
		} else {
			rep.Reindexed++
		}
	}
	return rep, nil
}

// Repair runs the asset and image repair passes and sums their reports.
func Repair(ctx context.Context, assets *Assets, images *Images) (RepairReport, error) {
	var total RepairReport
	rep, err := assets.Repair(ctx)
	total.add(rep)
	if err != nil {
		return total, err
	}
	rep, err = images.Repair(ctx)
	total.add(rep)
	return total, err
}

func sremAll(ctx context.Context, w kv.Writer, keys []string, id string) error {
	for _, k := range keys {
		if err := w.SRem(ctx, k, id); err != nil {
			return err
		}
	}
	return nil
}

func without(keys []string, drop string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != drop {
			out = append(out, k)
		}
	}
	return out
}
