package catalog

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/models"
	"github.com/starford/brandvault/internal/testutil"
)

func members(t *testing.T, s kv.Store, key string) []string {
	t.Helper()
	m, err := s.SMembers(context.Background(), key)
	require.NoError(t, err)
	sort.Strings(m)
	return m
}

func TestRepairAssets(t *testing.T) {
	testutil.EachStore(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		repo := NewAssets(s, nil)
		_, err := repo.Save(ctx, models.BrandAsset{ID: "live", Type: models.AssetLogo, Name: "Mark", Tags: []string{"dark"}})
		require.NoError(t, err)

		// A dangling id, a live id in the wrong type set, and a live id
		// missing from its own indices.
		require.NoError(t, s.SAdd(ctx, assetsAllKey, "ghost"))
		require.NoError(t, s.SAdd(ctx, assetTypeIndex(models.AssetFont), "ghost", "live"))
		require.NoError(t, s.SRem(ctx, assetTagIndex("dark"), "live"))
		require.NoError(t, s.SRem(ctx, assetsAllKey, "live"))

		rep, err := repo.Repair(ctx)
		require.NoError(t, err)
		assert.Equal(t, RepairReport{Checked: 2, Reindexed: 1, Pruned: 1}, rep)

		assert.Equal(t, []string{"live"}, members(t, s, assetsAllKey))
		assert.Equal(t, []string{"live"}, members(t, s, assetTypeIndex(models.AssetLogo)))
		assert.Empty(t, members(t, s, assetTypeIndex(models.AssetFont)))
		assert.Equal(t, []string{"live"}, members(t, s, assetTagIndex("dark")))

		rep, err = repo.Repair(ctx)
		require.NoError(t, err)
		assert.Equal(t, RepairReport{Checked: 1, Reindexed: 1}, rep)
	})
}

func TestRepairCatalog(t *testing.T) {
	testutil.EachStore(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		assets := NewAssets(s, nil)
		images := NewImages(s, nil)
		_, err := images.Save(ctx, fg("i1", "happy"))
		require.NoError(t, err)
		require.NoError(t, s.SAdd(ctx, imageTypeIndex(models.ImageBackground), "gone"))
		require.NoError(t, s.SAdd(ctx, assetsAllKey, "gone-asset"))

		rep, err := Repair(ctx, assets, images)
		require.NoError(t, err)
		assert.Equal(t, RepairReport{Checked: 3, Reindexed: 1, Pruned: 2}, rep)
		assert.Empty(t, members(t, s, imageTypeIndex(models.ImageBackground)))
		assert.Empty(t, members(t, s, assetsAllKey))
		assert.Equal(t, []string{"i1"}, imageIDs(images.GetByEmotion(ctx, "happy")))
	})
}
