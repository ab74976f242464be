package catalog

import (
	"cmp"
	"slices"

	"github.com/starford/brandvault/internal/models"
)

// SortAssets orders assets by display order ascending. Assets without an
// order come last; ties are broken by id so the result never depends on
// index iteration order.
func SortAssets(assets []models.BrandAsset) {
	slices.SortFunc(assets, func(a, b models.BrandAsset) int {
		switch {
		case a.Order == nil && b.Order != nil:
			return 1
		case a.Order != nil && b.Order == nil:
			return -1
		case a.Order != nil && b.Order != nil && *a.Order != *b.Order:
			return cmp.Compare(*a.Order, *b.Order)
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortImages orders images newest first, ties broken by id.
func SortImages(images []models.ImageMetadata) {
	slices.SortFunc(images, func(a, b models.ImageMetadata) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
