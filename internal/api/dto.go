package api

import (
	"github.com/starford/brandvault/internal/catalog"
	"github.com/starford/brandvault/internal/models"
)

// BrandAsset is the asset record returned by the API.
type BrandAsset = models.BrandAsset

// ImageMetadata is the image record returned by the API.
type ImageMetadata = models.ImageMetadata

// AssetPatchRequest is the request body for updating an asset. The id and
// type of an asset cannot be changed and are ignored when sent.
type AssetPatchRequest = models.AssetPatch

// AssetListResponse wraps asset listings.
type AssetListResponse struct {
	Assets []BrandAsset `json:"assets" validate:"required"`
	Total  int          `json:"total" example:"12" validate:"required"`
}

// ImageListResponse wraps image listings.
type ImageListResponse struct {
	Images []ImageMetadata `json:"images" validate:"required"`
	Total  int             `json:"total" example:"3" validate:"required"`
}

// PaletteResponse lists the color assets of one brand.
type PaletteResponse struct {
	Brand  string       `json:"brand" example:"find" validate:"required"`
	Colors []BrandAsset `json:"colors" validate:"required"`
}

// ImportImageRequest is the request body for importing an image by URL.
type ImportImageRequest struct {
	URL        string   `json:"url" example:"https://example.com/smile.png" validate:"required"`
	Type       string   `json:"type" example:"foreground" validate:"required"`
	Emotions   []string `json:"emotions" example:"happy,excited"`
	Category   string   `json:"category,omitempty" example:"people"`
	UploadedBy string   `json:"uploadedBy,omitempty" example:"maria"`
	Filename   string   `json:"filename,omitempty" example:"smile.png"`
}

// RepairResponse reports a catalog repair pass.
type RepairResponse = catalog.RepairReport

func assetList(items []models.BrandAsset) AssetListResponse {
	if items == nil {
		items = []models.BrandAsset{}
	}
	return AssetListResponse{Assets: items, Total: len(items)}
}

func imageList(items []models.ImageMetadata) ImageListResponse {
	if items == nil {
		items = []models.ImageMetadata{}
	}
	return ImageListResponse{Images: items, Total: len(items)}
}
