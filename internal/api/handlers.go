package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/brandvault/internal/assetservice"
	"github.com/starford/brandvault/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *assetservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *assetservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListAssets handles GET /api/assets.
//
//	@Summary		List brand assets, optionally filtered
//	@Tags			assets
//	@Produce		json
//	@Param			type	query		string	false	"Asset type"	Enums(logo, logo-version, color, font, icon, project-logo, menu-logo)
//	@Param			brand	query		string	false	"Brand"
//	@Param			tag		query		string	false	"Tag"
//	@Success		200		{object}	AssetListResponse
//	@Failure		400		{object}	errResponse
//	@Router			/assets [get]
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.ListAssets(r.Context(), assetservice.AssetFilter{
		Type:  q.Get("type"),
		Brand: q.Get("brand"),
		Tag:   q.Get("tag"),
	})
	if err != nil {
		writeError(w, "list assets", err)
		return
	}
	writeJSON(w, http.StatusOK, assetList(items))
}

// CreateAsset handles POST /api/assets.
//
//	@Summary		Create an asset from JSON
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BrandAsset	true	"Asset"
//	@Success		201		{object}	BrandAsset
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/assets [post]
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var in models.BrandAsset
	if !decodeJSON(w, r, &in) {
		return
	}
	saved, err := h.svc.CreateAsset(r.Context(), in, nil, nil)
	if err != nil {
		writeError(w, "create asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// UploadAsset handles POST /api/assets/upload.
//
//	@Summary		Create an asset with its file
//	@Tags			assets
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file			formData	file	false	"Primary file"
//	@Param			secondaryFile	formData	file	false	"Secondary file (logo-version only)"
//	@Param			type			formData	string	true	"Asset type"
//	@Param			name			formData	string	true	"Name"
//	@Success		201				{object}	BrandAsset
//	@Failure		400				{object}	errResponse
//	@Failure		413				{object}	errResponse
//	@Router			/assets/upload [post]
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	in, err := assetFromForm(r)
	if err != nil {
		writeError(w, "upload asset", err)
		return
	}
	primary, err := formFile(r, "file")
	if err != nil {
		writeError(w, "upload asset", err)
		return
	}
	secondary, err := formFile(r, "secondaryFile")
	if err != nil {
		writeError(w, "upload asset", err)
		return
	}
	saved, err := h.svc.CreateAsset(r.Context(), in, primary, secondary)
	if err != nil {
		writeError(w, "upload asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetAsset handles GET /api/assets/{id}.
//
//	@Summary		Get one asset
//	@Tags			assets
//	@Produce		json
//	@Param			id	path		string	true	"Asset id"
//	@Success		200	{object}	BrandAsset
//	@Failure		404	{object}	errResponse
//	@Router			/assets/{id} [get]
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get asset", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateAsset handles PUT /api/assets/{id}.
//
//	@Summary		Patch an asset
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Asset id"
//	@Param			body	body		AssetPatchRequest	true	"Fields to change"
//	@Success		200		{object}	BrandAsset
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/assets/{id} [put]
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	var patch models.AssetPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	saved, err := h.svc.UpdateAsset(r.Context(), chi.URLParam(r, "id"), patch, nil)
	if err != nil {
		writeError(w, "update asset", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ReplaceAssetFile handles PUT /api/assets/{id}/file.
func (h *Handler) ReplaceAssetFile(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	file, err := formFile(r, "file")
	if err != nil {
		writeError(w, "replace asset file", err)
		return
	}
	if file == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field"))
		return
	}
	saved, err := h.svc.UpdateAsset(r.Context(), chi.URLParam(r, "id"), models.AssetPatch{}, file)
	if err != nil {
		writeError(w, "replace asset file", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteAsset handles DELETE /api/assets/{id}.
//
//	@Summary		Delete an asset and its files
//	@Tags			assets
//	@Param			id	path	string	true	"Asset id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Router			/assets/{id} [delete]
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.DeleteAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete asset", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Palette handles GET /api/brands/{brand}/palette.
//
//	@Summary		List the colors of a brand
//	@Tags			assets
//	@Produce		json
//	@Param			brand	path		string	true	"Brand"
//	@Success		200		{object}	PaletteResponse
//	@Router			/brands/{brand}/palette [get]
func (h *Handler) Palette(w http.ResponseWriter, r *http.Request) {
	brand := chi.URLParam(r, "brand")
	colors := h.svc.Palette(r.Context(), brand)
	if colors == nil {
		colors = []models.BrandAsset{}
	}
	writeJSON(w, http.StatusOK, PaletteResponse{Brand: brand, Colors: colors})
}

// Repair handles POST /api/repair.
//
//	@Summary		Rebuild catalog indices
//	@Tags			maintenance
//	@Produce		json
//	@Success		200	{object}	RepairResponse
//	@Failure		500	{object}	errResponse
//	@Router			/repair [post]
func (h *Handler) Repair(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Repair(r.Context())
	if err != nil {
		writeError(w, "repair", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

