package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/brandvault/internal/assetservice"
	"github.com/starford/brandvault/internal/models"
)

// ListImages handles GET /api/images. emotion and emotions combine; any
// listed emotion matches.
//
//	@Summary		List compositing images
//	@Tags			images
//	@Produce		json
//	@Param			type		query		string	false	"Image type"	Enums(foreground, background)
//	@Param			emotion		query		string	false	"Single emotion"
//	@Param			emotions	query		string	false	"Comma-separated emotions"
//	@Success		200			{object}	ImageListResponse
//	@Failure		400			{object}	errResponse
//	@Router			/images [get]
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var emotions []string
	if e := strings.TrimSpace(q.Get("emotion")); e != "" {
		emotions = append(emotions, e)
	}
	for _, e := range strings.Split(q.Get("emotions"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			emotions = append(emotions, e)
		}
	}
	items, err := h.svc.ListImages(r.Context(), assetservice.ImageFilter{
		Type:     q.Get("type"),
		Emotions: emotions,
	})
	if err != nil {
		writeError(w, "list images", err)
		return
	}
	writeJSON(w, http.StatusOK, imageList(items))
}

// UploadImage handles POST /api/images/upload.
//
//	@Summary		Upload a compositing image
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"Image file"
//	@Param			type		formData	string	true	"Image type"
//	@Param			emotions	formData	string	false	"Comma-separated emotions"
//	@Success		201			{object}	ImageMetadata
//	@Failure		400			{object}	errResponse
//	@Failure		413			{object}	errResponse
//	@Router			/images/upload [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	file, err := formFile(r, "file")
	if err != nil {
		writeError(w, "upload image", err)
		return
	}
	if file == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field"))
		return
	}
	saved, err := h.svc.CreateImage(r.Context(), imageFromForm(r), *file)
	if err != nil {
		writeError(w, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ImportImage handles POST /api/images/import.
func (h *Handler) ImportImage(w http.ResponseWriter, r *http.Request) {
	var req ImportImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	saved, err := h.svc.ImportImage(r.Context(), req.URL, models.ImageMetadata{
		Filename:   req.Filename,
		Type:       models.ImageType(req.Type),
		Emotions:   req.Emotions,
		Category:   req.Category,
		UploadedBy: req.UploadedBy,
	})
	if err != nil {
		writeError(w, "import image", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetImage handles GET /api/images/{id}.
//
//	@Summary		Get one image
//	@Tags			images
//	@Produce		json
//	@Param			id	path		string	true	"Image id"
//	@Success		200	{object}	ImageMetadata
//	@Failure		404	{object}	errResponse
//	@Router			/images/{id} [get]
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.svc.GetImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get image", err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// DeleteImage handles DELETE /api/images/{id}.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.DeleteImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete image", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
