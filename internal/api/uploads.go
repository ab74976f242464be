package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/assetservice"
	"github.com/starford/brandvault/internal/models"
)

const maxUploadSize = 50 << 20 // 50 MB

// parseUpload parses a multipart body, answering 413 or 400 itself when it
// cannot.
func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large (max 50MB)"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return false
	}
	return true
}

// formFile reads the named file part. A missing part yields nil.
func formFile(r *http.Request, field string) (*assetservice.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrInvalid, field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	ct := header.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		ct = ""
	}
	return &assetservice.Upload{Filename: header.Filename, ContentType: ct, Data: data}, nil
}

// formList collects a repeated or comma-separated form field.
func formList(r *http.Request, field string) []string {
	var out []string
	for _, v := range r.Form[field] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func assetFromForm(r *http.Request) (models.BrandAsset, error) {
	a := models.BrandAsset{
		ID:          r.FormValue("id"),
		Type:        models.AssetType(r.FormValue("type")),
		Brand:       r.FormValue("brand"),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		URL:         r.FormValue("url"),
		Variant:     r.FormValue("variant"),
		Hex:         r.FormValue("hex"),
		RGB:         r.FormValue("rgb"),
		Usage:       r.FormValue("usage"),
		Category:    r.FormValue("category"),
		FontFamily:  r.FormValue("fontFamily"),
		FontURL:     r.FormValue("fontUrl"),
		Preview:     r.FormValue("preview"),
		Weights:     formList(r, "weights"),
		Tags:        formList(r, "tags"),
	}
	if raw := strings.TrimSpace(r.FormValue("order")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return a, fmt.Errorf("%w: order must be an integer", apperr.ErrInvalid)
		}
		a.Order = &n
	}
	return a, nil
}

func imageFromForm(r *http.Request) models.ImageMetadata {
	return models.ImageMetadata{
		Filename:   r.FormValue("filename"),
		Type:       models.ImageType(r.FormValue("type")),
		Emotions:   formList(r, "emotions"),
		Category:   r.FormValue("category"),
		UploadedBy: r.FormValue("uploadedBy"),
	}
}
