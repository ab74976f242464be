package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/checksum"
	"github.com/starford/brandvault/internal/storage"
)

// FileHandler serves stored objects by key. Mount it on a wildcard route
// such as /files/*.
func FileHandler(objects storage.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if key == "" {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		rc, obj, err := objects.Open(r.Context(), key)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalid) {
				writeJSON(w, http.StatusNotFound, errorBody("not found"))
				return
			}
			slog.Error("open object failed", slog.String("key", key), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		defer rc.Close()

		if obj.Checksum != "" {
			w.Header().Set("ETag", checksum.ETag(obj.Checksum))
			if checksum.Matches(r.Header.Get("If-None-Match"), obj.Checksum) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		if obj.ContentType != "" {
			w.Header().Set("Content-Type", obj.ContentType)
		}
		if obj.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, err := io.Copy(w, rc); err != nil {
			slog.Warn("serve object interrupted", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}
