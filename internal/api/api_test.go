package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/brandvault/internal/assetservice"
	"github.com/starford/brandvault/internal/catalog"
	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/models"
	"github.com/starford/brandvault/internal/testutil"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// testEnv wires a service on a temp SQLite store and object dir, mounted the
// way the server mounts it.
func testEnv(t *testing.T) http.Handler {
	t.Helper()
	return testEnvWithStore(t, testutil.SQLiteStore(t))
}

func testEnvWithStore(t *testing.T, store kv.Store) http.Handler {
	t.Helper()
	_, objects := testutil.ObjectDir(t)

	n := 0
	svc := assetservice.New(catalog.NewAssets(store, nil), catalog.NewImages(store, nil), objects, nil,
		assetservice.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }))

	r := chi.NewRouter()
	r.Mount("/api", NewRouter(svc, nil))
	r.Get("/files/*", FileHandler(objects))
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, h http.Handler, method, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, h, method, target, bytes.NewReader(body), "application/json")
}

// form builds a multipart body from fields and named file parts.
func form(t *testing.T, fields map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateAndGetAsset(t *testing.T) {
	router := testEnv(t)

	w := doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{
		"type": "color", "name": "Lilac", "hex": "#C8A2C8", "brand": "lilac", "tags": []string{"Primary"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[BrandAsset](t, w)
	if created.ID != "id-1" {
		t.Errorf("id = %q, want id-1", created.ID)
	}

	w = do(t, router, http.MethodGet, "/api/assets/id-1", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decode[BrandAsset](t, w)
	if got.Hex != "#C8A2C8" || got.Brand != "lilac" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateAssetErrors(t *testing.T) {
	router := testEnv(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing hex", map[string]any{"type": "color", "name": "Nameless"}, http.StatusBadRequest},
		{"unknown type", map[string]any{"type": "banner", "name": "B"}, http.StatusBadRequest},
		{"logo without file", map[string]any{"type": "logo", "name": "L"}, http.StatusBadRequest},
		{"id with key separator", map[string]any{"id": "x:tags", "type": "color", "name": "C", "hex": "#000"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doJSON(t, router, http.MethodPost, "/api/assets", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	w := do(t, router, http.MethodPost, "/api/assets", strings.NewReader("{not json"), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", w.Code)
	}
}

func TestCreateAssetDuplicate(t *testing.T) {
	router := testEnv(t)

	body := map[string]any{"id": "font-1", "type": "font", "name": "Inter", "fontFamily": "Inter"}
	if w := doJSON(t, router, http.MethodPost, "/api/assets", body); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/api/assets", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestGetAssetNotFound(t *testing.T) {
	router := testEnv(t)
	if w := do(t, router, http.MethodGet, "/api/assets/nope", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListAssetsFilters(t *testing.T) {
	router := testEnv(t)

	doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "color", "name": "Ink", "hex": "#111111", "tags": []string{"dark"}})
	doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "font", "name": "Inter", "tags": []string{"Dark"}})
	doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "color", "name": "Snow", "hex": "#ffffff", "brand": "other"})

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?type=color", 2},
		{"?tag=DARK", 2},
		{"?tag=dark&type=font", 1},
		{"?brand=other", 1},
		{"?brand=find&type=color", 1},
		{"?tag=missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/api/assets"+tt.query, nil, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			resp := decode[AssetListResponse](t, w)
			if resp.Total != tt.want || len(resp.Assets) != tt.want {
				t.Errorf("total = %d, want %d", resp.Total, tt.want)
			}
		})
	}

	if w := do(t, router, http.MethodGet, "/api/assets?type=banner", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad type = %d, want 400", w.Code)
	}
}

func TestEmptyListIsArray(t *testing.T) {
	router := testEnv(t)
	w := do(t, router, http.MethodGet, "/api/images", nil, "")
	if !strings.Contains(w.Body.String(), `"images":[]`) {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}

func TestUpdateAssetKeepsIdentity(t *testing.T) {
	router := testEnv(t)
	doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "font", "name": "Inter"})

	w := doJSON(t, router, http.MethodPut, "/api/assets/id-1", map[string]any{
		"id": "other", "type": "color", "name": "Inter Display", "weights": []string{"400", "700"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[BrandAsset](t, w)
	if got.ID != "id-1" || got.Type != models.AssetFont {
		t.Errorf("identity changed: id=%q type=%q", got.ID, got.Type)
	}
	if got.Name != "Inter Display" || len(got.Weights) != 2 {
		t.Errorf("patch not applied: %+v", got)
	}

	if w := doJSON(t, router, http.MethodPut, "/api/assets/missing", map[string]any{"name": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestUploadAssetAndServeFile(t *testing.T) {
	router := testEnv(t)

	body, ct := form(t, map[string]string{"type": "logo", "name": "Primary", "tags": "dark, wide", "order": "2"},
		map[string][]byte{"file": pngData})
	w := do(t, router, http.MethodPost, "/api/assets/upload", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	a := decode[BrandAsset](t, w)
	if a.URL != "/files/brand-assets/logo/id-1/file.png" {
		t.Errorf("url = %q", a.URL)
	}
	if a.Order == nil || *a.Order != 2 || len(a.Tags) != 2 {
		t.Errorf("form fields not applied: %+v", a)
	}

	w = do(t, router, http.MethodGet, a.URL, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("file status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("content type = %q", got)
	}
	if !bytes.Equal(w.Body.Bytes(), pngData) {
		t.Error("served bytes differ")
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	req := httptest.NewRequest(http.MethodGet, a.URL, nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}

	if w := do(t, router, http.MethodGet, "/files/brand-assets/none.png", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/files/../secret", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("escaping key = %d, want 404", w.Code)
	}
}

func TestUploadAssetRejectsSecondaryFile(t *testing.T) {
	router := testEnv(t)
	body, ct := form(t, map[string]string{"type": "logo", "name": "Primary"},
		map[string][]byte{"file": pngData, "secondaryFile": pngData})
	if w := do(t, router, http.MethodPost, "/api/assets/upload", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	body, ct = form(t, map[string]string{"type": "icon", "name": "Bell", "order": "first"}, map[string][]byte{"file": pngData})
	if w := do(t, router, http.MethodPost, "/api/assets/upload", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("bad order = %d, want 400", w.Code)
	}
}

func TestReplaceAssetFile(t *testing.T) {
	router := testEnv(t)
	body, ct := form(t, map[string]string{"type": "icon", "name": "Bell"}, map[string][]byte{"file": pngData})
	do(t, router, http.MethodPost, "/api/assets/upload", body, ct)

	body, ct = form(t, nil, nil)
	if w := do(t, router, http.MethodPut, "/api/assets/id-1/file", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("missing file = %d, want 400", w.Code)
	}

	body, ct = form(t, nil, map[string][]byte{"file": append(append([]byte{}, pngData...), 0)})
	w := do(t, router, http.MethodPut, "/api/assets/id-1/file", body, ct)
	if w.Code != http.StatusOK {
		t.Fatalf("replace status = %d, body = %s", w.Code, w.Body.String())
	}
	a := decode[BrandAsset](t, w)
	w = do(t, router, http.MethodGet, a.URL, nil, "")
	if w.Body.Len() != len(pngData)+1 {
		t.Errorf("served %d bytes, want replacement", w.Body.Len())
	}
}

func TestDeleteAsset(t *testing.T) {
	router := testEnv(t)
	doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "font", "name": "Inter"})

	if w := do(t, router, http.MethodDelete, "/api/assets/id-1", nil, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/api/assets/id-1", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/api/assets/id-1", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestPalette(t *testing.T) {
	router := testEnv(t)
	doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "color", "name": "Lilac", "hex": "#C8A2C8", "brand": "lilac"})
	doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "font", "name": "Inter", "brand": "lilac"})

	w := do(t, router, http.MethodGet, "/api/brands/LILAC/palette", nil, "")
	resp := decode[PaletteResponse](t, w)
	if len(resp.Colors) != 1 || resp.Colors[0].Name != "Lilac" {
		t.Errorf("palette = %+v", resp)
	}
}

func TestImagesUploadAndList(t *testing.T) {
	router := testEnv(t)

	upload := func(typ, emotions string) {
		t.Helper()
		body, ct := form(t, map[string]string{"type": typ, "emotions": emotions}, map[string][]byte{"file": pngData})
		if w := do(t, router, http.MethodPost, "/api/images/upload", body, ct); w.Code != http.StatusCreated {
			t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
		}
	}
	upload("foreground", "happy,excited")
	upload("foreground", "calm")
	upload("background", "")

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?type=background", 1},
		{"?emotion=happy", 1},
		{"?emotions=happy,calm", 2},
		{"?emotion=Calm&emotions=excited", 2},
		{"?emotions=calm&type=background", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := decode[ImageListResponse](t, do(t, router, http.MethodGet, "/api/images"+tt.query, nil, ""))
			if resp.Total != tt.want {
				t.Errorf("total = %d, want %d", resp.Total, tt.want)
			}
		})
	}
}

func TestUploadImageErrors(t *testing.T) {
	router := testEnv(t)

	body, ct := form(t, map[string]string{"type": "foreground", "emotions": "happy"}, nil)
	if w := do(t, router, http.MethodPost, "/api/images/upload", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("missing file = %d, want 400", w.Code)
	}
	body, ct = form(t, map[string]string{"type": "foreground"}, map[string][]byte{"file": pngData})
	if w := do(t, router, http.MethodPost, "/api/images/upload", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("foreground without emotions = %d, want 400", w.Code)
	}
	body, ct = form(t, map[string]string{"type": "background"}, map[string][]byte{"file": []byte("plain text")})
	if w := do(t, router, http.MethodPost, "/api/images/upload", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("non-image = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/api/images/upload", strings.NewReader("x"), "text/plain"); w.Code != http.StatusBadRequest {
		t.Errorf("not multipart = %d, want 400", w.Code)
	}
}

func TestImportImageAndDelete(t *testing.T) {
	router := testEnv(t)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
	w := doJSON(t, router, http.MethodPost, "/api/images/import", ImportImageRequest{
		URL: uri, Type: "foreground", Emotions: []string{"happy"}, Filename: "smile.png",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	img := decode[ImageMetadata](t, w)
	if img.Filename != "smile.png" {
		t.Errorf("filename = %q", img.Filename)
	}

	if w := doJSON(t, router, http.MethodPost, "/api/images/import", ImportImageRequest{Type: "background"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing url = %d, want 400", w.Code)
	}

	if w := do(t, router, http.MethodGet, "/api/images/"+img.ID, nil, ""); w.Code != http.StatusOK {
		t.Errorf("get = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/api/images/"+img.ID, nil, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/api/images/"+img.ID, nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, img.URL, nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("file after delete = %d, want 404", w.Code)
	}
}

func TestUnconfiguredStore(t *testing.T) {
	router := testEnvWithStore(t, kv.Disabled{})

	if w := do(t, router, http.MethodGet, "/api/assets", nil, ""); w.Code != http.StatusOK {
		t.Errorf("list = %d, want 200", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/api/assets/a1", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("get = %d, want 404", w.Code)
	}
	w := doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "font", "name": "Inter"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("create = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not configured") {
		t.Errorf("body = %s, want the store error", w.Body.String())
	}
	if w := do(t, router, http.MethodDelete, "/api/assets/a1", nil, ""); w.Code != http.StatusInternalServerError {
		t.Errorf("delete = %d, want 500", w.Code)
	}
}

func TestRepairEndpoint(t *testing.T) {
	router := testEnv(t)
	doJSON(t, router, http.MethodPost, "/api/assets", map[string]any{"type": "font", "name": "Inter"})

	w := do(t, router, http.MethodPost, "/api/repair", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("repair = %d, body = %s", w.Code, w.Body.String())
	}
	if report := decode[RepairResponse](t, w); report.Checked != 1 || report.Pruned != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://studio.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/assets", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://studio.example.com" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/assets", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line: %v", err)
	}
	if entry["status"] != float64(http.StatusTeapot) || entry["path"] != "/api/assets" {
		t.Errorf("entry = %v", entry)
	}
}
