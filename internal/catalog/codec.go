package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/brandvault/internal/models"
)

// Scalar fields live in the primary hash; list fields live in their own
// list keys. Hash field names match the JSON names of the records.

func encodeAsset(a *models.BrandAsset) map[string]string {
	f := fields{}
	f.put("id", a.ID)
	f.put("type", string(a.Type))
	f.put("brand", a.Brand)
	f.put("name", a.Name)
	f.put("description", a.Description)
	f.put("fileKey", a.FileKey)
	f.put("url", a.URL)
	f.put("format", a.Format)
	f.put("secondaryFileKey", a.SecondaryFileKey)
	f.put("secondaryUrl", a.SecondaryURL)
	f.put("secondaryFormat", a.SecondaryFormat)
	f.put("variant", a.Variant)
	f.put("hex", a.Hex)
	f.put("rgb", a.RGB)
	f.put("usage", a.Usage)
	f.put("category", a.Category)
	f.put("fontFamily", a.FontFamily)
	f.put("fontUrl", a.FontURL)
	f.put("preview", a.Preview)
	if a.Order != nil {
		f.put("order", strconv.Itoa(*a.Order))
	}
	f.put("createdAt", formatTime(a.CreatedAt))
	f.put("updatedAt", formatTime(a.UpdatedAt))
	return f
}

func decodeAsset(h map[string]string) *models.BrandAsset {
	return &models.BrandAsset{
		ID:               h["id"],
		Type:             models.AssetType(h["type"]),
		Brand:            h["brand"],
		Name:             h["name"],
		Description:      h["description"],
		FileKey:          h["fileKey"],
		URL:              h["url"],
		Format:           h["format"],
		SecondaryFileKey: h["secondaryFileKey"],
		SecondaryURL:     h["secondaryUrl"],
		SecondaryFormat:  h["secondaryFormat"],
		Variant:          h["variant"],
		Hex:              h["hex"],
		RGB:              h["rgb"],
		Usage:            h["usage"],
		Category:         h["category"],
		FontFamily:       h["fontFamily"],
		FontURL:          h["fontUrl"],
		Preview:          h["preview"],
		Order:            parseOrder(h["order"]),
		CreatedAt:        parseTime(h["createdAt"]),
		UpdatedAt:        parseTime(h["updatedAt"]),
	}
}

func encodeImage(m *models.ImageMetadata) map[string]string {
	f := fields{}
	f.put("id", m.ID)
	f.put("filename", m.Filename)
	f.put("fileKey", m.FileKey)
	f.put("url", m.URL)
	f.put("type", string(m.Type))
	f.put("category", m.Category)
	f.put("uploadedBy", m.UploadedBy)
	f.put("uploadedAt", formatTime(m.UploadedAt))
	return f
}

func decodeImage(h map[string]string) *models.ImageMetadata {
	return &models.ImageMetadata{
		ID:         h["id"],
		Filename:   h["filename"],
		FileKey:    h["fileKey"],
		URL:        h["url"],
		Type:       models.ImageType(h["type"]),
		Category:   h["category"],
		UploadedBy: h["uploadedBy"],
		UploadedAt: parseTime(h["uploadedAt"]),
	}
}

type fields map[string]string

// put skips empty values so absent optional fields stay absent in the hash.
func (f fields) put(k, v string) {
	if v != "" {
		f[k] = v
	}
}

// coerceList is the read-side compatibility shim for list fields that older
// writers packed into a hash field as a JSON array. A JSON array becomes a
// list, a blank value an empty list, and anything else (a bare scalar or
// unparseable text) a one-element list. It never fails.
func coerceList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var arr []any
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(v))
			}
		}
		return out
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return []string{s}
	}
	return []string{raw}
}

// listOrLegacy prefers the list key and falls back to the legacy hash field.
func listOrLegacy(list []string, h map[string]string, field string) []string {
	if len(list) > 0 {
		return list
	}
	if legacy, ok := h[field]; ok {
		return coerceList(legacy)
	}
	return []string{}
}

func parseOrder(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Millisecond epoch timestamps from older writers.
		if ms, convErr := strconv.ParseInt(s, 10, 64); convErr == nil {
			return time.UnixMilli(ms).UTC()
		}
		return time.Time{}
	}
	return t
}

// normalize case-folds and de-duplicates index values, keeping first-seen
// order and dropping blanks.
func normalize(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := strings.ToLower(strings.TrimSpace(v))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// missing returns the values of prev that are not in next.
func missing(prev, next []string) []string {
	keep := make(map[string]struct{}, len(next))
	for _, v := range next {
		keep[v] = struct{}{}
	}
	var out []string
	for _, v := range prev {
		if _, ok := keep[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
