// Package assetservice coordinates object storage, the catalog repositories
// and change events for every write that touches both files and metadata.
package assetservice

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/catalog"
	"github.com/starford/brandvault/internal/models"
	"github.com/starford/brandvault/internal/sse"
	"github.com/starford/brandvault/internal/storage"
)

// Publisher receives catalog change notifications.
type Publisher interface {
	PublishCatalogEvent(entity, kind, id string)
	PublishObjectMissing(key string, assetIDs, imageIDs []string)
}

type nopPublisher struct{}

func (nopPublisher) PublishCatalogEvent(string, string, string)      {}
func (nopPublisher) PublishObjectMissing(string, []string, []string) {}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service coordinates storage and catalog operations.
type Service struct {
	assets  *catalog.Assets
	images  *catalog.Images
	objects storage.Provider
	events  Publisher
	logger  *slog.Logger

	newID     func() string
	client    *http.Client
	hostCheck func(host string) error
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the change event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithIDGenerator overrides UUID id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithHTTPClient sets the client used to import remote images.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithHostCheck replaces the guard applied to every import host.
func WithHostCheck(fn func(host string) error) Option {
	return func(s *Service) { s.hostCheck = fn }
}

// New creates a service.
func New(assets *catalog.Assets, images *catalog.Images, objects storage.Provider, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		assets:    assets,
		images:    images,
		objects:   objects,
		events:    nopPublisher{},
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
		hostCheck: checkBlockedHost,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		// No proxy: the dial guard has to see the destination address.
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = nil
		transport.DialContext = guardedDialer(s.hostCheck).DialContext
		s.client = &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return s.hostCheck(req.URL.Hostname())
			},
		}
	}
	return s
}

// AssetFilter narrows ListAssets. Empty fields match everything.
type AssetFilter struct {
	Type  string
	Brand string
	Tag   string
}

// ListAssets returns the assets matching f in display order.
func (s *Service) ListAssets(ctx context.Context, f AssetFilter) ([]models.BrandAsset, error) {
	t := models.AssetType(f.Type)
	if f.Type != "" && !t.Valid() {
		return nil, fmt.Errorf("%w: unknown asset type %q", apperr.ErrInvalid, f.Type)
	}
	var out []models.BrandAsset
	switch {
	case f.Tag != "":
		out = s.assets.GetByTag(ctx, f.Tag)
	case f.Type != "" && f.Brand != "":
		return s.assets.GetByBrandAndType(ctx, f.Brand, t), nil
	case f.Type != "":
		return s.assets.GetByType(ctx, t), nil
	case f.Brand != "":
		return s.assets.GetByBrand(ctx, f.Brand), nil
	default:
		return s.assets.GetAll(ctx), nil
	}

	filtered := out[:0]
	for _, a := range out {
		if f.Type != "" && a.Type != t {
			continue
		}
		if f.Brand != "" && !strings.EqualFold(a.Brand, f.Brand) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered, nil
}

// GetAsset returns one asset or apperr.ErrNotFound.
func (s *Service) GetAsset(ctx context.Context, id string) (*models.BrandAsset, error) {
	return s.assets.Get(ctx, id)
}

// Palette returns the color assets of brand.
func (s *Service) Palette(ctx context.Context, brand string) []models.BrandAsset {
	return s.assets.GetByBrandAndType(ctx, brand, models.AssetColor)
}

// ImageFilter narrows ListImages. Emotions match with OR semantics.
type ImageFilter struct {
	Type     string
	Emotions []string
}

// ListImages returns the images matching f, newest first.
func (s *Service) ListImages(ctx context.Context, f ImageFilter) ([]models.ImageMetadata, error) {
	t := models.ImageType(f.Type)
	if f.Type != "" && !t.Valid() {
		return nil, fmt.Errorf("%w: unknown image type %q", apperr.ErrInvalid, f.Type)
	}
	if len(f.Emotions) == 0 {
		if f.Type != "" {
			return s.images.GetByType(ctx, t), nil
		}
		return s.images.GetAll(ctx), nil
	}
	out := s.images.GetByEmotions(ctx, f.Emotions)
	if f.Type == "" {
		return out, nil
	}
	filtered := out[:0]
	for _, img := range out {
		if img.Type == t {
			filtered = append(filtered, img)
		}
	}
	return filtered, nil
}

// GetImage returns one image or apperr.ErrNotFound.
func (s *Service) GetImage(ctx context.Context, id string) (*models.ImageMetadata, error) {
	return s.images.Get(ctx, id)
}

// Repair runs a catalog repair pass.
func (s *Service) Repair(ctx context.Context) (catalog.RepairReport, error) {
	return catalog.Repair(ctx, s.assets, s.images)
}

// ObjectMissing handles an object that disappeared from storage: records
// still referencing key are logged and reported. It returns whether any
// record referenced it.
func (s *Service) ObjectMissing(ctx context.Context, key string) bool {
	var assetIDs, imageIDs []string
	for _, a := range s.assets.GetAll(ctx) {
		if a.FileKey == key || a.SecondaryFileKey == key {
			assetIDs = append(assetIDs, a.ID)
		}
	}
	for _, img := range s.images.GetAll(ctx) {
		if img.FileKey == key {
			imageIDs = append(imageIDs, img.ID)
		}
	}
	if len(assetIDs) == 0 && len(imageIDs) == 0 {
		return false
	}
	s.logger.Warn("object missing for catalog records",
		slog.String("key", key),
		slog.Any("assets", assetIDs),
		slog.Any("images", imageIDs))
	s.events.PublishObjectMissing(key, assetIDs, imageIDs)
	return true
}

// HandleObjectEvent adapts ObjectMissing to storage.Watch.
func (s *Service) HandleObjectEvent(ctx context.Context) storage.EventCallback {
	return func(kind, key string) {
		if kind == storage.ObjectRemoved {
			s.ObjectMissing(ctx, key)
		}
	}
}

// put stores an upload and returns its key, URL and short format name.
func (s *Service) put(ctx context.Context, key string, up *Upload) (fileKey, url, format string, err error) {
	obj, err := s.objects.Put(ctx, key, bytes.NewReader(up.Data), up.ContentType)
	if err != nil {
		return "", "", "", err
	}
	return obj.Key, s.objects.URL(obj.Key), formatOf(up), nil
}

// discard removes objects after a failed or superseded write. Failures are
// logged, not returned.
func (s *Service) discard(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := s.objects.Delete(ctx, k); err != nil {
			s.logger.Warn("object cleanup failed", slog.String("key", k), slog.String("error", err.Error()))
		}
	}
}

func (s *Service) publish(entity, kind, id string) {
	s.events.PublishCatalogEvent(entity, kind, id)
}

// formatOf names the file format by content, falling back to the
// filename extension.
func formatOf(up *Upload) string {
	if ext := mimetype.Detect(up.Data).Extension(); ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(up.Filename)), ".")
}

var _ Publisher = (*sse.Broker)(nil)
