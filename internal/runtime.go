package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/starford/brandvault/internal/assetservice"
	"github.com/starford/brandvault/internal/catalog"
	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/sse"
	"github.com/starford/brandvault/internal/storage"
)

// runtime holds the components every command shares.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	store   kv.Store
	objects storage.Provider
	broker  *sse.Broker
	svc     *assetservice.Service

	closeOnce sync.Once
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", output: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newRuntime builds the store, object provider, repositories and service.
// Logs go to logOut as JSON.
func newRuntime(ctx context.Context, cfg *Config, logOut io.Writer) (*runtime, error) {
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("kv_driver", cfg.KV.Driver),
		slog.String("objects_driver", cfg.Objects.Driver),
		slog.String("default_brand", cfg.Catalog.DefaultBrand),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := kv.Open(ctx, cfg.KV.Options())
	if err != nil {
		return nil, fmt.Errorf("init kv: %w", err)
	}
	if _, ok := store.(kv.Disabled); ok {
		logger.Warn("no metadata store configured, writes will fail")
	}

	objects, err := openObjects(&cfg.Objects)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init objects: %w", err)
	}

	copts := []catalog.Option{catalog.WithDefaultBrand(cfg.Catalog.DefaultBrand)}
	assets := catalog.NewAssets(store, logger.With(slog.String("component", "assets")), copts...)
	images := catalog.NewImages(store, logger.With(slog.String("component", "images")), copts...)

	broker := sse.NewBroker(cfg.Events.Throttle)
	svc := assetservice.New(assets, images, objects, logger.With(slog.String("component", "service")),
		assetservice.WithPublisher(broker))

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		objects: objects,
		broker:  broker,
		svc:     svc,
	}, nil
}

func openObjects(cfg *ObjectsConfig) (storage.Provider, error) {
	switch cfg.Driver {
	case ObjectsDriverS3:
		p, err := storage.NewS3(cfg.S3Options())
		if err != nil {
			return nil, err
		}
		return p, nil
	case ObjectsDriverFS:
		p, err := storage.NewFS(cfg.FS.Root, cfg.FS.PublicPath)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown objects driver %q", cfg.Driver)
	}
}

func (rt *runtime) Close() {
	rt.closeOnce.Do(func() {
		rt.broker.Close()
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn("close kv failed", slog.String("error", err.Error()))
		}
	})
}
