package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/content-distill/pkg/distill/api"
	"github.com/tendant/content-distill/pkg/distill/config"
	"github.com/tendant/content-distill/pkg/distill/entity"
	"github.com/tendant/content-distill/pkg/distill/export"
)

// newRouter mounts the distill API. Requests need an API key when keys are configured.
func newRouter(cfg *config.Config, repo entity.Repository, store export.Store) (func(chi.Router), error) {
	handler := api.NewHandler(repo,
		api.WithProcessor(cfg.BuildProcessor()),
		api.WithExporter(export.NewExporter(store)),
		api.WithDefaultLanguage(cfg.Language),
		api.WithLogger(slog.Default()),
	)

	var apiKeyMiddleware func(http.Handler) http.Handler
	if len(cfg.APIKeys) > 0 {
		mw, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{APIKeys: cfg.APIKeys})
		if err != nil {
			return nil, err
		}
		apiKeyMiddleware = mw
	}

	return func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if apiKeyMiddleware != nil {
				r.Use(apiKeyMiddleware)
			}
			r.Mount("/", handler.Routes())
		})
	}, nil
}

func main() {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repo, closeRepo, err := cfg.BuildRepository(ctx)
	if err != nil {
		slog.Error("Failed to initialize entity repository", "err", err)
		os.Exit(1)
	}
	defer closeRepo()

	store, err := cfg.BuildStore(ctx)
	if err != nil {
		slog.Error("Failed to initialize export store", "err", err)
		os.Exit(1)
	}

	routes, err := newRouter(cfg, repo, store)
	if err != nil {
		slog.Error("Failed initialize API Key middleware", "err", err)
		return
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Route("/api/v1", routes)

	slog.Info("distill server configured",
		"database", cfg.DatabaseType,
		"storage", cfg.Storage.Type,
		"language", cfg.Language,
		"max_depth", cfg.MaxDepth,
	)
	server.Run()
}
