package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/downytube/backend/internal/auth"
	"github.com/downytube/backend/internal/clips"
	"github.com/downytube/backend/internal/config"
	"github.com/downytube/backend/internal/db"
	"github.com/downytube/backend/internal/flows"
	"github.com/downytube/backend/internal/handlers"
	"github.com/downytube/backend/internal/media"
	"github.com/downytube/backend/internal/middleware"
	"github.com/downytube/backend/internal/repositories"
	"github.com/downytube/backend/internal/storage"
	"github.com/downytube/backend/internal/transform"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, error) {
	cookies, err := auth.NewCookieStore(cfg.AuthSecret, cfg.IsProduction())
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure cookie store: %w", err)
	}

	manager := auth.NewManager(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)

	ytDlp := media.NewYTDLPProvider(cfg.YTDLPPath, cfg.YTDLPTimeout)
	metadataProvider := media.NewCachingProvider(ytDlp, cfg.MetadataCacheTTL)
	streamer := media.NewStreamer(cfg.YTDLPPath)
	runner := transform.NewRunner(cfg.FFmpegPath)
	uploads := repositories.NewPostgresUploadRepository(pool)

	orchestrator := clips.NewOrchestrator(manager, streamer, runner, uploads, logger)

	if cfg.ObjectStore.Bucket != "" {
		archive, err := storage.NewThumbnailArchive(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, fmt.Errorf("configure thumbnail archive: %w", err)
		}
		orchestrator.Archive = archive
	}

	var flowService handlers.FlowService
	if cfg.ModelAPIKey != "" {
		flowService = flows.NewClient(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.ModelName)
	}

	return handlers.Dependencies{
		OAuth:         manager,
		Cookies:       cookies,
		Clips:         orchestrator,
		Metadata:      metadataProvider,
		Shorts:        ytDlp,
		Uploads:       uploads,
		Flows:         flowService,
		Limiter:       middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		HealthChecks:  toolChecks(cfg),
		BaseURL:       cfg.BaseURL,
		SecureCookies: cfg.IsProduction(),
	}, nil
}

// toolChecks verifies the external binaries both pipelines shell out to.
func toolChecks(cfg config.Config) []handlers.HealthCheck {
	return []handlers.HealthCheck{
		{Name: "yt-dlp", Check: func() error {
			_, err := exec.LookPath(cfg.YTDLPPath)
			return err
		}},
		{Name: "ffmpeg", Check: func() error {
			_, err := exec.LookPath(cfg.FFmpegPath)
			return err
		}},
	}
}
