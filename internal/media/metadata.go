package media

import (
	"context"

	"github.com/downytube/backend/internal/models"
)

// Provider returns the source video descriptor for the supplied URL.
type Provider interface {
	Lookup(ctx context.Context, url string) (models.SourceVideo, error)
}

// ShortsLister enumerates a channel's short-form videos.
type ShortsLister interface {
	ListShorts(ctx context.Context, channelURL string) ([]models.SourceVideo, error)
}
