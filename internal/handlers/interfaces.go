package handlers

import (
	"context"
	"net/http"

	"github.com/downytube/backend/internal/auth"
	"github.com/downytube/backend/internal/models"
)

// OAuthService drives the Google consent round trip.
type OAuthService interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (auth.Credentials, error)
}

// CookieIssuer manages the signed credential cookie on a response.
type CookieIssuer interface {
	Issue(w http.ResponseWriter, creds auth.Credentials) error
	Clear(w http.ResponseWriter)
	Session(w http.ResponseWriter, r *http.Request) *auth.Session
}

// ClipService runs the clip and sync upload pipelines.
type ClipService interface {
	GenerateAndUploadClip(ctx context.Context, session *auth.Session, req models.ClipRequest) (models.UploadResult, error)
	SyncVideo(ctx context.Context, session *auth.Session, req models.SyncRequest) (models.UploadResult, error)
}

// MetadataProvider resolves descriptive metadata for a source video URL.
type MetadataProvider interface {
	Lookup(ctx context.Context, url string) (models.SourceVideo, error)
}

// ShortsLister enumerates the shorts published on a channel.
type ShortsLister interface {
	ListShorts(ctx context.Context, channelURL string) ([]models.SourceVideo, error)
}

// UploadStore reads the persisted upload history.
type UploadStore interface {
	FindBySourceID(ctx context.Context, sourceID string) (models.UploadRecord, error)
	List(ctx context.Context, limit int) ([]models.UploadRecord, error)
}

// FlowService derives metadata overlays from a hosted language model.
type FlowService interface {
	OptimizeTags(ctx context.Context, video models.SourceVideo) ([]string, error)
	Rewrite(ctx context.Context, video models.SourceVideo) (title, description string, err error)
}
