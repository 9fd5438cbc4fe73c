package clips

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/youtube/v3"

	"github.com/downytube/backend/internal/auth"
	"github.com/downytube/backend/internal/logging"
	"github.com/downytube/backend/internal/media"
	"github.com/downytube/backend/internal/models"
	"github.com/downytube/backend/internal/transform"
	"github.com/downytube/backend/internal/uploader"
)

const (
	titleMinLen = 1
	titleMaxLen = 100
)

// ClientProvider yields an authenticated API client for a request session.
type ClientProvider interface {
	Client(ctx context.Context, session *auth.Session) (*youtube.Service, error)
}

// StreamOpener resolves a source URL to a live byte stream.
type StreamOpener interface {
	Open(ctx context.Context, url string, selector media.Selector) (*media.Stream, error)
}

// Transformer routes a source stream through a transform spec.
type Transformer interface {
	Apply(ctx context.Context, in io.Reader, spec transform.Spec) (*media.Stream, error)
}

// VideoSink performs the insert and thumbnail calls against the hosting API.
type VideoSink interface {
	InsertVideo(ctx context.Context, meta uploader.VideoMetadata, media io.Reader) (string, error)
	SetThumbnail(ctx context.Context, videoID, imageRef string) error
}

// SinkFactory binds a sink to an authenticated API client.
type SinkFactory func(service *youtube.Service) VideoSink

// Archiver keeps a durable copy of each uploaded thumbnail.
type Archiver interface {
	Save(ctx context.Context, videoID, mimeType string, r io.Reader) (string, error)
}

// HistoryStore records completed uploads for listing and de-duplication.
type HistoryStore interface {
	Record(ctx context.Context, record models.UploadRecord) error
	FindBySourceID(ctx context.Context, sourceID string) (models.UploadRecord, error)
	List(ctx context.Context, limit int) ([]models.UploadRecord, error)
}

// Orchestrator wires source, transform and sink into the two upload
// workflows. Stages run in strict sequence except the transform and the
// insert call, which are pipelined: the insert consumes bytes while the
// transform is still producing them.
type Orchestrator struct {
	Auth       ClientProvider
	Streams    StreamOpener
	Transforms Transformer
	NewSink    SinkFactory
	History    HistoryStore
	Logger     *slog.Logger

	// Archive is optional; a nil archive skips the durable thumbnail copy.
	Archive Archiver
	// HTTPClient fetches thumbnail bytes for archival. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// NewOrchestrator assembles the production pipeline.
func NewOrchestrator(authManager ClientProvider, streams StreamOpener, transforms Transformer, history HistoryStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Auth:       authManager,
		Streams:    streams,
		Transforms: transforms,
		NewSink:    func(service *youtube.Service) VideoSink { return uploader.NewSink(service) },
		History:    history,
		Logger:     logger,
	}
}

// GenerateAndUploadClip extracts a time range from the source video,
// composites it into a vertical 9:16 short and uploads the result. All input
// validation happens before any network activity.
func (o *Orchestrator) GenerateAndUploadClip(ctx context.Context, session *auth.Session, req models.ClipRequest) (models.UploadResult, error) {
	ctx, span := logging.StartSpan(ctx, "clips.generate")
	defer span.End()

	start, duration, err := ClipWindow(req.StartTime, req.EndTime)
	if err != nil {
		return models.UploadResult{}, err
	}
	if err := validateTitle(req.Title); err != nil {
		return models.UploadResult{}, err
	}
	if err := media.ValidateURL(req.YouTubeURL); err != nil {
		return models.UploadResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	service, err := o.Auth.Client(ctx, session)
	if err != nil {
		return models.UploadResult{}, err
	}

	source, err := o.Streams.Open(ctx, req.YouTubeURL, media.SelectorMuxed)
	if err != nil {
		return models.UploadResult{}, err
	}
	defer source.Close()

	clip, err := o.Transforms.Apply(ctx, source, transform.VerticalClip(start.Duration(), duration))
	if err != nil {
		return models.UploadResult{}, err
	}
	defer clip.Close()

	sink := o.NewSink(service)
	videoID, err := sink.InsertVideo(ctx, uploader.VideoMetadata{
		Title:       req.Title,
		Description: req.Description,
	}, clip)
	if err != nil {
		return models.UploadResult{}, err
	}

	sourceID := media.ExtractVideoID(req.YouTubeURL)
	o.publishThumbnail(ctx, sink, videoID, media.ThumbnailURL(sourceID))

	result := models.UploadResult{VideoID: videoID, YouTubeURL: media.WatchURL(videoID)}
	o.recordUpload(ctx, sourceID, result, req.Title, models.UploadKindClip)
	return result, nil
}

// SyncVideo re-uploads an existing source video under the caller's account,
// optionally drawing a watermark across it. Rewritten title/description
// overlays take precedence over the original metadata without replacing it.
func (o *Orchestrator) SyncVideo(ctx context.Context, session *auth.Session, req models.SyncRequest) (models.UploadResult, error) {
	ctx, span := logging.StartSpan(ctx, "clips.sync")
	defer span.End()

	title := strings.TrimSpace(req.RewrittenTitle)
	if title == "" {
		title = req.Title
	}
	if err := validateTitle(title); err != nil {
		return models.UploadResult{}, err
	}
	if err := media.ValidateURL(req.YouTubeURL); err != nil {
		return models.UploadResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	description := req.RewrittenDescription
	if description == "" {
		description = req.Description
	}

	service, err := o.Auth.Client(ctx, session)
	if err != nil {
		return models.UploadResult{}, err
	}

	source, err := o.Streams.Open(ctx, req.YouTubeURL, media.SelectorMuxed)
	if err != nil {
		return models.UploadResult{}, err
	}
	defer source.Close()

	var body io.Reader = source
	if strings.TrimSpace(req.WatermarkText) != "" {
		watermarked, err := o.Transforms.Apply(ctx, source, transform.Watermark(req.WatermarkText))
		if err != nil {
			return models.UploadResult{}, err
		}
		defer watermarked.Close()
		body = watermarked
	}

	sink := o.NewSink(service)
	videoID, err := sink.InsertVideo(ctx, uploader.VideoMetadata{
		Title:       title,
		Description: description,
		Tags:        req.Tags,
	}, body)
	if err != nil {
		return models.UploadResult{}, err
	}

	thumbnail := req.ThumbnailURL
	if thumbnail == "" {
		thumbnail = media.ThumbnailURL(media.ExtractVideoID(req.YouTubeURL))
	}
	o.publishThumbnail(ctx, sink, videoID, thumbnail)

	result := models.UploadResult{VideoID: videoID, YouTubeURL: media.WatchURL(videoID)}
	o.recordUpload(ctx, media.ExtractVideoID(req.YouTubeURL), result, title, models.UploadKindSync)
	return result, nil
}

// publishThumbnail pushes the thumbnail to the hosting API and, when an
// archive is configured, keeps a durable copy. The video already exists at
// this point, so failures downgrade to warnings rather than undoing the
// upload.
func (o *Orchestrator) publishThumbnail(ctx context.Context, sink VideoSink, videoID, imageRef string) {
	if err := sink.SetThumbnail(ctx, videoID, imageRef); err != nil {
		o.Logger.Warn("set thumbnail", "videoId", videoID, "error", err)
		return
	}
	if o.Archive == nil {
		return
	}

	mimeType, data, err := o.thumbnailBytes(ctx, imageRef)
	if err != nil {
		o.Logger.Warn("archive thumbnail", "videoId", videoID, "error", err)
		return
	}
	if _, err := o.Archive.Save(ctx, videoID, mimeType, bytes.NewReader(data)); err != nil {
		o.Logger.Warn("archive thumbnail", "videoId", videoID, "error", err)
	}
}

func (o *Orchestrator) thumbnailBytes(ctx context.Context, imageRef string) (string, []byte, error) {
	if strings.HasPrefix(imageRef, "data:") {
		return uploader.ParseDataURI(imageRef)
	}

	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageRef, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build thumbnail request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetch thumbnail: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", nil, fmt.Errorf("read thumbnail: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType, data, nil
}

func (o *Orchestrator) recordUpload(ctx context.Context, sourceID string, result models.UploadResult, title, kind string) {
	if o.History == nil {
		return
	}

	record := models.UploadRecord{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		VideoID:    result.VideoID,
		YouTubeURL: result.YouTubeURL,
		Title:      title,
		Kind:       kind,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.History.Record(ctx, record); err != nil {
		o.Logger.Warn("record upload history", "videoId", result.VideoID, "error", err)
	}
}

func validateTitle(title string) error {
	if n := len(strings.TrimSpace(title)); n < titleMinLen || n > titleMaxLen {
		return fmt.Errorf("%w: title must be between %d and %d characters", ErrInvalidInput, titleMinLen, titleMaxLen)
	}
	return nil
}

// UserMessage converts a pipeline error into the human-readable string placed
// in a failure result. Known error classes get actionable guidance rather
// than raw upstream text.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTimeRange):
		return "Invalid start or end time provided."
	case errors.Is(err, media.ErrInvalidSource):
		return "Invalid YouTube URL provided."
	default:
		return err.Error()
	}
}
