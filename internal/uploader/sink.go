package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

// ErrUploadFailed indicates the hosting API rejected the insert, its response
// lacked a video id, or an upstream transform failure must take precedence
// over an apparently successful insert.
var ErrUploadFailed = errors.New("upload failed")

// defaultCategoryID is the fixed content category attached to every insert
// ("People & Blogs").
const defaultCategoryID = "22"

// maxThumbnailFetch bounds how much of a remote thumbnail is read.
const maxThumbnailFetch = 10 << 20

// VideoMetadata carries the snippet and status fields for a video insert.
type VideoMetadata struct {
	Title       string
	Description string
	Tags        []string
	// PrivacyStatus defaults to "private".
	PrivacyStatus string
}

// InsertFunc performs the resumable video insert call.
type InsertFunc func(ctx context.Context, video *youtube.Video, body io.Reader) (*youtube.Video, error)

// ThumbnailFunc associates an image with an uploaded video.
type ThumbnailFunc func(ctx context.Context, videoID string, image io.Reader, mimeType string) error

// faulter is implemented by streams whose producer can fail asynchronously
// while the consumer is still reading.
type faulter interface {
	Err() error
}

// Sink sends a (possibly still-producing) byte stream plus metadata to the
// video-hosting API as a single resumable insert call, then uploads an
// associated thumbnail keyed by the returned video id.
type Sink struct {
	Insert     InsertFunc
	Thumbnail  ThumbnailFunc
	HTTPClient *http.Client
}

// NewSink builds a Sink issuing real API calls through the provided service.
func NewSink(service *youtube.Service) *Sink {
	return &Sink{
		Insert: func(ctx context.Context, video *youtube.Video, body io.Reader) (*youtube.Video, error) {
			call := service.Videos.Insert([]string{"snippet", "status"}, video)
			return call.Media(body).Context(ctx).Do()
		},
		Thumbnail: func(ctx context.Context, videoID string, image io.Reader, mimeType string) error {
			call := service.Thumbnails.Set(videoID)
			_, err := call.Media(image, googleapi.ContentType(mimeType)).Context(ctx).Do()
			return err
		},
		HTTPClient: http.DefaultClient,
	}
}

// InsertVideo performs the resumable insert and returns the new video id.
// When the media stream reports a producer failure, that failure wins over
// whatever the insert call itself returned: the HTTP call may appear to
// complete even though the transform aborted mid-stream.
func (s *Sink) InsertVideo(ctx context.Context, meta VideoMetadata, media io.Reader) (string, error) {
	privacy := meta.PrivacyStatus
	if privacy == "" {
		privacy = "private"
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  defaultCategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: privacy,
		},
	}

	inserted, insertErr := s.Insert(ctx, video, media)

	if f, ok := media.(faulter); ok {
		if streamErr := f.Err(); streamErr != nil {
			return "", fmt.Errorf("%w: %w", ErrUploadFailed, streamErr)
		}
	}
	if insertErr != nil {
		return "", friendlyUploadError(insertErr)
	}
	if inserted == nil || inserted.Id == "" {
		return "", fmt.Errorf("%w: response contained no video id", ErrUploadFailed)
	}
	return inserted.Id, nil
}

// SetThumbnail associates the referenced image with the video. A plain URL is
// fetched and re-encoded to a data URI first; the MIME type used for the call
// is parsed out of the data-URI prefix.
func (s *Sink) SetThumbnail(ctx context.Context, videoID, imageRef string) error {
	if videoID == "" {
		return errors.New("thumbnail: video id must not be empty")
	}

	dataURI := imageRef
	if !strings.HasPrefix(imageRef, "data:") {
		fetched, err := s.fetchAsDataURI(ctx, imageRef)
		if err != nil {
			return fmt.Errorf("fetch thumbnail %q: %w", imageRef, err)
		}
		dataURI = fetched
	}

	mimeType, data, err := ParseDataURI(dataURI)
	if err != nil {
		return fmt.Errorf("thumbnail image: %w", err)
	}

	if err := s.Thumbnail(ctx, videoID, bytes.NewReader(data), mimeType); err != nil {
		return friendlyUploadError(err)
	}
	return nil
}

func (s *Sink) fetchAsDataURI(ctx context.Context, url string) (string, error) {
	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailFetch))
	if err != nil {
		return "", err
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return EncodeDataURI(mimeType, data), nil
}

// friendlyUploadError rewrites known upstream failures into actionable
// guidance instead of raw API error text.
func friendlyUploadError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusRequestEntityTooLarge:
			return fmt.Errorf("%w: the video exceeds the maximum upload size; trim the clip or lower its quality", ErrUploadFailed)
		case apiErr.Code == http.StatusUnsupportedMediaType:
			return fmt.Errorf("%w: the hosting API rejected the media format; re-encode to H.264/AAC MP4", ErrUploadFailed)
		case apiErr.Code == http.StatusForbidden && hasReason(apiErr, "quotaExceeded"):
			return fmt.Errorf("%w: the daily API quota is exhausted; retry after the quota resets", ErrUploadFailed)
		}
	}
	return fmt.Errorf("%w: %v", ErrUploadFailed, err)
}

func hasReason(apiErr *googleapi.Error, reason string) bool {
	for _, item := range apiErr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return false
}
