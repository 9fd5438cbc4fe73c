package models

import "time"

// SourceVideo describes a video fetched from the media source platform.
// AI-derived fields are additive overlays; the original metadata is never
// overwritten in place.
type SourceVideo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	YouTubeURL   string   `json:"youtubeUrl"`
	Duration     float64  `json:"duration,omitempty"`

	OptimizedTags        []string `json:"optimizedTags,omitempty"`
	RewrittenTitle       string   `json:"rewrittenTitle,omitempty"`
	RewrittenDescription string   `json:"rewrittenDescription,omitempty"`
	WatermarkText        string   `json:"watermarkText,omitempty"`
}

// ClipRequest captures one user submission to the clip-extraction pipeline.
// It is transient and consumed exactly once.
type ClipRequest struct {
	YouTubeURL  string `json:"youtubeUrl"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SyncRequest carries the metadata needed to re-upload an existing video.
type SyncRequest struct {
	YouTubeURL           string   `json:"youtubeUrl"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Tags                 []string `json:"tags"`
	ThumbnailURL         string   `json:"thumbnailUrl"`
	RewrittenTitle       string   `json:"rewrittenTitle,omitempty"`
	RewrittenDescription string   `json:"rewrittenDescription,omitempty"`
	WatermarkText        string   `json:"watermarkText,omitempty"`
}

// UploadResult identifies a successfully created remote video. Both fields
// are always populated together.
type UploadResult struct {
	VideoID    string `json:"videoId"`
	YouTubeURL string `json:"youtubeUrl"`
}

// Upload kinds recorded in the history store.
const (
	UploadKindClip = "clip"
	UploadKindSync = "sync"
)

// UploadRecord is one completed upload persisted for history and de-duplication.
type UploadRecord struct {
	ID         string
	SourceID   string
	VideoID    string
	YouTubeURL string
	Title      string
	Kind       string
	CreatedAt  time.Time
}
