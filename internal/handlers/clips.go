package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/downytube/backend/internal/auth"
	"github.com/downytube/backend/internal/clips"
	"github.com/downytube/backend/internal/logging"
	"github.com/downytube/backend/internal/media"
	"github.com/downytube/backend/internal/models"
	"github.com/downytube/backend/internal/repositories"
)

const (
	loginPath           = "/api/v1/auth/google/login"
	shortsTitleMaxLen   = 70
	shortsSuffix        = " #shorts"
	uploadsDefaultLimit = 50
)

// ClipHandler exposes the clip and sync upload pipelines plus the upload
// history they feed.
type ClipHandler struct {
	Clips   ClipService
	Cookies CookieIssuer
	Shorts  ShortsLister
	Uploads UploadStore
	Limiter RateLimiter
}

type uploadResponse struct {
	Success bool        `json:"success"`
	Data    *uploadData `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type uploadData struct {
	VideoID    string `json:"videoId"`
	YouTubeURL string `json:"youtubeUrl"`
}

// CreateClip handles POST /api/v1/clips.
func (h ClipHandler) CreateClip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "clips") {
		respondJSON(ctx, w, http.StatusTooManyRequests, uploadResponse{Error: "too many requests"})
		return
	}

	var req models.ClipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid clip payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, uploadResponse{Error: "invalid request body"})
		return
	}

	session := h.Cookies.Session(w, r)
	result, err := h.Clips.GenerateAndUploadClip(ctx, session, req)
	if err != nil {
		h.respondPipelineError(w, r, err, "clip upload failed")
		return
	}

	logger.Info("clip uploaded", "videoId", result.VideoID)
	respondJSON(ctx, w, http.StatusCreated, uploadResponse{
		Success: true,
		Data:    &uploadData{VideoID: result.VideoID, YouTubeURL: result.YouTubeURL},
	})
}

type syncRequest struct {
	models.SyncRequest
	Shorts bool `json:"shorts,omitempty"`
}

// Sync handles POST /api/v1/sync.
func (h ClipHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "sync") {
		respondJSON(ctx, w, http.StatusTooManyRequests, uploadResponse{Error: "too many requests"})
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid sync payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, uploadResponse{Error: "invalid request body"})
		return
	}

	if req.Shorts {
		req.SyncRequest = decorateShortsMetadata(req.SyncRequest)
	}

	session := h.Cookies.Session(w, r)
	result, err := h.Clips.SyncVideo(ctx, session, req.SyncRequest)
	if err != nil {
		h.respondPipelineError(w, r, err, "sync upload failed")
		return
	}

	logger.Info("video synced", "videoId", result.VideoID)
	respondJSON(ctx, w, http.StatusCreated, uploadResponse{
		Success: true,
		Data:    &uploadData{VideoID: result.VideoID, YouTubeURL: result.YouTubeURL},
	})
}

// ListUploads handles GET /api/v1/uploads.
func (h ClipHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Uploads == nil {
		respondJSON(ctx, w, http.StatusOK, map[string]any{"uploads": []uploadItem{}})
		return
	}

	records, err := h.Uploads.List(ctx, uploadsDefaultLimit)
	if err != nil {
		logger.Error("list uploads", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list uploads"})
		return
	}

	items := make([]uploadItem, 0, len(records))
	for _, record := range records {
		items = append(items, uploadItem{
			VideoID:    record.VideoID,
			SourceID:   record.SourceID,
			YouTubeURL: record.YouTubeURL,
			Title:      record.Title,
			Kind:       record.Kind,
			CreatedAt:  record.CreatedAt.Format(time.RFC3339),
		})
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"uploads": items})
}

type uploadItem struct {
	VideoID    string `json:"videoId"`
	SourceID   string `json:"sourceId"`
	YouTubeURL string `json:"youtubeUrl"`
	Title      string `json:"title"`
	Kind       string `json:"kind"`
	CreatedAt  string `json:"createdAt"`
}

type shortsItem struct {
	models.SourceVideo
	AlreadySynced bool `json:"alreadySynced"`
}

// ListShorts handles GET /api/v1/channels/shorts?url=. Each entry carries an
// alreadySynced flag derived from the upload history so batch syncs can skip
// completed items.
func (h ClipHandler) ListShorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	channelURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if err := media.ValidateChannelURL(channelURL); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid channel URL"})
		return
	}

	videos, err := h.Shorts.ListShorts(ctx, channelURL)
	if err != nil {
		logger.Error("list channel shorts", "channelUrl", channelURL, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to list channel shorts"})
		return
	}

	items := make([]shortsItem, 0, len(videos))
	for _, video := range videos {
		items = append(items, shortsItem{
			SourceVideo:   video,
			AlreadySynced: h.alreadySynced(r, video.ID),
		})
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"shorts": items})
}

func (h ClipHandler) alreadySynced(r *http.Request, sourceID string) bool {
	if h.Uploads == nil || sourceID == "" {
		return false
	}

	_, err := h.Uploads.FindBySourceID(r.Context(), sourceID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, repositories.ErrNotFound):
		return false
	default:
		logging.FromContext(r.Context()).Warn("upload history lookup failed", "sourceId", sourceID, "error", err)
		return false
	}
}

// respondPipelineError translates pipeline failures into responses. A missing
// or expired credential forces the browser through the consent flow again
// rather than returning a result object.
func (h ClipHandler) respondPipelineError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		logger.Warn(logMsg, "error", err)
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
	case errors.Is(err, clips.ErrInvalidInput), errors.Is(err, media.ErrInvalidSource):
		logger.Warn(logMsg, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, uploadResponse{Error: clips.UserMessage(err)})
	default:
		logger.Error(logMsg, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, uploadResponse{Error: clips.UserMessage(err)})
	}
}

// decorateShortsMetadata applies the shorts publishing conventions: the title
// is truncated to fit the suffix and the description gains a #shorts tag line.
func decorateShortsMetadata(req models.SyncRequest) models.SyncRequest {
	title := strings.TrimSpace(req.Title)
	if len(title) > shortsTitleMaxLen {
		title = strings.TrimSpace(title[:shortsTitleMaxLen])
	}
	if !strings.Contains(strings.ToLower(title), "#shorts") {
		title += shortsSuffix
	}
	req.Title = title

	if !strings.Contains(strings.ToLower(req.Description), "#shorts") {
		if req.Description != "" {
			req.Description += "\n\n"
		}
		req.Description += "#shorts"
	}
	return req
}
