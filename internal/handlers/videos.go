package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/downytube/backend/internal/logging"
	"github.com/downytube/backend/internal/media"
)

// VideoHandler serves read-only source video metadata.
type VideoHandler struct {
	Metadata MetadataProvider
}

// Lookup handles GET /api/v1/videos/metadata?url=. Failures come back as
// plain error payloads; this endpoint never forces a login redirect.
func (h VideoHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "url query parameter is required"})
		return
	}

	video, err := h.Metadata.Lookup(ctx, url)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrInvalidSource):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "Invalid YouTube URL provided."})
		case errors.Is(err, media.ErrToolMissing):
			logger.Error("metadata lookup tool missing", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "metadata service unavailable"})
		default:
			logger.Warn("metadata lookup failed", "url", url, "error", err)
			respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to fetch video metadata"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, video)
}
