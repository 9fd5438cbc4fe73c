package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/downytube/backend/internal/logging"
	"github.com/downytube/backend/internal/models"
)

// FlowHandler exposes the metadata overlay flows. Responses carry only the
// derived overlay; the caller keeps the originals.
type FlowHandler struct {
	Flows   FlowService
	Limiter RateLimiter
}

type flowRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// OptimizeTags handles POST /api/v1/flows/optimize-tags.
func (h FlowHandler) OptimizeTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Flows == nil {
		logger.Error("flow service unavailable")
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "metadata flows are not configured"})
		return
	}

	if !allowRequest(h.Limiter, r, "flows") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	tags, err := h.Flows.OptimizeTags(ctx, models.SourceVideo{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		logger.Error("optimize tags flow failed", "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to optimize tags"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"tags": tags})
}

// Rewrite handles POST /api/v1/flows/rewrite.
func (h FlowHandler) Rewrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Flows == nil {
		logger.Error("flow service unavailable")
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "metadata flows are not configured"})
		return
	}

	if !allowRequest(h.Limiter, r, "flows") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	title, description, err := h.Flows.Rewrite(ctx, models.SourceVideo{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		logger.Error("rewrite flow failed", "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to rewrite metadata"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{
		"title":       title,
		"description": description,
	})
}

func (h FlowHandler) decode(w http.ResponseWriter, r *http.Request) (flowRequest, bool) {
	ctx := r.Context()

	var req flowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid flow payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return flowRequest{}, false
	}

	if strings.TrimSpace(req.Title) == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return flowRequest{}, false
	}

	return req, true
}
