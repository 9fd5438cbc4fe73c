package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandlerHandle(t *testing.T) {
	handler := HealthHandler{}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type got %s", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec = httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

func TestHealthHandlerReportsToolChecks(t *testing.T) {
	handler := HealthHandler{Checks: []HealthCheck{
		{Name: "yt-dlp", Check: func() error { return nil }},
		{Name: "ffmpeg", Check: func() error { return errors.New("executable not found") }},
	}}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var payload struct {
		Status string            `json:"status"`
		Tools  map[string]string `json:"tools"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health payload: %v", err)
	}

	if payload.Status != "degraded" {
		t.Fatalf("expected degraded status got %q", payload.Status)
	}
	if payload.Tools["yt-dlp"] != "ok" {
		t.Fatalf("expected yt-dlp ok got %q", payload.Tools["yt-dlp"])
	}
	if payload.Tools["ffmpeg"] != "executable not found" {
		t.Fatalf("unexpected ffmpeg check result %q", payload.Tools["ffmpeg"])
	}
}
