package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/downytube/backend/internal/auth"
	"github.com/downytube/backend/internal/clips"
	"github.com/downytube/backend/internal/models"
	"github.com/downytube/backend/internal/repositories"
)

type fakeClipService struct {
	clipReq models.ClipRequest
	syncReq models.SyncRequest
	session *auth.Session
	result  models.UploadResult
	err     error
}

func (f *fakeClipService) GenerateAndUploadClip(_ context.Context, session *auth.Session, req models.ClipRequest) (models.UploadResult, error) {
	f.session = session
	f.clipReq = req
	return f.result, f.err
}

func (f *fakeClipService) SyncVideo(_ context.Context, session *auth.Session, req models.SyncRequest) (models.UploadResult, error) {
	f.session = session
	f.syncReq = req
	return f.result, f.err
}

type fakeUploadStore struct {
	records  []models.UploadRecord
	findErr  error
	listErr  error
	lookedUp []string
}

func (f *fakeUploadStore) FindBySourceID(_ context.Context, sourceID string) (models.UploadRecord, error) {
	f.lookedUp = append(f.lookedUp, sourceID)
	if f.findErr != nil {
		return models.UploadRecord{}, f.findErr
	}
	for _, record := range f.records {
		if record.SourceID == sourceID {
			return record, nil
		}
	}
	return models.UploadRecord{}, repositories.ErrNotFound
}

func (f *fakeUploadStore) List(context.Context, int) ([]models.UploadRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

type fakeShortsLister struct {
	videos []models.SourceVideo
	err    error
}

func (f *fakeShortsLister) ListShorts(context.Context, string) ([]models.SourceVideo, error) {
	return f.videos, f.err
}

func testCookieStore(t *testing.T) *auth.CookieStore {
	t.Helper()
	store, err := auth.NewCookieStore("test-secret-used-only-in-tests", false)
	if err != nil {
		t.Fatalf("new cookie store: %v", err)
	}
	return store
}

func TestClipHandlerCreateClip(t *testing.T) {
	service := &fakeClipService{result: models.UploadResult{
		VideoID:    "up123456789",
		YouTubeURL: "https://www.youtube.com/watch?v=up123456789",
	}}
	handler := ClipHandler{Clips: service, Cookies: testCookieStore(t)}

	body := `{"youtubeUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","startTime":"01:00","endTime":"01:30","title":"Best moment"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clips", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateClip(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			VideoID    string `json:"videoId"`
			YouTubeURL string `json:"youtubeUrl"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Data.VideoID != "up123456789" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Data.YouTubeURL != "https://www.youtube.com/watch?v=up123456789" {
		t.Fatalf("youtubeUrl = %q", resp.Data.YouTubeURL)
	}
	if service.clipReq.StartTime != "01:00" || service.clipReq.EndTime != "01:30" {
		t.Fatalf("unexpected request forwarded: %+v", service.clipReq)
	}
}

// Successful uploads nest the identifiers under a data object; error payloads
// stay flat with a top-level error string.
func TestClipHandlerResponseEnvelope(t *testing.T) {
	service := &fakeClipService{result: models.UploadResult{
		VideoID:    "up123456789",
		YouTubeURL: "https://www.youtube.com/watch?v=up123456789",
	}}
	handler := ClipHandler{Clips: service, Cookies: testCookieStore(t)}

	body := `{"youtubeUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","startTime":"01:00","endTime":"01:30","title":"Best moment"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clips", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateClip(rec, req)

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	data, ok := envelope["data"]
	if !ok {
		t.Fatalf("success payload lacks a data object: %s", rec.Body)
	}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("decode data object: %v", err)
	}
	if fields["videoId"] != "up123456789" {
		t.Fatalf("data.videoId = %q", fields["videoId"])
	}
	if _, ok := envelope["error"]; ok {
		t.Fatalf("success payload carries an error field: %s", rec.Body)
	}

	service.err = clips.ErrInvalidTimeRange
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/clips", strings.NewReader(body))

	handler.CreateClip(rec, req)

	envelope = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if _, ok := envelope["data"]; ok {
		t.Fatalf("error payload carries a data object: %s", rec.Body)
	}
	if _, ok := envelope["error"]; !ok {
		t.Fatalf("error payload lacks an error field: %s", rec.Body)
	}
}

func TestClipHandlerCreateClipInvalidTimeRange(t *testing.T) {
	service := &fakeClipService{err: clips.ErrInvalidTimeRange}
	handler := ClipHandler{Clips: service, Cookies: testCookieStore(t)}

	body := `{"youtubeUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","startTime":"02:00","endTime":"01:00","title":"Backwards"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clips", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateClip(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Invalid start or end time provided." {
		t.Fatalf("error message = %q, want the exact user-facing string", resp.Error)
	}
}

func TestClipHandlerRedirectsWhenNotAuthenticated(t *testing.T) {
	service := &fakeClipService{err: auth.ErrNotAuthenticated}
	handler := ClipHandler{Clips: service, Cookies: testCookieStore(t)}

	body := `{"youtubeUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","startTime":"01:00","endTime":"01:30","title":"t"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clips", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateClip(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 redirect", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != loginPath {
		t.Fatalf("redirect location = %q, want %q", got, loginPath)
	}
}

func TestClipHandlerCreateClipBadPayload(t *testing.T) {
	handler := ClipHandler{Clips: &fakeClipService{}, Cookies: testCookieStore(t)}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clips", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.CreateClip(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClipHandlerRateLimit(t *testing.T) {
	handler := ClipHandler{
		Clips:   &fakeClipService{},
		Cookies: testCookieStore(t),
		Limiter: denyAllLimiter{},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clips", strings.NewReader("{}"))
	rec := httptest.NewRecorder()

	handler.CreateClip(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestClipHandlerSyncDecoratesShorts(t *testing.T) {
	service := &fakeClipService{result: models.UploadResult{VideoID: "sync1234567"}}
	handler := ClipHandler{Clips: service, Cookies: testCookieStore(t)}

	longTitle := strings.Repeat("a", 80)
	body := `{"youtubeUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","title":"` + longTitle + `","description":"original","shorts":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Sync(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if !strings.HasSuffix(service.syncReq.Title, " #shorts") {
		t.Fatalf("title %q missing #shorts suffix", service.syncReq.Title)
	}
	if len(service.syncReq.Title) > shortsTitleMaxLen+len(shortsSuffix) {
		t.Fatalf("title %q exceeds the shorts length cap", service.syncReq.Title)
	}
	if !strings.Contains(service.syncReq.Description, "#shorts") {
		t.Fatalf("description %q missing #shorts tag", service.syncReq.Description)
	}
}

func TestClipHandlerSyncPassthroughWithoutShortsFlag(t *testing.T) {
	service := &fakeClipService{result: models.UploadResult{VideoID: "sync1234567"}}
	handler := ClipHandler{Clips: service, Cookies: testCookieStore(t)}

	body := `{"youtubeUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","title":"Plain title","description":"original"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Sync(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if service.syncReq.Title != "Plain title" {
		t.Fatalf("title = %q, want unchanged", service.syncReq.Title)
	}
	if service.syncReq.Description != "original" {
		t.Fatalf("description = %q, want unchanged", service.syncReq.Description)
	}
}

func TestClipHandlerListUploads(t *testing.T) {
	store := &fakeUploadStore{records: []models.UploadRecord{
		{ID: "1", SourceID: "src00000001", VideoID: "vid00000001", YouTubeURL: "https://www.youtube.com/watch?v=vid00000001", Title: "First", Kind: models.UploadKindClip, CreatedAt: time.Now().UTC()},
	}}
	handler := ClipHandler{Uploads: store}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil)
	rec := httptest.NewRecorder()

	handler.ListUploads(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Uploads []uploadItem `json:"uploads"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Uploads) != 1 || resp.Uploads[0].VideoID != "vid00000001" {
		t.Fatalf("unexpected uploads: %+v", resp.Uploads)
	}
}

func TestClipHandlerListShortsAnnotatesHistory(t *testing.T) {
	lister := &fakeShortsLister{videos: []models.SourceVideo{
		{ID: "synced00001", Title: "Already up"},
		{ID: "fresh000001", Title: "Not yet"},
	}}
	store := &fakeUploadStore{records: []models.UploadRecord{
		{ID: "1", SourceID: "synced00001", VideoID: "vid00000001"},
	}}
	handler := ClipHandler{Shorts: lister, Uploads: store}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/shorts?url=https://www.youtube.com/@somecreator", nil)
	rec := httptest.NewRecorder()

	handler.ListShorts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Shorts []shortsItem `json:"shorts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Shorts) != 2 {
		t.Fatalf("shorts = %d, want 2", len(resp.Shorts))
	}
	if !resp.Shorts[0].AlreadySynced {
		t.Fatalf("expected %s to be marked synced", resp.Shorts[0].ID)
	}
	if resp.Shorts[1].AlreadySynced {
		t.Fatalf("expected %s to be unsynced", resp.Shorts[1].ID)
	}
}

func TestClipHandlerListShortsRejectsBadChannelURL(t *testing.T) {
	handler := ClipHandler{Shorts: &fakeShortsLister{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/shorts?url=https://example.com/watch", nil)
	rec := httptest.NewRecorder()

	handler.ListShorts(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClipHandlerUpstreamFailure(t *testing.T) {
	service := &fakeClipService{err: errors.New("format is not available")}
	handler := ClipHandler{Clips: service, Cookies: testCookieStore(t)}

	body := `{"youtubeUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","startTime":"01:00","endTime":"01:30","title":"t"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clips", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateClip(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
