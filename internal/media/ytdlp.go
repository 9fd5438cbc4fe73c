package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/downytube/backend/internal/models"
)

// CommandRunner executes an external command and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// YTDLPProvider fetches metadata and channel listings using the yt-dlp CLI tool.
type YTDLPProvider struct {
	Binary  string
	Run     CommandRunner
	Timeout time.Duration
}

// NewYTDLPProvider constructs a Provider that shells out to yt-dlp.
func NewYTDLPProvider(binary string, timeout time.Duration) *YTDLPProvider {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YTDLPProvider{
		Binary:  binary,
		Run:     defaultCommandRunner,
		Timeout: timeout,
	}
}

type ytdlpVideo struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Thumbnail   string   `json:"thumbnail"`
	WebpageURL  string   `json:"webpage_url"`
	Duration    float64  `json:"duration"`
}

func (v ytdlpVideo) toModel() models.SourceVideo {
	thumbnail := v.Thumbnail
	if thumbnail == "" && v.ID != "" {
		thumbnail = ThumbnailURL(v.ID)
	}
	watchURL := v.WebpageURL
	if watchURL == "" && v.ID != "" {
		watchURL = WatchURL(v.ID)
	}
	description := v.Description
	if description == "" {
		description = "No description available."
	}
	return models.SourceVideo{
		ID:           v.ID,
		Title:        v.Title,
		Description:  description,
		Tags:         v.Tags,
		ThumbnailURL: thumbnail,
		YouTubeURL:   watchURL,
		Duration:     v.Duration,
	}
}

// Lookup executes yt-dlp for the provided URL and parses the JSON descriptor.
func (p *YTDLPProvider) Lookup(ctx context.Context, url string) (models.SourceVideo, error) {
	if p == nil {
		return models.SourceVideo{}, ErrProviderUnavailable
	}
	if err := ValidateURL(url); err != nil {
		return models.SourceVideo{}, err
	}

	out, err := p.run(ctx, "--dump-single-json", "--no-warnings", "--no-playlist", "--skip-download", url)
	if err != nil {
		return models.SourceVideo{}, fmt.Errorf("yt-dlp fetch: %w", err)
	}

	var payload ytdlpVideo
	if err := json.Unmarshal(out, &payload); err != nil {
		return models.SourceVideo{}, fmt.Errorf("parse yt-dlp response: %w", err)
	}
	if payload.ID == "" {
		return models.SourceVideo{}, errors.New("yt-dlp returned no video id")
	}

	return payload.toModel(), nil
}

// ListShorts enumerates the public shorts of a channel via a flat playlist dump.
func (p *YTDLPProvider) ListShorts(ctx context.Context, channelURL string) ([]models.SourceVideo, error) {
	if p == nil {
		return nil, ErrProviderUnavailable
	}
	if err := ValidateChannelURL(channelURL); err != nil {
		return nil, err
	}

	shortsURL := strings.TrimRight(channelURL, "/") + "/shorts"
	out, err := p.run(ctx, "--dump-single-json", "--no-warnings", "--flat-playlist", shortsURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp list shorts: %w", err)
	}

	var payload struct {
		Entries []ytdlpVideo `json:"entries"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("parse yt-dlp playlist: %w", err)
	}

	videos := make([]models.SourceVideo, 0, len(payload.Entries))
	for _, entry := range payload.Entries {
		if entry.ID == "" {
			continue
		}
		videos = append(videos, entry.toModel())
	}
	return videos, nil
}

func (p *YTDLPProvider) run(ctx context.Context, args ...string) ([]byte, error) {
	run := p.Run
	if run == nil {
		run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, err := run(execCtx, p.Binary, args...)
	if errors.Is(err, exec.ErrNotFound) {
		return nil, ErrToolMissing
	}
	return out, err
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
