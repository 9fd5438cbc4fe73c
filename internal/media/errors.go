package media

import "errors"

var (
	// ErrProviderUnavailable indicates the metadata provider is not configured.
	ErrProviderUnavailable = errors.New("video metadata provider unavailable")
	// ErrInvalidSource indicates the URL does not match a known source platform shape.
	ErrInvalidSource = errors.New("invalid YouTube URL")
	// ErrNoCompatibleFormat indicates no downloadable stream matches the selector.
	ErrNoCompatibleFormat = errors.New("no compatible format")
	// ErrToolMissing indicates the yt-dlp binary is absent from the runtime environment.
	ErrToolMissing = errors.New("yt-dlp binary not found; install yt-dlp and ensure it is on PATH")
)
