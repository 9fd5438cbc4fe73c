package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Selector names a quality/codec profile for stream resolution.
type Selector string

const (
	// SelectorMuxed picks the best representation carrying both audio and video.
	SelectorMuxed Selector = "best[acodec!=none][vcodec!=none]"
	// SelectorAudioOnly picks the best audio-only representation.
	SelectorAudioOnly Selector = "bestaudio[acodec!=none]"
)

func (s Selector) describe() string {
	switch s {
	case SelectorMuxed:
		return "combined audio and video"
	case SelectorAudioOnly:
		return "audio only"
	default:
		return string(s)
	}
}

// StartFunc launches a streaming subprocess. It returns the process stdout
// and a wait function that reports the process result once the pipe drains.
type StartFunc func(ctx context.Context, binary string, args []string) (io.ReadCloser, func() error, error)

// Streamer resolves a video URL to a continuously readable byte stream of the
// selected representation, via a yt-dlp subprocess writing to stdout. The
// stream is lazily consumed by downstream stages.
type Streamer struct {
	Binary string
	Start  StartFunc
}

// NewStreamer constructs a Streamer using the provided yt-dlp binary.
func NewStreamer(binary string) *Streamer {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	return &Streamer{Binary: binary, Start: startStreaming}
}

// Open validates the URL and starts streaming the representation matching the
// selector. When the source exposes no matching representation the returned
// stream fails with ErrNoCompatibleFormat naming the missing combination.
func (s *Streamer) Open(ctx context.Context, url string, selector Selector) (*Stream, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}

	start := s.Start
	if start == nil {
		start = startStreaming
	}

	args := []string{
		"-f", string(selector),
		"--no-warnings",
		"--no-playlist",
		"--quiet",
		"-o", "-",
		url,
	}

	stdout, wait, err := start(ctx, s.Binary, args)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrToolMissing
		}
		return nil, fmt.Errorf("start yt-dlp stream: %w", err)
	}

	return NewStream(stdout, wait, func(err error) error {
		if strings.Contains(err.Error(), "Requested format is not available") {
			return fmt.Errorf("%w: source has no %s representation", ErrNoCompatibleFormat, selector.describe())
		}
		return fmt.Errorf("yt-dlp stream (%s): %w", selector.describe(), err)
	}), nil
}

func startStreaming(ctx context.Context, binary string, args []string) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return fmt.Errorf("%w: %s", err, tail(msg, 1024))
			}
			return err
		}
		return nil
	}
	return stdout, wait, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Stream is a live byte stream produced by an external process. Errors the
// process reports after output has started flowing surface through Read and
// remain available via Err, so a consumer that already observed EOF-adjacent
// success can still detect pipeline failure.
type Stream struct {
	r      io.ReadCloser
	wait   func() error
	mapErr func(error) error

	once sync.Once
	mu   sync.Mutex
	err  error
}

// NewStream wraps process output in the shared streaming/error contract.
// mapErr, when non-nil, rewrites the process failure into a caller-facing error.
func NewStream(r io.ReadCloser, wait func() error, mapErr func(error) error) *Stream {
	return &Stream{r: r, wait: wait, mapErr: mapErr}
}

// Read forwards bytes from the process. When the process exits with a
// failure, that failure replaces the terminal io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, io.EOF) {
		if werr := s.finish(); werr != nil {
			return n, werr
		}
		return n, io.EOF
	}
	s.record(err)
	return n, err
}

// Close releases the underlying pipe and reaps the process.
func (s *Stream) Close() error {
	cerr := s.r.Close()
	s.finish()
	return cerr
}

// Err reports the terminal pipeline failure, if any. It is the explicit
// error channel distinct from the consumer's own completion signal.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) finish() error {
	s.once.Do(func() {
		if s.wait == nil {
			return
		}
		if err := s.wait(); err != nil {
			if s.mapErr != nil {
				err = s.mapErr(err)
			}
			s.record(err)
		}
	})
	return s.Err()
}

func (s *Stream) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
