package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/downytube/backend/internal/media"
)

// StartFunc launches the transcoding subprocess with its stdin wired to the
// source stream. It returns the process stdout and a wait function reporting
// the process result once the pipe drains.
type StartFunc func(ctx context.Context, binary string, args []string, stdin io.Reader) (io.ReadCloser, func() error, error)

// Runner applies a transform Spec to a source byte stream by piping it
// through an ffmpeg filter graph. Output is produced incrementally; it is
// never buffered in full, because source videos can be large and the upload
// sink consumes a stream anyway.
type Runner struct {
	Binary string
	Start  StartFunc
}

// NewRunner constructs a Runner using the provided ffmpeg binary.
func NewRunner(binary string) *Runner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Runner{Binary: binary, Start: startFFmpeg}
}

// Apply starts the filter graph for the Spec and returns the transformed
// stream. Encoder and filter-graph failures abort the stream with an error
// that propagates to whatever consumes it, never a silent truncation.
func (r *Runner) Apply(ctx context.Context, in io.Reader, spec Spec) (*media.Stream, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	start := r.Start
	if start == nil {
		start = startFFmpeg
	}

	stdout, wait, err := start(ctx, r.Binary, spec.args(), in)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrFFmpegMissing
		}
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrTransformFailed, err)
	}

	return media.NewStream(stdout, wait, func(err error) error {
		return fmt.Errorf("%w: %v", ErrTransformFailed, err)
	}), nil
}

func startFFmpeg(ctx context.Context, binary string, args []string, stdin io.Reader) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = stdin

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
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%w: %s", err, lastLines(msg, 5))
			}
			return err
		}
		return nil
	}
	return stdout, wait, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
