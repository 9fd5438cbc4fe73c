package transform

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestVerticalClipArgs(t *testing.T) {
	spec := VerticalClip(60*time.Second, 30*time.Second)
	args := spec.args()

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-ss 60.000",
		"-t 30.000",
		"scale=720:1280",
		"boxblur",
		"overlay=(W-w)/2:(H-h)/2",
		"setdar=9/16",
		"frag_keyframe+empty_moov",
		"-f mp4 pipe:1",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("vertical clip args missing %q: %s", want, joined)
		}
	}
}

func TestWatermarkArgs(t *testing.T) {
	spec := Watermark("DownyTube")
	joined := strings.Join(spec.args(), " ")

	for _, want := range []string{
		"drawtext=text='DownyTube'",
		"fontcolor=white@0.6",
		"shadowcolor=black@0.7",
		"frag_keyframe+empty_moov",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("watermark args missing %q: %s", want, joined)
		}
	}
	if strings.Contains(joined, "-filter_complex") {
		t.Fatal("watermark should use a simple video filter, not filter_complex")
	}
}

func TestEscapeDrawText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"single quote", "it's mine", `it\\\'s mine`},
		{"colon", "12:34", `12\:34`},
		{"percent", "100%", `100\%`},
		{"backslash", `a\b`, `a\\b`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := escapeDrawText(tc.in); got != tc.want {
				t.Fatalf("escapeDrawText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"valid clip", VerticalClip(0, 30*time.Second), false},
		{"zero duration", VerticalClip(10*time.Second, 0), true},
		{"negative start", VerticalClip(-time.Second, 30*time.Second), true},
		{"valid watermark", Watermark("text"), false},
		{"blank watermark", Watermark("   "), true},
		{"no mode", Spec{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.validate()
			if tc.wantErr && !errors.Is(err, ErrTransformFailed) {
				t.Fatalf("expected ErrTransformFailed, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunnerApplyStreamsOutput(t *testing.T) {
	runner := NewRunner("ffmpeg")
	runner.Start = func(ctx context.Context, binary string, args []string, stdin io.Reader) (io.ReadCloser, func() error, error) {
		// Echo the source through so the test can confirm streaming.
		return io.NopCloser(stdin), func() error { return nil }, nil
	}

	out, err := runner.Apply(context.Background(), strings.NewReader("frames"), Watermark("wm"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	data, err := io.ReadAll(out)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "frames" {
		t.Fatalf("unexpected output: %q", data)
	}
}

func TestRunnerApplyPropagatesFilterFailure(t *testing.T) {
	runner := NewRunner("ffmpeg")
	runner.Start = func(ctx context.Context, binary string, args []string, stdin io.Reader) (io.ReadCloser, func() error, error) {
		return io.NopCloser(strings.NewReader("partial")), func() error {
			return errors.New("exit status 1: Invalid filter argument")
		}, nil
	}

	out, err := runner.Apply(context.Background(), strings.NewReader("frames"), VerticalClip(0, time.Second))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	_, err = io.ReadAll(out)
	if !errors.Is(err, ErrTransformFailed) {
		t.Fatalf("expected ErrTransformFailed from stream, got %v", err)
	}
	if !errors.Is(out.Err(), ErrTransformFailed) {
		t.Fatalf("expected Err() to carry the failure, got %v", out.Err())
	}
}

func TestRunnerApplyMissingBinary(t *testing.T) {
	runner := NewRunner("ffmpeg")
	runner.Start = func(ctx context.Context, binary string, args []string, stdin io.Reader) (io.ReadCloser, func() error, error) {
		return nil, nil, &exec.Error{Name: binary, Err: exec.ErrNotFound}
	}

	if _, err := runner.Apply(context.Background(), strings.NewReader(""), Watermark("wm")); !errors.Is(err, ErrFFmpegMissing) {
		t.Fatalf("expected ErrFFmpegMissing, got %v", err)
	}
}

func TestRunnerApplyRejectsInvalidSpec(t *testing.T) {
	runner := NewRunner("ffmpeg")
	started := false
	runner.Start = func(ctx context.Context, binary string, args []string, stdin io.Reader) (io.ReadCloser, func() error, error) {
		started = true
		return io.NopCloser(strings.NewReader("")), func() error { return nil }, nil
	}

	if _, err := runner.Apply(context.Background(), strings.NewReader(""), Spec{}); !errors.Is(err, ErrTransformFailed) {
		t.Fatalf("expected ErrTransformFailed, got %v", err)
	}
	if started {
		t.Fatal("expected no process start for an invalid spec")
	}
}
