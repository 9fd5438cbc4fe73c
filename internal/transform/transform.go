package transform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTransformFailed indicates the transcoding filter graph raised an error.
	ErrTransformFailed = errors.New("transform failed")
	// ErrFFmpegMissing indicates the transcoding binary is absent from the runtime environment.
	ErrFFmpegMissing = errors.New("ffmpeg binary not found; install ffmpeg and ensure it is on PATH")
)

// Mode selects which transform a Spec requests.
type Mode int

const (
	// ModeNone performs no transformation.
	ModeNone Mode = iota
	// ModeVerticalClip composites a seeked, duration-limited clip onto a
	// blurred 720x1280 vertical canvas.
	ModeVerticalClip
	// ModeWatermark overlays watermark text near the bottom-left of each frame.
	ModeWatermark
)

// Spec is the tagged variant describing one transform request. Representing
// both modes as one stage guarantees they share the identical streaming and
// error-propagation contract.
type Spec struct {
	Mode Mode

	// Start and Duration bound the clip window; ModeVerticalClip only.
	Start    time.Duration
	Duration time.Duration

	// WatermarkText is drawn onto each frame; ModeWatermark only.
	WatermarkText string
}

// VerticalClip builds a Spec for the short-form clip transform.
func VerticalClip(start, duration time.Duration) Spec {
	return Spec{Mode: ModeVerticalClip, Start: start, Duration: duration}
}

// Watermark builds a Spec for the text-overlay transform.
func Watermark(text string) Spec {
	return Spec{Mode: ModeWatermark, WatermarkText: text}
}

func (s Spec) validate() error {
	switch s.Mode {
	case ModeVerticalClip:
		if s.Duration <= 0 {
			return fmt.Errorf("%w: clip duration must be positive", ErrTransformFailed)
		}
		if s.Start < 0 {
			return fmt.Errorf("%w: clip start must not be negative", ErrTransformFailed)
		}
		return nil
	case ModeWatermark:
		if strings.TrimSpace(s.WatermarkText) == "" {
			return fmt.Errorf("%w: watermark text must not be empty", ErrTransformFailed)
		}
		return nil
	default:
		return fmt.Errorf("%w: no transform requested", ErrTransformFailed)
	}
}

// verticalFilter duplicates the frame into a background plate (scaled, cropped
// to the 720x1280 canvas and strongly blurred) and a foreground scaled to
// width 720 preserving aspect ratio, composites the foreground centered over
// the plate, and forces a 9:16 display aspect ratio.
const verticalFilter = "[0:v]split=2[bg][fg];" +
	"[bg]scale=720:1280:force_original_aspect_ratio=increase,crop=720:1280,boxblur=20:5[plate];" +
	"[fg]scale=720:-2[scaled];" +
	"[plate][scaled]overlay=(W-w)/2:(H-h)/2,setdar=9/16[vout]"

// streamingOutput encodes into a fragmented MP4 with no trailing index atom so
// output flows before input is fully consumed.
var streamingOutput = []string{
	"-c:v", "libx264",
	"-preset", "veryfast",
	"-c:a", "aac",
	"-movflags", "frag_keyframe+empty_moov",
	"-f", "mp4",
	"pipe:1",
}

func (s Spec) args() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}

	switch s.Mode {
	case ModeVerticalClip:
		args = append(args,
			"-ss", formatSeconds(s.Start),
			"-i", "pipe:0",
			"-t", formatSeconds(s.Duration),
			"-filter_complex", verticalFilter,
			"-map", "[vout]",
			"-map", "0:a?",
		)
	case ModeWatermark:
		args = append(args,
			"-i", "pipe:0",
			"-vf", drawtextFilter(s.WatermarkText),
		)
	}

	return append(args, streamingOutput...)
}

// drawtextFilter draws the text near the bottom-left with a semi-opaque white
// fill and a dark drop-shadow at a fixed font size.
func drawtextFilter(text string) string {
	return fmt.Sprintf(
		"drawtext=text='%s':x=20:y=h-th-20:fontsize=36:fontcolor=white@0.6:shadowcolor=black@0.7:shadowx=2:shadowy=2",
		escapeDrawText(text),
	)
}

// escapeDrawText neutralizes the characters that are special inside a
// single-quoted drawtext value so embedded quotes cannot break out of the
// filter syntax.
func escapeDrawText(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\\\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
