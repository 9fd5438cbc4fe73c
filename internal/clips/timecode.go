package clips

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	// ErrInvalidInput indicates a malformed request rejected before any
	// network activity.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTimeRange indicates an unparseable time string or a clip
	// window whose end does not come after its start.
	ErrInvalidTimeRange = fmt.Errorf("%w: invalid start or end time", ErrInvalidInput)
)

// timecodePattern matches MM:SS and HH:MM:SS with seconds (and minutes, in
// the three-part form) below 60.
var timecodePattern = regexp.MustCompile(`^(?:(\d{1,2}):)?(\d{1,2}):([0-5]\d)$`)

// Timecode is a validated offset into a video, constructed only from a
// pattern-matched time string so malformed input is rejected at the boundary
// rather than deep inside the pipeline.
type Timecode struct {
	seconds int
}

// ParseTimecode parses a human-entered MM:SS or HH:MM:SS offset.
func ParseTimecode(s string) (Timecode, error) {
	m := timecodePattern.FindStringSubmatch(s)
	if m == nil {
		return Timecode{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}

	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	if m[1] != "" && minutes > 59 {
		return Timecode{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	seconds, _ := strconv.Atoi(m[3])

	return Timecode{seconds: hours*3600 + minutes*60 + seconds}, nil
}

// Duration returns the offset as a duration from the start of the video.
func (t Timecode) Duration() time.Duration {
	return time.Duration(t.seconds) * time.Second
}

// Seconds returns the offset in whole seconds.
func (t Timecode) Seconds() int {
	return t.seconds
}

func (t Timecode) String() string {
	h := t.seconds / 3600
	m := t.seconds % 3600 / 60
	s := t.seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ClipWindow validates a start/end pair and returns the start offset plus the
// derived duration. The parsed end must be strictly greater than the start.
func ClipWindow(start, end string) (Timecode, time.Duration, error) {
	startTC, err := ParseTimecode(start)
	if err != nil {
		return Timecode{}, 0, err
	}
	endTC, err := ParseTimecode(end)
	if err != nil {
		return Timecode{}, 0, err
	}
	if endTC.seconds <= startTC.seconds {
		return Timecode{}, 0, fmt.Errorf("%w: end %q is not after start %q", ErrInvalidTimeRange, end, start)
	}
	return startTC, endTC.Duration() - startTC.Duration(), nil
}
