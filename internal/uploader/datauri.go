package uploader

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeDataURI renders image bytes as a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI splits a base64 data URI into its MIME type and decoded bytes.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI: %q", truncate(uri, 40))
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: missing payload separator")
	}

	mimeType, encoding, _ := strings.Cut(header, ";")
	if mimeType == "" {
		mimeType = "text/plain"
	}
	if encoding != "base64" {
		return "", nil, fmt.Errorf("unsupported data URI encoding %q", encoding)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI payload: %w", err)
	}
	return mimeType, data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
