package imagefetch

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// IsDataURL reports whether u is an inline data: URL.
func IsDataURL(u string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(u)), "data:")
}

// DecodeDataURL splits a base64 data: URL into its payload and MIME type.
func DecodeDataURL(u string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(u), ",")
	if !ok || !IsDataURL(header) {
		return nil, "", fmt.Errorf("%w: malformed data url", ErrNotImage)
	}
	mimeType, encoding, _ := strings.Cut(header[len("data:"):], ";")
	if !strings.EqualFold(encoding, "base64") {
		return nil, "", fmt.Errorf("%w: data url is not base64 encoded", ErrNotImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode data url: %v", ErrNotImage, err)
	}
	if mimeType == "" {
		mimeType = mediaType(http.DetectContentType(data))
	}
	return data, strings.ToLower(mimeType), nil
}
