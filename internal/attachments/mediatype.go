package attachments

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

var extensionsByMimeType = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"image/svg+xml":    ".svg",
	"application/pdf":  ".pdf",
	"text/plain":       ".txt",
	"application/json": ".json",
}

// extensionFromMimeType returns a filename extension (including the dot)
// for mimeType, falling back to the mime package's registry and finally to
// ".bin" for unrecognized types.
func extensionFromMimeType(mimeType string) string {
	if ext, ok := extensionsByMimeType[mimeType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// extensionFromBytes sniffs the content type of data and returns a matching
// extension, for attachments that arrive without a declared MIME type.
func extensionFromBytes(data []byte) string {
	return extensionFromMimeType(http.DetectContentType(data))
}

// SplitDataURL splits a "data:<mime>;base64,<payload>" URL into its parts.
func SplitDataURL(dataURL string) (mimeType, encoding, data string, err error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", "", "", fmt.Errorf("invalid data URL: missing \"data:\" prefix")
	}
	body := dataURL[len("data:"):]

	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("invalid data URL: missing comma separator")
	}

	metaParts := strings.Split(parts[0], ";")
	if len(metaParts) > 0 {
		mimeType = metaParts[0]
	}
	if len(metaParts) > 1 {
		encoding = metaParts[1]
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return mimeType, encoding, parts[1], nil
}
