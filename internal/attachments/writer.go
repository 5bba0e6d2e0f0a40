package attachments

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/digitallysavvy/claude-code-gateway/internal/reqmodel"
)

// Materialize writes each attachment to dir (the request's workspace) and
// returns their absolute paths in input order. A failure on one attachment
// aborts the whole batch: the NormalizedRequest's file list must be
// complete or omitted, never partial.
func Materialize(ctx context.Context, dir string, atts []reqmodel.Attachment) ([]string, error) {
	paths := make([]string, 0, len(atts))

	for _, att := range atts {
		var (
			data []byte
			ext  string
			err  error
		)

		switch {
		case att.Base64Data != "":
			data, err = base64.StdEncoding.DecodeString(att.Base64Data)
			if err != nil {
				return nil, fmt.Errorf("decode attachment payload: %w", err)
			}
			if att.MimeType != "" {
				ext = extensionFromMimeType(att.MimeType)
			} else {
				ext = extensionFromBytes(data)
			}

		case strings.HasPrefix(att.URL, "data:"):
			mimeType, _, payload, derr := SplitDataURL(att.URL)
			if derr != nil {
				return nil, derr
			}
			data, err = base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return nil, fmt.Errorf("decode data URL payload: %w", err)
			}
			ext = extensionFromMimeType(mimeType)

		case att.URL != "":
			data, err = Download(ctx, att.URL, DefaultDownloadOptions())
			if err != nil {
				return nil, err
			}
			ext = extensionFromBytes(data)

		default:
			continue
		}

		name := uuid.NewString() + ext
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write attachment %s: %w", name, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
