// Package storage uploads product media to Cloudinary or an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Kind is the media family of an upload
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

var (
	// ErrUnsupportedType is returned for anything but images and audio
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrTooLarge is returned when an upload exceeds the configured limit
	ErrTooLarge = errors.New("file too large")
	// ErrEmpty is returned for zero-byte uploads
	ErrEmpty = errors.New("file is empty")
)

// UploadOptions describes an object to store
type UploadOptions struct {
	Filename    string
	ContentType string
	Kind        Kind
	Folder      string
}

// Object is a stored media file
type Object struct {
	URL         string `json:"url"`
	PublicID    string `json:"publicId"`
	ContentType string `json:"contentType"`
	Kind        Kind   `json:"kind"`
	Size        int64  `json:"size"`
	Provider    string `json:"provider"`
}

// MediaStore stores and deletes media
type MediaStore interface {
	Upload(ctx context.Context, data []byte, opts UploadOptions) (*Object, error)
	Delete(ctx context.Context, publicID string, kind Kind) error
	Provider() string
}

// Sniff determines the content type from the bytes, falling back to the
// declared type only when sniffing is inconclusive, and classifies it.
func Sniff(data []byte, declared string) (string, Kind, error) {
	if len(data) == 0 {
		return "", "", ErrEmpty
	}
	contentType := http.DetectContentType(data)
	if contentType == "application/octet-stream" && declared != "" {
		contentType = declared
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return mediaType, KindImage, nil
	case strings.HasPrefix(mediaType, "audio/"):
		return mediaType, KindAudio, nil
	// browsers record voice notes as webm/ogg containers
	case mediaType == "video/webm" || mediaType == "application/ogg":
		return mediaType, KindAudio, nil
	// m4a sniffs as an mp4 container
	case mediaType == "video/mp4" && strings.HasPrefix(declared, "audio/"):
		return declared, KindAudio, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
}

// Validate checks size and type before an upload
func Validate(data []byte, declared string, maxBytes int64) (string, Kind, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), maxBytes)
	}
	return Sniff(data, declared)
}

// objectName builds a unique object name under folder keeping the extension
func objectName(folder string, kind Kind, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	name := uuid.NewString() + ext
	return path.Join(folder, string(kind), name)
}

// withRetry retries transient provider failures
func withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
