package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore stores media on Cloudinary
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore creates a Cloudinary backed store
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials are required")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Provider() string {
	return "cloudinary"
}

// resourceType maps a media kind to Cloudinary's resource type. Audio lives
// under "video" on Cloudinary.
func resourceType(kind Kind) string {
	if kind == KindAudio {
		return "video"
	}
	return "image"
}

func (s *CloudinaryStore) Upload(ctx context.Context, data []byte, opts UploadOptions) (*Object, error) {
	folder := opts.Folder
	if folder == "" {
		folder = s.folder
	}
	name := objectName("", opts.Kind, opts.Filename)
	publicID := strings.TrimSuffix(name, pathExt(name))

	var result *uploader.UploadResult
	err := withRetry(ctx, func(ctx context.Context) error {
		res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
			PublicID:     publicID,
			Folder:       folder,
			ResourceType: resourceType(opts.Kind),
		})
		if err != nil {
			return err
		}
		if res.Error.Message != "" {
			return errors.New(res.Error.Message)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload failed: %w", err)
	}

	return &Object{
		URL:         result.SecureURL,
		PublicID:    result.PublicID,
		ContentType: opts.ContentType,
		Kind:        opts.Kind,
		Size:        int64(len(data)),
		Provider:    s.Provider(),
	}, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, publicID string, kind Kind) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType(kind),
	})
	if err != nil {
		return fmt.Errorf("cloudinary delete failed: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary delete failed: %s", res.Error.Message)
	}
	return nil
}

func pathExt(name string) string {
	if i := strings.LastIndex(name, "."); i > strings.LastIndex(name, "/") {
		return name[i:]
	}
	return ""
}
