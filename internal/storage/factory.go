package storage

import (
	"fmt"
	"strings"

	"artisan-marketplace/internal/config"
)

const cloudinaryDeliveryHost = "https://res.cloudinary.com/"

// NewMediaStore builds the store selected by MEDIA_PROVIDER
func NewMediaStore(cfg *config.Config) (MediaStore, error) {
	switch cfg.MediaProvider {
	case "", "cloudinary":
		return NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.MediaFolder)
	case "s3":
		return NewS3Store(s3Config(cfg))
	default:
		return nil, fmt.Errorf("unknown MEDIA_PROVIDER %q", cfg.MediaProvider)
	}
}

// PublicURLPrefixes lists the URL prefixes the configured store serves
// objects from. Empty when no store is configured.
func PublicURLPrefixes(cfg *config.Config) []string {
	switch cfg.MediaProvider {
	case "", "cloudinary":
		if cfg.CloudinaryCloudName == "" {
			return nil
		}
		return []string{cloudinaryDeliveryHost + cfg.CloudinaryCloudName + "/"}
	case "s3":
		if cfg.S3Bucket == "" {
			return nil
		}
		return []string{strings.TrimRight(publicBaseURL(s3Config(cfg)), "/") + "/"}
	}
	return nil
}

func s3Config(cfg *config.Config) S3Config {
	return S3Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
		Folder:        cfg.MediaFolder,
	}
}
