package services

import (
	"context"
	"fmt"
	"strings"

	"artisan-marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MediaService validates uploads and hands them to the configured store
type MediaService struct {
	store    storage.MediaStore
	folder   string
	maxBytes int64
	log      *logrus.Entry
}

// NewMediaService creates a new MediaService. A nil store disables uploads.
func NewMediaService(store storage.MediaStore, folder string, maxBytes int64, log *logrus.Logger) *MediaService {
	return &MediaService{
		store:    store,
		folder:   folder,
		maxBytes: maxBytes,
		log:      log.WithField("component", "media_service"),
	}
}

// Upload stores an image or audio file under the uploader's folder
func (s *MediaService) Upload(ctx context.Context, userID uuid.UUID, filename, declaredType string, data []byte) (*storage.Object, error) {
	if s.store == nil {
		return nil, ErrMediaUnavailable
	}
	contentType, kind, err := storage.Validate(data, declaredType, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	obj, err := s.store.Upload(ctx, data, storage.UploadOptions{
		Filename:    filename,
		ContentType: contentType,
		Kind:        kind,
		Folder:      s.userFolder(userID),
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "public_id": obj.PublicID, "kind": kind, "size": obj.Size}).Info("Media uploaded")
	return obj, nil
}

// Delete removes an object. Non-admins may only delete inside their own folder.
func (s *MediaService) Delete(ctx context.Context, userID uuid.UUID, isAdmin bool, publicID string, kind storage.Kind) error {
	if s.store == nil {
		return ErrMediaUnavailable
	}
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return validationError("publicId is required")
	}
	if kind != storage.KindImage && kind != storage.KindAudio {
		return validationError("kind must be image or audio")
	}
	if !isAdmin && !strings.HasPrefix(publicID, s.userFolder(userID)+"/") {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, publicID, kind); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "public_id": publicID}).Info("Media deleted")
	return nil
}

func (s *MediaService) userFolder(userID uuid.UUID) string {
	return strings.Trim(s.folder, "/") + "/" + userID.String()
}
