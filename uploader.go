package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
	"github.com/muhammadolammi/jobmatchcapture/internal/database"
)

const profilePhotoPrefix = "profile-photos"

type photoRecorder interface {
	CreateProfilePhoto(ctx context.Context, arg database.CreateProfilePhotoParams) (database.ProfilePhoto, error)
}

// photoUploader is the capture.Sink of the portal: it stores the still in
// the bucket and returns its public URL for the apply form.
type photoUploader struct {
	objects   objectStore
	photos    photoRecorder
	publisher publisher
	now       func() time.Time
	logger    *slog.Logger
}

var _ capture.Sink = (*photoUploader)(nil)

func (u *photoUploader) Accept(ctx context.Context, f capture.Frame) (string, error) {
	key := fmt.Sprintf("%s/profile_%d.jpg", profilePhotoPrefix, u.now().UnixMilli())

	_, err := retry(3, func() (any, error) {
		return nil, u.objects.Put(ctx, key, f.MimeType, f.Data)
	})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	url := u.objects.PublicURL(key)

	_, err = u.photos.CreateProfilePhoto(ctx, database.CreateProfilePhotoParams{
		SessionID: f.SessionID,
		ObjectKey: key,
		PublicUrl: url,
		Mime:      f.MimeType,
		SizeBytes: int64(len(f.Data)),
		Width:     int32(f.Width),
		Height:    int32(f.Height),
	})
	if err != nil {
		return "", fmt.Errorf("record photo: %w", err)
	}

	event := CaptureEvent{
		SessionID: f.SessionID,
		Event:     "submitted",
		PhotoURL:  url,
		Timestamp: u.now(),
	}
	if err := u.publisher.PublishUpdate(ctx, captureRoutingKey(f.SessionID), event); err != nil {
		u.logger.Warn("failed to publish capture event", "session_id", f.SessionID, "error", err)
	}
	u.logger.Info("✅ profile photo uploaded", "session_id", f.SessionID, "key", key)
	return url, nil
}
