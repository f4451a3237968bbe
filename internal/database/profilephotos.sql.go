package database

import (
	"context"
)

const createProfilePhoto = `-- name: CreateProfilePhoto :one
INSERT INTO profile_photos (
session_id, object_key, public_url, mime, size_bytes, width, height)
VALUES ( $1, $2, $3, $4, $5, $6, $7)
RETURNING id, session_id, object_key, public_url, mime, size_bytes, width, height, created_at
`

type CreateProfilePhotoParams struct {
	SessionID string
	ObjectKey string
	PublicUrl string
	Mime      string
	SizeBytes int64
	Width     int32
	Height    int32
}

func (q *Queries) CreateProfilePhoto(ctx context.Context, arg CreateProfilePhotoParams) (ProfilePhoto, error) {
	row := q.db.QueryRowContext(ctx, createProfilePhoto,
		arg.SessionID,
		arg.ObjectKey,
		arg.PublicUrl,
		arg.Mime,
		arg.SizeBytes,
		arg.Width,
		arg.Height,
	)
	var i ProfilePhoto
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.ObjectKey,
		&i.PublicUrl,
		&i.Mime,
		&i.SizeBytes,
		&i.Width,
		&i.Height,
		&i.CreatedAt,
	)
	return i, err
}
