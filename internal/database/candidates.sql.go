package database

import (
	"context"
	"database/sql"
	"time"
)

const createCandidate = `-- name: CreateCandidate :one
INSERT INTO candidates (
full_name, email, phone, date_of_birth, domicile, gender, linkedin, photo_url)
VALUES ( $1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, full_name, email, phone, date_of_birth, domicile, gender, linkedin, photo_url, created_at
`

type CreateCandidateParams struct {
	FullName    string
	Email       string
	Phone       string
	DateOfBirth time.Time
	Domicile    string
	Gender      string
	Linkedin    string
	PhotoUrl    sql.NullString
}

func (q *Queries) CreateCandidate(ctx context.Context, arg CreateCandidateParams) (Candidate, error) {
	row := q.db.QueryRowContext(ctx, createCandidate,
		arg.FullName,
		arg.Email,
		arg.Phone,
		arg.DateOfBirth,
		arg.Domicile,
		arg.Gender,
		arg.Linkedin,
		arg.PhotoUrl,
	)
	var i Candidate
	err := row.Scan(
		&i.ID,
		&i.FullName,
		&i.Email,
		&i.Phone,
		&i.DateOfBirth,
		&i.Domicile,
		&i.Gender,
		&i.Linkedin,
		&i.PhotoUrl,
		&i.CreatedAt,
	)
	return i, err
}
