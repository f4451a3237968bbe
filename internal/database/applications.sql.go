package database

import (
	"context"

	"github.com/google/uuid"
)

const createApplication = `-- name: CreateApplication :one
INSERT INTO applications (
job_id, candidate_id, resume_key, resume_mime)
VALUES ( $1, $2, $3, $4)
RETURNING id, job_id, candidate_id, resume_key, resume_mime, status, created_at, updated_at
`

type CreateApplicationParams struct {
	JobID       uuid.UUID
	CandidateID uuid.UUID
	ResumeKey   string
	ResumeMime  string
}

func (q *Queries) CreateApplication(ctx context.Context, arg CreateApplicationParams) (Application, error) {
	row := q.db.QueryRowContext(ctx, createApplication,
		arg.JobID,
		arg.CandidateID,
		arg.ResumeKey,
		arg.ResumeMime,
	)
	var i Application
	err := row.Scan(
		&i.ID,
		&i.JobID,
		&i.CandidateID,
		&i.ResumeKey,
		&i.ResumeMime,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getApplicationForScreening = `-- name: GetApplicationForScreening :one
SELECT a.id, a.resume_key, a.resume_mime, c.email, j.job_name, j.job_description
FROM applications a
JOIN candidates c ON c.id = a.candidate_id
JOIN jobs j ON j.id = a.job_id
WHERE a.id=$1
`

type GetApplicationForScreeningRow struct {
	ID             uuid.UUID
	ResumeKey      string
	ResumeMime     string
	Email          string
	JobName        string
	JobDescription string
}

func (q *Queries) GetApplicationForScreening(ctx context.Context, id uuid.UUID) (GetApplicationForScreeningRow, error) {
	row := q.db.QueryRowContext(ctx, getApplicationForScreening, id)
	var i GetApplicationForScreeningRow
	err := row.Scan(
		&i.ID,
		&i.ResumeKey,
		&i.ResumeMime,
		&i.Email,
		&i.JobName,
		&i.JobDescription,
	)
	return i, err
}

const updateApplicationStatus = `-- name: UpdateApplicationStatus :exec
UPDATE applications
SET status=$1, updated_at=CURRENT_TIMESTAMP
WHERE id=$2
`

type UpdateApplicationStatusParams struct {
	Status string
	ID     uuid.UUID
}

func (q *Queries) UpdateApplicationStatus(ctx context.Context, arg UpdateApplicationStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateApplicationStatus, arg.Status, arg.ID)
	return err
}
