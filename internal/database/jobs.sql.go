package database

import (
	"context"

	"github.com/google/uuid"
)

const getJob = `-- name: GetJob :one
SELECT id, job_name, company_name, job_type, job_description, job_place, candidate_needed, salary_min, salary_max, status, created_at FROM jobs WHERE id=$1
`

func (q *Queries) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	row := q.db.QueryRowContext(ctx, getJob, id)
	var i Job
	err := row.Scan(
		&i.ID,
		&i.JobName,
		&i.CompanyName,
		&i.JobType,
		&i.JobDescription,
		&i.JobPlace,
		&i.CandidateNeeded,
		&i.SalaryMin,
		&i.SalaryMax,
		&i.Status,
		&i.CreatedAt,
	)
	return i, err
}
