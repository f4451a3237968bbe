package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/muhammadolammi/jobmatchcapture/internal/database"
)

// applicationStore is the persistence the HTTP handlers, the photo uploader
// and the screening workers need.
type applicationStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (database.Job, error)
	SubmitApplication(ctx context.Context, candidate database.CreateCandidateParams, app database.CreateApplicationParams) (database.Candidate, database.Application, error)
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) error
	GetApplicationForScreening(ctx context.Context, id uuid.UUID) (database.GetApplicationForScreeningRow, error)
	SaveAnalysesResults(ctx context.Context, applicationID uuid.UUID, results json.RawMessage) error
	CreateProfilePhoto(ctx context.Context, arg database.CreateProfilePhotoParams) (database.ProfilePhoto, error)
}

type sqlStore struct {
	db *sql.DB
	q  *database.Queries
}

func newSQLStore(db *sql.DB) *sqlStore {
	return &sqlStore{db: db, q: database.New(db)}
}

func (s *sqlStore) GetJob(ctx context.Context, id uuid.UUID) (database.Job, error) {
	return s.q.GetJob(ctx, id)
}

// SubmitApplication inserts the candidate and the application in one
// transaction. app.CandidateID is filled from the new candidate.
func (s *sqlStore) SubmitApplication(ctx context.Context, candidate database.CreateCandidateParams, app database.CreateApplicationParams) (database.Candidate, database.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return database.Candidate{}, database.Application{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := s.q.WithTx(tx)
	c, err := q.CreateCandidate(ctx, candidate)
	if err != nil {
		return database.Candidate{}, database.Application{}, fmt.Errorf("create candidate: %w", err)
	}
	app.CandidateID = c.ID
	a, err := q.CreateApplication(ctx, app)
	if err != nil {
		return database.Candidate{}, database.Application{}, fmt.Errorf("create application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return database.Candidate{}, database.Application{}, fmt.Errorf("commit: %w", err)
	}
	return c, a, nil
}

func (s *sqlStore) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) error {
	return s.q.UpdateApplicationStatus(ctx, database.UpdateApplicationStatusParams{
		Status: status,
		ID:     id,
	})
}

func (s *sqlStore) GetApplicationForScreening(ctx context.Context, id uuid.UUID) (database.GetApplicationForScreeningRow, error) {
	return s.q.GetApplicationForScreening(ctx, id)
}

func (s *sqlStore) SaveAnalysesResults(ctx context.Context, applicationID uuid.UUID, results json.RawMessage) error {
	return s.q.CreateOrUpdateAnalysesResults(ctx, database.CreateOrUpdateAnalysesResultsParams{
		Results:       results,
		ApplicationID: applicationID,
	})
}

func (s *sqlStore) CreateProfilePhoto(ctx context.Context, arg database.CreateProfilePhotoParams) (database.ProfilePhoto, error) {
	return s.q.CreateProfilePhoto(ctx, arg)
}
