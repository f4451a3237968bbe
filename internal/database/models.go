package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AnalysesResult struct {
	ID            uuid.UUID
	Results       json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ApplicationID uuid.UUID
}

type Application struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	CandidateID uuid.UUID
	ResumeKey   string
	ResumeMime  string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Candidate struct {
	ID          uuid.UUID
	FullName    string
	Email       string
	Phone       string
	DateOfBirth time.Time
	Domicile    string
	Gender      string
	Linkedin    string
	PhotoUrl    sql.NullString
	CreatedAt   time.Time
}

type Job struct {
	ID              uuid.UUID
	JobName         string
	CompanyName     string
	JobType         string
	JobDescription  string
	JobPlace        string
	CandidateNeeded int32
	SalaryMin       sql.NullInt64
	SalaryMax       sql.NullInt64
	Status          string
	CreatedAt       time.Time
}

type ProfilePhoto struct {
	ID        uuid.UUID
	SessionID string
	ObjectKey string
	PublicUrl string
	Mime      string
	SizeBytes int64
	Width     int32
	Height    int32
	CreatedAt time.Time
}
