package main

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type R2Config struct {
	AccountID     string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type WorkerConfig struct {
	Store       applicationStore
	Objects     objectStore
	Publisher   publisher
	Analyzer    resumeAnalyzer
	RABBITMQUrl string
	Logger      *slog.Logger
}

// ApplicationMessage is the body queued on the applications queue.
type ApplicationMessage struct {
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
	CandidateID   uuid.UUID `json:"candidate_id"`
}

type AnalysesResult struct {
	CandidateEmail      string   `json:"candidate_email"`
	MatchScore          int      `json:"match_score"`
	RelevantExperiences []string `json:"relevant_experiences"`
	RelevantSkills      []string `json:"relevant_skills"`
	MissingSkills       []string `json:"missing_skills"`
	Summary             string   `json:"summary"`
	Recomendation       string   `json:"recommendation"`
	// Error result entry
	IsErrorResult bool   `json:"is_error_result"`
	Error         string `json:"error,omitempty"`
}

// StatusUpdate is published on the updates exchange whenever an
// application changes status.
type StatusUpdate struct {
	ApplicationID uuid.UUID `json:"application_id"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// CaptureEvent is published when a capture session hands off its photo.
type CaptureEvent struct {
	SessionID string    `json:"session_id"`
	Event     string    `json:"event"`
	PhotoURL  string    `json:"photo_url"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)
