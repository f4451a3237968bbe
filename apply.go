package main

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/muhammadolammi/jobmatchcapture/internal/database"
)

const maxResumeBytes = 10 << 20

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	linkedinRegex = regexp.MustCompile(`^linkedin\.com/in/[A-Za-z0-9_-]+/?$`)
)

type applicationForm struct {
	FullName    string `form:"full_name"`
	DateOfBirth string `form:"date_of_birth"`
	Gender      string `form:"gender"`
	Domicile    string `form:"domicile"`
	PhoneNumber string `form:"phone_number"`
	Email       string `form:"email"`
	LinkedinURL string `form:"linkedin_url"`
	PhotoURL    string `form:"photo_url"`
}

// validate checks the form the way the apply page does and returns the
// parsed date of birth.
func (f applicationForm) validate() (time.Time, error) {
	required := []struct{ name, value string }{
		{"full name", f.FullName},
		{"date of birth", f.DateOfBirth},
		{"domicile", f.Domicile},
		{"phone number", f.PhoneNumber},
		{"email", f.Email},
		{"linkedin url", f.LinkedinURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return time.Time{}, fmt.Errorf("Please fill in %s", r.name)
		}
	}
	if !emailRegex.MatchString(f.Email) {
		return time.Time{}, errors.New("Please enter a valid email address")
	}
	if !linkedinRegex.MatchString(f.LinkedinURL) {
		return time.Time{}, errors.New("Please enter a valid LinkedIn URL")
	}
	dob, err := time.Parse(time.DateOnly, f.DateOfBirth)
	if err != nil {
		return time.Time{}, errors.New("Please enter a valid date of birth")
	}
	return dob, nil
}

// normalizeGender maps the pronoun choice ("She/Her (Female)") to the
// stored value.
func normalizeGender(s string) string {
	if strings.Contains(s, "Female") {
		return "Female"
	}
	return "Male"
}

func (cfg *apiConfig) handlerApply(c *fiber.Ctx) error {
	ctx := c.UserContext()
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, "invalid job id")
	}

	var form applicationForm
	if err := c.BodyParser(&form); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, "invalid form body")
	}
	dob, err := form.validate()
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	fh, err := c.FormFile("resume")
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, "Please attach your resume")
	}
	mime, err := resumeMime(fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, err.Error())
	}
	file, err := fh.Open()
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, "could not read resume")
	}
	defer file.Close()
	resume, err := readAllLimited(file, maxResumeBytes)
	if err != nil {
		return respondWithError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	}

	job, err := cfg.Store.GetJob(ctx, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return respondWithError(c, fiber.StatusNotFound, "job not found")
	}
	if err != nil {
		cfg.Logger.Error("error getting job", "job_id", jobID, "error", err)
		return respondWithError(c, fiber.StatusInternalServerError, "could not load job")
	}
	if job.Status != "Active" {
		return respondWithError(c, fiber.StatusConflict, "job is not accepting applications")
	}

	resumeKey := fmt.Sprintf("resumes/%s/%s%s", jobID, uuid.NewString(), extensionFor(mime))
	_, err = retry(3, func() (any, error) {
		return nil, cfg.Objects.Put(ctx, resumeKey, mime, resume)
	})
	if err != nil {
		cfg.Logger.Error("⚠️ failed to upload resume", "key", resumeKey, "error", err)
		return respondWithError(c, fiber.StatusBadGateway, "Failed to submit resume. Please try again.")
	}

	candidate, app, err := cfg.Store.SubmitApplication(ctx,
		database.CreateCandidateParams{
			FullName:    strings.TrimSpace(form.FullName),
			Email:       strings.TrimSpace(form.Email),
			Phone:       strings.TrimSpace(form.PhoneNumber),
			DateOfBirth: dob,
			Domicile:    strings.TrimSpace(form.Domicile),
			Gender:      normalizeGender(form.Gender),
			Linkedin:    strings.TrimSpace(form.LinkedinURL),
			PhotoUrl:    sql.NullString{String: form.PhotoURL, Valid: form.PhotoURL != ""},
		},
		database.CreateApplicationParams{
			JobID:      jobID,
			ResumeKey:  resumeKey,
			ResumeMime: mime,
		})
	if err != nil {
		cfg.Logger.Error("error saving application", "job_id", jobID, "error", err)
		return respondWithError(c, fiber.StatusInternalServerError, "Failed to submit resume. Please try again.")
	}

	msg := ApplicationMessage{ApplicationID: app.ID, JobID: jobID, CandidateID: candidate.ID}
	if err := cfg.Publisher.Enqueue(ctx, msg); err != nil {
		// The application is saved; it can be re-queued from the pending rows.
		cfg.Logger.Error("failed to queue application for screening", "application_id", app.ID, "error", err)
	}
	cfg.Logger.Info("✅ application saved", "application_id", app.ID, "job_id", jobID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"application_id": app.ID,
		"candidate_id":   candidate.ID,
		"status":         statusPending,
	})
}
