package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
	"github.com/muhammadolammi/jobmatchcapture/internal/database"
	"github.com/muhammadolammi/jobmatchcapture/internal/media"
)

type applyFixture struct {
	cfg     *apiConfig
	store   *fakeStore
	objects *fakeObjects
	pub     *fakePublisher
	jobID   uuid.UUID
}

func newApplyFixture(t *testing.T) *applyFixture {
	t.Helper()
	registry, err := capture.NewRegistry(capture.Options{
		Challenges: capture.DefaultChallenges(),
		Device:     &media.TestPattern{},
	})
	if err != nil {
		t.Fatal(err)
	}
	f := &applyFixture{
		store:   newFakeStore(),
		objects: newFakeObjects(),
		pub:     &fakePublisher{},
		jobID:   uuid.New(),
	}
	f.store.jobs[f.jobID] = database.Job{ID: f.jobID, JobName: "Frontend Engineer", Status: "Active"}
	f.cfg = &apiConfig{
		Registry:  registry,
		Store:     f.store,
		Objects:   f.objects,
		Publisher: f.pub,
		Logger:    discardLogger(),
	}
	return f
}

func validFields() map[string]string {
	return map[string]string{
		"full_name":     "Ana Putri",
		"date_of_birth": "1998-04-12",
		"gender":        "She/Her (Female)",
		"domicile":      "Jakarta",
		"phone_number":  "+6281234567",
		"email":         "ana@example.com",
		"linkedin_url":  "linkedin.com/in/ana-putri",
		"photo_url":     "https://cdn.test/profile-photos/profile_1.jpg",
	}
}

func applyRequest(t *testing.T, jobID string, fields map[string]string, filename, contentType string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="resume"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(file)
	}
	w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/"+jobID+"/applications", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func doRequest(t *testing.T, cfg *apiConfig, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := newApp(cfg).Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func TestApply_Success(t *testing.T) {
	f := newApplyFixture(t)
	req := applyRequest(t, f.jobID.String(), validFields(), "cv.txt", "text/plain", []byte("Five years of React."))

	status, body := doRequest(t, f.cfg, req)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["status"] != statusPending || body["application_id"] == "" {
		t.Errorf("body = %v", body)
	}

	if len(f.store.candidates) != 1 {
		t.Fatalf("candidates = %d", len(f.store.candidates))
	}
	c := f.store.candidates[0]
	if c.Gender != "Female" || c.FullName != "Ana Putri" || !c.PhotoUrl.Valid || c.DateOfBirth.Year() != 1998 {
		t.Errorf("candidate = %+v", c)
	}
	app := f.store.applications[0]
	if app.JobID != f.jobID || app.ResumeMime != mimeText || !strings.HasPrefix(app.ResumeKey, "resumes/"+f.jobID.String()+"/") {
		t.Errorf("application = %+v", app)
	}
	if keys := f.objects.keys(); len(keys) != 1 || keys[0] != app.ResumeKey {
		t.Errorf("stored keys = %v", keys)
	}
	if string(f.objects.data[app.ResumeKey]) != "Five years of React." {
		t.Error("resume not stored under the application key")
	}
	if len(f.pub.enqueued) != 1 || f.pub.enqueued[0].JobID != f.jobID {
		t.Errorf("enqueued = %+v", f.pub.enqueued)
	}
}

func TestApply_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		want   string
	}{
		{"missing domicile", func(m map[string]string) { m["domicile"] = "  " }, "Please fill in domicile"},
		{"missing name", func(m map[string]string) { delete(m, "full_name") }, "Please fill in full name"},
		{"bad email", func(m map[string]string) { m["email"] = "ana@example" }, "Please enter a valid email address"},
		{"bad linkedin", func(m map[string]string) { m["linkedin_url"] = "https://linkedin.com/in/ana" }, "Please enter a valid LinkedIn URL"},
		{"bad date", func(m map[string]string) { m["date_of_birth"] = "12/04/1998" }, "Please enter a valid date of birth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newApplyFixture(t)
			fields := validFields()
			tt.mutate(fields)
			status, body := doRequest(t, f.cfg, applyRequest(t, f.jobID.String(), fields, "cv.txt", "text/plain", []byte("cv")))
			if status != http.StatusBadRequest || body["error"] != tt.want {
				t.Errorf("status = %d, body = %v, want 400 %q", status, body, tt.want)
			}
			if len(f.store.candidates) != 0 {
				t.Error("nothing should be saved on validation failure")
			}
		})
	}
}

func TestApply_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *applyFixture) *http.Request
		wantStatus int
	}{
		{"invalid job id", func(f *applyFixture) *http.Request {
			return applyRequest(t, "not-a-uuid", validFields(), "cv.txt", "text/plain", []byte("cv"))
		}, http.StatusBadRequest},
		{"missing resume", func(f *applyFixture) *http.Request {
			return applyRequest(t, f.jobID.String(), validFields(), "", "", nil)
		}, http.StatusBadRequest},
		{"unsupported resume", func(f *applyFixture) *http.Request {
			return applyRequest(t, f.jobID.String(), validFields(), "cv.png", "image/png", []byte{1})
		}, http.StatusBadRequest},
		{"unknown job", func(f *applyFixture) *http.Request {
			return applyRequest(t, uuid.NewString(), validFields(), "cv.txt", "text/plain", []byte("cv"))
		}, http.StatusNotFound},
		{"inactive job", func(f *applyFixture) *http.Request {
			f.store.jobs[f.jobID] = database.Job{ID: f.jobID, Status: "Inactive"}
			return applyRequest(t, f.jobID.String(), validFields(), "cv.txt", "text/plain", []byte("cv"))
		}, http.StatusConflict},
		{"upload failure", func(f *applyFixture) *http.Request {
			f.objects.putErr = errors.New("bucket down")
			return applyRequest(t, f.jobID.String(), validFields(), "cv.txt", "text/plain", []byte("cv"))
		}, http.StatusBadGateway},
		{"store failure", func(f *applyFixture) *http.Request {
			f.store.submitErr = errors.New("db down")
			return applyRequest(t, f.jobID.String(), validFields(), "cv.txt", "text/plain", []byte("cv"))
		}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newApplyFixture(t)
			status, body := doRequest(t, f.cfg, tt.setup(f))
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %v)", status, tt.wantStatus, body)
			}
			if len(f.pub.enqueued) != 0 {
				t.Error("rejected applications must not be queued")
			}
		})
	}
}

func TestApply_QueueFailureStillSaves(t *testing.T) {
	f := newApplyFixture(t)
	f.pub.enqueueErr = errors.New("broker down")
	status, _ := doRequest(t, f.cfg, applyRequest(t, f.jobID.String(), validFields(), "cv.txt", "text/plain", []byte("cv")))
	if status != http.StatusCreated {
		t.Errorf("status = %d, want 201", status)
	}
	if len(f.store.applications) != 1 {
		t.Error("application should be saved")
	}
}

func TestNormalizeGender(t *testing.T) {
	if normalizeGender("She/Her (Female)") != "Female" || normalizeGender("He/Him (Male)") != "Male" || normalizeGender("") != "Male" {
		t.Error("unexpected gender mapping")
	}
}
