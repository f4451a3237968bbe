package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// resumeAnalyzer scores a resume against a job. input carries the job and
// the resume text; the result is the agent's raw JSON answer.
type resumeAnalyzer interface {
	Analyze(ctx context.Context, applicationID, input string) (string, error)
}

// screenApplication downloads the resume, runs the screening agent and
// stores the result. Download, extraction and agent failures are stored as
// an error result; only lookup and persistence failures are returned.
func (workerConfig *WorkerConfig) screenApplication(ctx context.Context, id uuid.UUID) error {
	app, err := workerConfig.Store.GetApplicationForScreening(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting application %s: %w", id, err)
	}

	result := workerConfig.analyzeResume(ctx, app.ID, app.ResumeKey, app.ResumeMime, app.JobName, app.JobDescription)
	if result.CandidateEmail == "" {
		result.CandidateEmail = app.Email
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analyses result: %w", err)
	}
	_, err = retry(3, func() (any, error) {
		return nil, workerConfig.Store.SaveAnalysesResults(ctx, id, resultJSON)
	})
	if err != nil {
		return fmt.Errorf("failed to save agent result after retries: %w", err)
	}
	return nil
}

func (workerConfig *WorkerConfig) analyzeResume(ctx context.Context, id uuid.UUID, key, mime, jobTitle, jobDescription string) AnalysesResult {
	logger := workerConfig.Logger.With("application_id", id)

	// Network failures are transient.
	fileBytes, err := retry(3, func() ([]byte, error) {
		return workerConfig.Objects.Get(ctx, key)
	})
	if err != nil {
		logger.Warn("⚠️ failed to download resume after retries", "key", key, "error", err)
		return parseAnalysis("", fmt.Errorf("file download error: %w", err))
	}

	resumeText, err := ExtractResumeText(mime, fileBytes)
	if err != nil {
		logger.Warn("⚠️ text extraction failed", "key", key, "error", err)
		return parseAnalysis("", fmt.Errorf("text extraction error: %w", err))
	}

	msg := fmt.Sprintf(
		"Job Title:\n%s\n\nJob Description:\n%s\n\nResume:\n%s",
		jobTitle,
		jobDescription,
		resumeText,
	)
	output, err := workerConfig.Analyzer.Analyze(ctx, id.String(), msg)
	if err != nil {
		logger.Warn("⚠️ agent failed after retries", "error", err)
		return parseAnalysis("", fmt.Errorf("agent stream error: %w", err))
	}
	return parseAnalysis(output, nil)
}

// setStatus records the status and announces it. Both steps are best effort.
func (workerConfig *WorkerConfig) setStatus(ctx context.Context, id uuid.UUID, status, message string) {
	if err := workerConfig.Store.UpdateApplicationStatus(ctx, id, status); err != nil {
		workerConfig.Logger.Error("error updating application status", "application_id", id, "status", status, "error", err)
	}
	update := StatusUpdate{
		ApplicationID: id,
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
	}
	if err := workerConfig.Publisher.PublishUpdate(ctx, applicationRoutingKey(id), update); err != nil {
		workerConfig.Logger.Warn("failed to publish update", "application_id", id, "error", err)
	}
}

// handleDelivery processes one queued application.
func (workerConfig *WorkerConfig) handleDelivery(ctx context.Context, workerID int, body []byte) {
	var msg ApplicationMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.ApplicationID == uuid.Nil {
		workerConfig.Logger.Error("error unmarshalling message body", "body", string(body), "error", err)
		return
	}
	id := msg.ApplicationID
	workerConfig.Logger.Info("processing application", "worker", workerID, "application_id", id)

	workerConfig.setStatus(ctx, id, statusProcessing, "screening started")
	if err := workerConfig.screenApplication(ctx, id); err != nil {
		workerConfig.Logger.Error("error screening application", "application_id", id, "error", err)
		workerConfig.setStatus(ctx, id, statusFailed, "screening failed")
		return
	}
	workerConfig.setStatus(ctx, id, statusCompleted, "screening completed")
}

func (workerConfig *WorkerConfig) worker(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()
	conn, err := amqp.Dial(workerConfig.RABBITMQUrl)
	if err != nil {
		workerConfig.Logger.Error("error dialling rabbitmq", "worker", id, "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		workerConfig.Logger.Error("error connecting to rabbitmq channel", "worker", id, "error", err)
		return
	}
	defer ch.Close()
	if err := declareTopology(ch); err != nil {
		workerConfig.Logger.Error("error declaring topology", "worker", id, "error", err)
		return
	}
	if err := ch.Qos(1, 0, false); err != nil {
		workerConfig.Logger.Error("error setting prefetch", "worker", id, "error", err)
		return
	}

	msgs, err := ch.Consume(
		applicationsQueue, // queue name
		"",                // consumer tag
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		workerConfig.Logger.Error("error consuming rabbitmq messages", "worker", id, "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				workerConfig.Logger.Warn("delivery channel closed", "worker", id)
				return
			}
			workerConfig.handleDelivery(ctx, id, msg.Body)
			if err := msg.Ack(false); err != nil {
				workerConfig.Logger.Warn("failed to ack message", "worker", id, "error", err)
			}
		}
	}
}

// StartConsumerWorkerPool runs numWorkers consumers and blocks until ctx
// is done and every worker has returned.
func (workerConfig *WorkerConfig) StartConsumerWorkerPool(ctx context.Context, numWorkers int) {
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := range numWorkers {
		workerConfig.Logger.Info("worker started", "worker", i+1)
		go workerConfig.worker(ctx, i+1, &wg)
	}
	wg.Wait()
}
