package main

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
)

type apiConfig struct {
	Registry  *capture.Registry
	Store     applicationStore
	Objects   objectStore
	Publisher publisher
	Logger    *slog.Logger
}

func newApp(cfg *apiConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "jobmatch-capture",
		DisableStartupMessage: true,
		BodyLimit:             maxResumeBytes + 1<<20,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": cfg.Registry.Len()})
	})

	api := app.Group("/api")
	api.Post("/capture/sessions", cfg.handlerCreateCaptureSession)
	api.Get("/capture/sessions/:id", cfg.handlerGetCaptureSession)
	api.Post("/capture/sessions/:id/detect", cfg.handlerStartDetection)
	api.Post("/capture/sessions/:id/retry", cfg.handlerRetryCamera)
	api.Post("/capture/sessions/:id/retake", cfg.handlerRetake)
	api.Post("/capture/sessions/:id/submit", cfg.handlerSubmitPhoto)
	api.Delete("/capture/sessions/:id", cfg.handlerCloseCaptureSession)
	api.Get("/capture/sessions/:id/frame", cfg.handlerGetFrame)
	api.Post("/jobs/:jobId/applications", cfg.handlerApply)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/capture/:id", websocket.New(cfg.handlerCaptureWS))

	return app
}

func respondWithError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func (cfg *apiConfig) lookupSession(c *fiber.Ctx) (*capture.Session, error) {
	s, ok := cfg.Registry.Get(c.Params("id"))
	if !ok {
		return nil, respondWithError(c, fiber.StatusNotFound, "capture session not found")
	}
	return s, nil
}

// respondWithCaptureError maps session errors to HTTP statuses. Device
// failures carry the snapshot so the client can render the retry control.
func respondWithCaptureError(c *fiber.Ctx, s *capture.Session, err error) error {
	switch {
	case errors.Is(err, capture.ErrInvalidState):
		return respondWithError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(s.Snapshot())
	case errors.Is(err, capture.ErrNoSink):
		return respondWithError(c, fiber.StatusInternalServerError, err.Error())
	default:
		return respondWithError(c, fiber.StatusBadGateway, err.Error())
	}
}

func (cfg *apiConfig) handlerCreateCaptureSession(c *fiber.Ctx) error {
	s, err := cfg.Registry.Open(c.UserContext())
	if s == nil {
		cfg.Logger.Error("error creating capture session", "error", err)
		return respondWithError(c, fiber.StatusInternalServerError, "could not create capture session")
	}
	if err != nil {
		return respondWithCaptureError(c, s, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.Snapshot())
}

func (cfg *apiConfig) handlerGetCaptureSession(c *fiber.Ctx) error {
	s, err := cfg.lookupSession(c)
	if s == nil {
		return err
	}
	return c.JSON(s.Snapshot())
}

func (cfg *apiConfig) handlerStartDetection(c *fiber.Ctx) error {
	s, err := cfg.lookupSession(c)
	if s == nil {
		return err
	}
	if err := s.StartDetection(); err != nil {
		return respondWithCaptureError(c, s, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(s.Snapshot())
}

func (cfg *apiConfig) handlerRetryCamera(c *fiber.Ctx) error {
	s, err := cfg.lookupSession(c)
	if s == nil {
		return err
	}
	if err := s.Retry(c.UserContext()); err != nil {
		return respondWithCaptureError(c, s, err)
	}
	return c.JSON(s.Snapshot())
}

func (cfg *apiConfig) handlerRetake(c *fiber.Ctx) error {
	s, err := cfg.lookupSession(c)
	if s == nil {
		return err
	}
	if err := s.Retake(c.UserContext()); err != nil {
		return respondWithCaptureError(c, s, err)
	}
	return c.JSON(s.Snapshot())
}

func (cfg *apiConfig) handlerSubmitPhoto(c *fiber.Ctx) error {
	s, err := cfg.lookupSession(c)
	if s == nil {
		return err
	}
	photoURL, err := s.Submit(c.UserContext())
	if err != nil {
		cfg.Logger.Warn("photo submit failed", "session_id", s.ID(), "error", err)
		return respondWithCaptureError(c, s, err)
	}
	cfg.Registry.Close(s.ID())
	return c.JSON(fiber.Map{"photo_url": photoURL})
}

func (cfg *apiConfig) handlerCloseCaptureSession(c *fiber.Ctx) error {
	if !cfg.Registry.Close(c.Params("id")) {
		return respondWithError(c, fiber.StatusNotFound, "capture session not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (cfg *apiConfig) handlerGetFrame(c *fiber.Ctx) error {
	s, err := cfg.lookupSession(c)
	if s == nil {
		return err
	}
	frame, ok := s.Frame()
	if !ok {
		return respondWithError(c, fiber.StatusNotFound, "no photo captured")
	}
	c.Set(fiber.HeaderContentType, frame.MimeType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(frame.Data)
}

// handlerCaptureWS streams snapshots of one session until either side
// closes. A session whose last viewer leaves before the still is taken is
// closed so its camera is released.
func (cfg *apiConfig) handlerCaptureWS(conn *websocket.Conn) {
	s, ok := cfg.Registry.Get(conn.Params("id"))
	if !ok {
		conn.WriteJSON(fiber.Map{"error": "capture session not found"})
		return
	}
	updates, unsub := s.Subscribe()
	defer func() {
		unsub()
		if cfg.Registry.Release(s.ID()) {
			cfg.Logger.Info("viewer left, capture session closed", "session_id", s.ID())
		}
	}()

	first := s.Snapshot()
	if err := conn.WriteJSON(first); err != nil {
		return
	}
	if first.State == capture.StateClosed {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			if snap.State == capture.StateClosed {
				return
			}
		case <-done:
			return
		}
	}
}
