package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
	"github.com/muhammadolammi/jobmatchcapture/internal/classifier"
	"github.com/muhammadolammi/jobmatchcapture/internal/config"
	"github.com/muhammadolammi/jobmatchcapture/internal/media"
)

func newMediaDevice(cfg *config.Config, logger *slog.Logger) capture.MediaDevice {
	if cfg.Camera.Type == config.CameraFFmpeg {
		return &media.Webcam{
			Device:            cfg.Camera.Device,
			FFmpegPath:        cfg.Camera.FFmpegPath,
			FPS:               cfg.Camera.FPS,
			FirstFrameTimeout: 5 * time.Second,
			Logger:            logger,
		}
	}
	return &media.TestPattern{}
}

func newPoseClassifier(ctx context.Context, cfg *config.Config, googleApiKey string) (capture.PoseClassifier, error) {
	var c capture.PoseClassifier
	switch cfg.Classifier.Type {
	case config.ClassifierSimulated:
		c = capture.NewSimulated(*cfg.Classifier.SuccessProbability, nil)
	case config.ClassifierGemini:
		if googleApiKey == "" {
			return nil, fmt.Errorf("the gemini classifier needs GOOGLE_API_KEY")
		}
		g, err := classifier.NewGemini(ctx, googleApiKey, cfg.Classifier.Model)
		if err != nil {
			return nil, err
		}
		c = g
	case config.ClassifierRemote:
		c = classifier.NewRemote(cfg.Classifier.Host, cfg.Classifier.MinConfidence)
	default:
		return nil, fmt.Errorf("unknown classifier type %q", cfg.Classifier.Type)
	}
	return classifier.WithTimeout(c, cfg.ClassifierTimeout()), nil
}

func captureOptions(cfg *config.Config, device capture.MediaDevice, poses capture.PoseClassifier, sink capture.Sink, logger *slog.Logger) capture.Options {
	return capture.Options{
		Challenges:    cfg.Challenges(),
		Device:        device,
		Classifier:    poses,
		Sink:          sink,
		Timings:       cfg.Timings(),
		Constraints:   cfg.Constraints(),
		CountdownFrom: cfg.CountdownFrom,
		JPEGQuality:   cfg.JPEGQuality,
		Logger:        logger,
		IdleTimeout:   cfg.SessionIdleTimeout(),
	}
}
