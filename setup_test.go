package main

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
	"github.com/muhammadolammi/jobmatchcapture/internal/config"
	"github.com/muhammadolammi/jobmatchcapture/internal/media"
)

func TestNewMediaDevice(t *testing.T) {
	cfg := config.Default()
	if _, ok := newMediaDevice(cfg, discardLogger()).(*media.TestPattern); !ok {
		t.Error("default camera should be the test pattern")
	}

	cfg.Camera.Type = config.CameraFFmpeg
	cfg.Camera.Device = "/dev/video2"
	cam, ok := newMediaDevice(cfg, discardLogger()).(*media.Webcam)
	if !ok {
		t.Fatal("ffmpeg camera should be a webcam")
	}
	if cam.Device != "/dev/video2" || cam.FPS != cfg.Camera.FPS {
		t.Errorf("webcam = %+v", cam)
	}
}

func TestNewPoseClassifier(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	always := 1.0
	cfg.Classifier.SuccessProbability = &always
	c, err := newPoseClassifier(ctx, cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := c.Evaluate(ctx, image.NewRGBA(image.Rect(0, 0, 1, 1)), capture.DefaultChallenges()[0])
	if err != nil || !ok {
		t.Errorf("simulated classifier = %v, %v", ok, err)
	}

	never := 0.0
	cfg.Classifier.SuccessProbability = &never
	c, err = newPoseClassifier(ctx, cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Evaluate(ctx, image.NewRGBA(image.Rect(0, 0, 1, 1)), capture.DefaultChallenges()[0]); ok {
		t.Error("a zero success probability should reject every pose")
	}

	cfg.Classifier.Type = config.ClassifierRemote
	cfg.Classifier.Host = "127.0.0.1:1"
	if c, err := newPoseClassifier(ctx, cfg, ""); err != nil || c == nil {
		t.Errorf("remote classifier: %v", err)
	}

	cfg.Classifier.Type = config.ClassifierGemini
	if _, err := newPoseClassifier(ctx, cfg, ""); err == nil {
		t.Error("gemini without an api key should fail")
	}

	cfg.Classifier.Type = "psychic"
	if _, err := newPoseClassifier(ctx, cfg, ""); err == nil {
		t.Error("unknown classifier type should fail")
	}
}

func TestCaptureOptions(t *testing.T) {
	cfg := config.Default()
	cfg.TimeUnitMs = 10
	device := &media.TestPattern{}
	opts := captureOptions(cfg, device, capture.NewSimulated(1, nil), nil, discardLogger())

	if opts.Timings != capture.DefaultTimings(10*time.Millisecond) {
		t.Errorf("timings = %+v", opts.Timings)
	}
	if opts.IdleTimeout != 5*time.Minute {
		t.Errorf("idle timeout = %v", opts.IdleTimeout)
	}
	if len(opts.Challenges) != 3 || opts.Device != device || opts.JPEGQuality != 90 || opts.CountdownFrom != 3 {
		t.Errorf("options = %+v", opts)
	}
	if _, err := capture.NewRegistry(opts); err != nil {
		t.Errorf("options should build a registry: %v", err)
	}
}
