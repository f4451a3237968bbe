package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
)

// Camera types.
const (
	CameraFFmpeg      = "ffmpeg"
	CameraTestPattern = "test_pattern"
)

// Classifier types.
const (
	ClassifierSimulated = "simulated"
	ClassifierGemini    = "gemini"
	ClassifierRemote    = "remote"
)

// CameraConfig selects the media device.
type CameraConfig struct {
	Type       string `yaml:"type"`        // "ffmpeg" or "test_pattern"
	Device     string `yaml:"device"`      // e.g. /dev/video0, "video=Integrated Camera" or "0"
	FFmpegPath string `yaml:"ffmpeg_path"` // defaults to "ffmpeg" on PATH
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FacingMode string `yaml:"facing_mode"`
	FPS        int    `yaml:"fps"`
}

// ClassifierConfig selects the pose classifier.
type ClassifierConfig struct {
	Type               string   `yaml:"type"`
	SuccessProbability *float64 `yaml:"success_probability"` // simulated only; 0 rejects every pose
	Model              string   `yaml:"model"`               // gemini only
	Host               string   `yaml:"host"`                // remote only, host:port
	MinConfidence      float64  `yaml:"min_confidence"`      // remote only
	TimeoutMs          int      `yaml:"timeout_ms"`
}

// ChallengeConfig is one pose of the sequence.
type ChallengeConfig struct {
	Label       string `yaml:"label"`
	Glyph       string `yaml:"glyph"`
	Description string `yaml:"description"`
	Gesture     string `yaml:"gesture"`
}

// Config is the capture behaviour of the portal.
type Config struct {
	TimeUnitMs    int               `yaml:"time_unit_ms"` // base unit for every delay
	CountdownFrom int               `yaml:"countdown_from"`
	JPEGQuality   int               `yaml:"jpeg_quality"` // 1-100
	Camera        CameraConfig      `yaml:"camera"`
	Classifier    ClassifierConfig  `yaml:"classifier"`
	Poses         []ChallengeConfig `yaml:"challenges"`
	// SessionIdleTimeoutMs closes sessions nobody watches or touches for
	// this long, releasing the camera. Defaults to five minutes.
	SessionIdleTimeoutMs int `yaml:"session_idle_timeout_ms"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.validate(); err != nil {
		panic(err) // the zero config only takes defaults
	}
	return cfg
}

// Load reads a YAML file and returns the validated configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and fills defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TimeUnitMs < 0 {
		return fmt.Errorf("time_unit_ms must be >= 0, got %d", c.TimeUnitMs)
	}
	if c.TimeUnitMs == 0 {
		c.TimeUnitMs = 1000
	}
	if c.CountdownFrom < 0 {
		return fmt.Errorf("countdown_from must be >= 0, got %d", c.CountdownFrom)
	}
	if c.CountdownFrom == 0 {
		c.CountdownFrom = capture.DefaultCountdownFrom
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = capture.DefaultJPEGQuality
	}
	if c.SessionIdleTimeoutMs < 0 {
		return fmt.Errorf("session_idle_timeout_ms must be >= 0, got %d", c.SessionIdleTimeoutMs)
	}
	if c.SessionIdleTimeoutMs == 0 {
		c.SessionIdleTimeoutMs = 5 * 60 * 1000
	}

	cam := &c.Camera
	if cam.Type == "" {
		cam.Type = CameraTestPattern
	}
	if cam.Type != CameraFFmpeg && cam.Type != CameraTestPattern {
		return fmt.Errorf("camera.type must be %q or %q, got %q", CameraFFmpeg, CameraTestPattern, cam.Type)
	}
	if cam.Width < 0 || cam.Height < 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", cam.Width, cam.Height)
	}
	def := capture.DefaultConstraints()
	if cam.Width == 0 {
		cam.Width = def.Width
	}
	if cam.Height == 0 {
		cam.Height = def.Height
	}
	if cam.FacingMode == "" {
		cam.FacingMode = def.FacingMode
	}
	if cam.FPS <= 0 {
		cam.FPS = 15
	}

	cls := &c.Classifier
	if cls.Type == "" {
		cls.Type = ClassifierSimulated
	}
	if cls.TimeoutMs <= 0 {
		cls.TimeoutMs = 5000
	}
	if cls.SuccessProbability == nil {
		p := capture.DefaultSuccessProbability
		cls.SuccessProbability = &p
	}
	switch cls.Type {
	case ClassifierSimulated:
		if p := *cls.SuccessProbability; p < 0 || p > 1 {
			return fmt.Errorf("classifier.success_probability must be between 0 and 1, got %.2f", p)
		}
	case ClassifierGemini:
		if cls.Model == "" {
			cls.Model = "gemini-2.5-flash"
		}
	case ClassifierRemote:
		if cls.Host == "" {
			return fmt.Errorf("classifier.host is required for the remote classifier")
		}
		if cls.MinConfidence < 0 || cls.MinConfidence > 1 {
			return fmt.Errorf("classifier.min_confidence must be between 0 and 1, got %.2f", cls.MinConfidence)
		}
		if cls.MinConfidence == 0 {
			cls.MinConfidence = 0.5
		}
	default:
		return fmt.Errorf("unknown classifier.type %q", cls.Type)
	}

	for i, ch := range c.Poses {
		if ch.Label == "" {
			return fmt.Errorf("challenges[%d].label is required", i)
		}
	}
	return nil
}

// TimeUnit returns the base delay unit.
func (c *Config) TimeUnit() time.Duration {
	return time.Duration(c.TimeUnitMs) * time.Millisecond
}

// Timings derives every session delay from the time unit.
func (c *Config) Timings() capture.Timings {
	return capture.DefaultTimings(c.TimeUnit())
}

// SessionIdleTimeout is how long an unwatched, untouched session lives.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutMs) * time.Millisecond
}

// ClassifierTimeout bounds one classifier call.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutMs) * time.Millisecond
}

// Constraints returns the stream request for the camera.
func (c *Config) Constraints() capture.Constraints {
	return capture.Constraints{
		Width:      c.Camera.Width,
		Height:     c.Camera.Height,
		FacingMode: c.Camera.FacingMode,
	}
}

// Challenges returns the configured pose sequence, or the default three
// poses when none is configured.
func (c *Config) Challenges() []capture.Challenge {
	if len(c.Poses) == 0 {
		return capture.DefaultChallenges()
	}
	out := make([]capture.Challenge, len(c.Poses))
	for i, ch := range c.Poses {
		out[i] = capture.Challenge{
			Index:       i,
			Label:       ch.Label,
			Glyph:       ch.Glyph,
			Description: ch.Description,
			Gesture:     ch.Gesture,
		}
	}
	return out
}
