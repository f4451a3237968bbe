package capture

import (
	"context"
	"image"
	"time"
)

// MimeJPEG is the content type of every captured frame.
const MimeJPEG = "image/jpeg"

// Constraints describe the stream a session asks the device for.
type Constraints struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FacingMode string `json:"facing_mode"`
}

// DefaultConstraints matches the ideal front camera request of the apply form.
func DefaultConstraints() Constraints {
	return Constraints{Width: 1280, Height: 720, FacingMode: "user"}
}

// MediaDevice is the boundary to the host camera.
type MediaDevice interface {
	// Acquire starts a stream. A returned error means the camera is
	// unavailable or access was denied.
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an acquired camera stream. Close releases it; Frame must return
// an error (not block) once the stream has been closed.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Frame is the encoded still produced by a session.
type Frame struct {
	SessionID  string
	Data       []byte
	MimeType   string
	Width      int
	Height     int
	CapturedAt time.Time
}

// Sink receives the still on submit and returns a durable locator for it.
type Sink interface {
	Accept(ctx context.Context, f Frame) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f Frame) (string, error)

func (fn SinkFunc) Accept(ctx context.Context, f Frame) (string, error) {
	return fn(ctx, f)
}
