package media

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
)

// TestPattern is a camera that produces moving gradient frames. It keeps
// count of acquired and released streams.
type TestPattern struct {
	// Fail, when set, is returned from every Acquire.
	Fail error

	mu       sync.Mutex
	acquired int
	released int
}

func (p *TestPattern) Acquire(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return nil, p.Fail
	}
	p.acquired++
	return &patternStream{owner: p, width: c.Width, height: c.Height}, nil
}

// Active returns the number of streams not yet closed.
func (p *TestPattern) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired - p.released
}

// Acquired returns the number of streams handed out so far.
func (p *TestPattern) Acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}

type patternStream struct {
	owner         *TestPattern
	width, height int

	mu     sync.Mutex
	tick   int
	closed bool
}

func (s *patternStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	s.tick++
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x + s.tick) * 255 / max(s.width, 1)),
				G: uint8(y * 255 / max(s.height, 1)),
				B: uint8(s.tick * 16),
				A: 255,
			})
		}
	}
	return img, nil
}

func (s *patternStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.owner.mu.Lock()
	s.owner.released++
	s.owner.mu.Unlock()
	return nil
}
