package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
)

// ErrStreamClosed is returned by Frame after the stream was released.
var ErrStreamClosed = errors.New("media: stream closed")

// Webcam reads a local camera through an ffmpeg subprocess that writes raw
// RGBA frames to stdout.
type Webcam struct {
	Device            string // /dev/video0 on Linux, the dshow name on Windows, the avfoundation index on macOS
	FFmpegPath        string
	FPS               int
	FirstFrameTimeout time.Duration
	Logger            *slog.Logger
}

// Acquire starts ffmpeg and waits for the first frame, so that a missing or
// busy camera is reported here rather than on the first Frame call.
func (w *Webcam) Acquire(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	bin := w.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	fps := w.FPS
	if fps <= 0 {
		fps = 15
	}
	timeout := w.FirstFrameTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := append(inputArgs(runtime.GOOS, w.Device, fps), outputArgs(fps, c.Width, c.Height)...)
	// The process outlives ctx, so CommandContext would kill it too early.
	cmd := exec.Command(bin, args...)
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &webcamStream{
		cmd:    cmd,
		width:  c.Width,
		height: c.Height,
		ready:  make(chan struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.readLoop(stdout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.ready:
		if err := s.failure(); err != nil {
			s.Close()
			return nil, fmt.Errorf("open camera %q: %w: %s", w.Device, err, stderr.String())
		}
		logger.Debug("camera stream started", "device", w.Device, "width", c.Width, "height", c.Height, "fps", fps)
		return s, nil
	case <-timer.C:
		s.Close()
		return nil, fmt.Errorf("open camera %q: no frame within %s: %s", w.Device, timeout, stderr.String())
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
}

func inputArgs(goos, device string, fps int) []string {
	switch goos {
	case "windows":
		return []string{"-f", "dshow", "-i", "video=" + device}
	case "darwin":
		if device == "" {
			device = "0"
		}
		return []string{"-f", "avfoundation", "-framerate", fmt.Sprint(fps), "-i", device}
	default:
		if device == "" {
			device = "/dev/video0"
		}
		return []string{"-f", "v4l2", "-i", device}
	}
}

func outputArgs(fps, width, height int) []string {
	return []string{
		"-loglevel", "error",
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", fps, width, height),
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	}
}

type webcamStream struct {
	cmd           *exec.Cmd
	width, height int

	readyOnce sync.Once
	ready     chan struct{} // closed on the first frame or read error
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}

	mu     sync.Mutex
	latest *image.RGBA
	err    error
}

func (s *webcamStream) readLoop(stdout io.ReadCloser) {
	defer close(s.done)
	defer s.markReady()
	defer stdout.Close()

	buf := make([]byte, s.width*s.height*4)
	for {
		if _, err := io.ReadFull(stdout, buf); err != nil {
			select {
			case <-s.stop:
			default:
				s.mu.Lock()
				s.err = fmt.Errorf("read frame: %w", err)
				s.mu.Unlock()
			}
			return
		}
		img := &image.RGBA{
			Pix:    bytes.Clone(buf),
			Stride: s.width * 4,
			Rect:   image.Rect(0, 0, s.width, s.height),
		}
		s.mu.Lock()
		s.latest = img
		s.mu.Unlock()
		s.markReady()
	}
}

func (s *webcamStream) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *webcamStream) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil && s.err == nil {
		return io.ErrUnexpectedEOF
	}
	if s.latest == nil {
		return s.err
	}
	return nil
}

// Frame returns the most recent frame. Frames are never mutated after
// being handed out.
func (s *webcamStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-s.stop:
		return nil, ErrStreamClosed
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.latest == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return s.latest, nil
}

// Close kills ffmpeg and waits for the reader to exit.
func (s *webcamStream) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		<-s.done
		s.cmd.Wait()
	})
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
