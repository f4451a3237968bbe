package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"
)

// Timings holds the delays between transitions.
type Timings struct {
	Detect        time.Duration // detecting -> outcome
	Advance       time.Duration // success -> next challenge
	FailureReset  time.Duration // failure -> idle
	CountdownTick time.Duration // between countdown values and before the shot
}

// DefaultTimings derives the standard delays from a base unit
// (2, 1, 1.5 and 1 units).
func DefaultTimings(unit time.Duration) Timings {
	return Timings{
		Detect:        2 * unit,
		Advance:       unit,
		FailureReset:  unit * 3 / 2,
		CountdownTick: unit,
	}
}

const (
	DefaultCountdownFrom = 3
	DefaultJPEGQuality   = 90
)

// Options configure a session. Challenges, Device and Classifier are shared
// read-only between sessions created from the same Options.
type Options struct {
	Challenges    []Challenge
	Device        MediaDevice
	Classifier    PoseClassifier
	Sink          Sink
	Timings       Timings
	Constraints   Constraints
	CountdownFrom int
	JPEGQuality   int
	Logger        *slog.Logger
	// IdleTimeout is how long a Registry keeps a session nobody watches or
	// touches. Zero keeps sessions until they are closed.
	IdleTimeout time.Duration
}

func (o Options) withDefaults() (Options, error) {
	if len(o.Challenges) == 0 {
		return o, errors.New("capture: at least one challenge is required")
	}
	if o.Device == nil {
		return o, errors.New("capture: media device is required")
	}
	if o.IdleTimeout < 0 {
		return o, errors.New("capture: idle timeout must not be negative")
	}
	o.Challenges = normalizeChallenges(o.Challenges)
	if o.Classifier == nil {
		o.Classifier = NewSimulated(DefaultSuccessProbability, nil)
	}
	if o.Timings == (Timings{}) {
		o.Timings = DefaultTimings(time.Second)
	}
	if o.Constraints == (Constraints{}) {
		o.Constraints = DefaultConstraints()
	}
	if o.CountdownFrom <= 0 {
		o.CountdownFrom = DefaultCountdownFrom
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o, nil
}

// Controls tells the UI which actions are currently available.
type Controls struct {
	Detect bool `json:"detect"`
	Retry  bool `json:"retry"`
	Retake bool `json:"retake"`
	Submit bool `json:"submit"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID           string      `json:"id"`
	State        State       `json:"state"`
	Challenges   []Challenge `json:"challenges"`
	CurrentIndex int         `json:"current_index"`
	Countdown    *int        `json:"countdown,omitempty"`
	Error        string      `json:"error,omitempty"`
	HasFrame     bool        `json:"has_frame"`
	StreamActive bool        `json:"stream_active"`
	Controls     Controls    `json:"controls"`
}

// Session is one run of the capture dialog: acquire the camera, walk the
// challenges, take the still, then submit or close. It is safe for
// concurrent use.
type Session struct {
	id     string
	opts   Options
	log    *slog.Logger
	events *broadcaster

	mu        sync.Mutex
	state     State
	index     int
	countdown int // 0 when no countdown is running
	frame     *Frame
	lastErr   string
	stream    Stream
	// lastActive is the time of the last transition or client access.
	lastActive time.Time
	// ctx scopes every timer of the current lifecycle; cancel ends it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession returns a closed session. Call Open to acquire the camera.
func NewSession(id string, opts Options) (*Session, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Session{
		id:     id,
		opts:   opts,
		log:    opts.Logger.With("session_id", id),
		events: newBroadcaster(),
		state:  StateClosed,

		lastActive: time.Now(),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Open acquires a camera stream and enters StateIdle. When the device fails
// the session enters StateError and the error wraps ErrDeviceUnavailable.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed && s.state != StateError {
		return fmt.Errorf("open in state %s: %w", s.state, ErrInvalidState)
	}
	return s.acquireLocked(ctx)
}

// Retry re-runs Open after a device error.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateError {
		return fmt.Errorf("retry in state %s: %w", s.state, ErrInvalidState)
	}
	s.log.Info("retrying camera access")
	return s.acquireLocked(ctx)
}

// StartDetection evaluates the current challenge after the detect delay.
// It is a no-op while a detection or countdown is already running.
func (s *Session) StartDetection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.busy() {
		return nil
	}
	if s.state != StateIdle {
		return fmt.Errorf("start detection in state %s: %w", s.state, ErrInvalidState)
	}
	s.state = StateDetecting
	s.publishLocked()
	go s.detect(s.ctx, s.index, s.stream)
	return nil
}

// Retake discards the captured still and restarts from the first challenge
// with a fresh stream.
func (s *Session) Retake(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCaptured {
		return fmt.Errorf("retake in state %s: %w", s.state, ErrInvalidState)
	}
	s.log.Info("retaking photo")
	return s.acquireLocked(ctx)
}

// Submit hands the captured still to the sink and closes the session. The
// session reads as StateSubmitting while the sink runs. On sink failure it
// returns to StateCaptured so the applicant can submit again.
func (s *Session) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateCaptured || s.frame == nil {
		state := s.state
		s.mu.Unlock()
		return "", fmt.Errorf("submit in state %s: %w", state, ErrInvalidState)
	}
	if s.opts.Sink == nil {
		s.mu.Unlock()
		return "", ErrNoSink
	}
	frame := *s.frame
	life := s.ctx
	s.state = StateSubmitting
	s.publishLocked()
	s.mu.Unlock()

	locator, err := s.opts.Sink.Accept(ctx, frame)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Closed (or reopened) while the sink ran: leave the new lifecycle alone.
	if life.Err() != nil || s.state != StateSubmitting {
		if err != nil {
			return "", fmt.Errorf("submit photo: %w", err)
		}
		return locator, nil
	}
	if err != nil {
		s.log.Warn("submitting photo failed", "error", err)
		s.state = StateCaptured
		s.publishLocked()
		return "", fmt.Errorf("submit photo: %w", err)
	}
	s.log.Info("photo submitted", "locator", locator)
	s.closeLocked()
	return locator, nil
}

// Close ends the session from any state. It cancels pending timers, releases
// the stream and resets every field. Calling it again is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Frame returns the captured still, if any.
func (s *Session) Frame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return Frame{}, false
	}
	f := *s.frame
	f.Data = bytes.Clone(s.frame.Data)
	return f, true
}

// Subscribe returns a channel of snapshots published on every transition
// and a function that ends the subscription.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	return s.events.subscribe()
}

// Subscribers returns the number of live subscriptions.
func (s *Session) Subscribers() int {
	return s.events.count()
}

// Touch records client activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive returns the time of the last transition or Touch.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) acquireLocked(ctx context.Context) error {
	s.resetLocked()
	s.ctx, s.cancel = context.WithCancel(context.Background())

	stream, err := s.opts.Device.Acquire(ctx, s.opts.Constraints)
	if err != nil {
		s.state = StateError
		s.lastErr = DeviceErrorMessage
		s.log.Warn("camera access failed", "error", err)
		s.publishLocked()
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	s.stream = stream
	s.state = StateIdle
	s.log.Debug("camera acquired", "width", s.opts.Constraints.Width, "height", s.opts.Constraints.Height)
	s.publishLocked()
	return nil
}

func (s *Session) closeLocked() {
	if s.state == StateClosed && s.stream == nil && s.cancel == nil {
		return
	}
	s.resetLocked()
	s.state = StateClosed
	s.log.Debug("session closed")
	s.publishLocked()
}

// resetLocked ends the current lifecycle and clears all transient fields.
func (s *Session) resetLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.releaseLocked()
	s.index = 0
	s.countdown = 0
	s.frame = nil
	s.lastErr = ""
}

func (s *Session) releaseLocked() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.log.Warn("releasing camera failed", "error", err)
	}
	s.stream = nil
}

func (s *Session) publishLocked() {
	s.lastActive = time.Now()
	s.events.publish(s.snapshotLocked())
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		State:        s.state,
		Challenges:   append([]Challenge(nil), s.opts.Challenges...),
		CurrentIndex: s.index,
		Error:        s.lastErr,
		HasFrame:     s.frame != nil,
		StreamActive: s.stream != nil,
		Controls: Controls{
			Detect: s.state == StateIdle,
			Retry:  s.state == StateError,
			Retake: s.state == StateCaptured,
			Submit: s.state == StateCaptured,
		},
	}
	if s.countdown > 0 {
		n := s.countdown
		snap.Countdown = &n
	}
	return snap
}

// detect runs one detection chain. ctx belongs to the lifecycle that
// started it; once it is cancelled the chain stops without touching state.
func (s *Session) detect(ctx context.Context, index int, stream Stream) {
	t := s.opts.Timings
	if !s.wait(ctx, t.Detect) {
		return
	}

	challenge := s.opts.Challenges[index]
	img, err := stream.Frame(ctx)
	if err != nil {
		s.deviceFailure(ctx, err)
		return
	}
	ok, err := s.opts.Classifier.Evaluate(ctx, img, challenge)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// A classifier that cannot decide counts as a rejected pose.
		s.log.Warn("pose evaluation failed", "challenge", challenge.Label, "error", err)
		ok = false
	}
	s.log.Debug("pose evaluated", "challenge", challenge.Label, "accepted", ok)

	last := index == len(s.opts.Challenges)-1
	switch {
	case !ok:
		if s.apply(ctx, func() { s.state = StateFailure }) {
			s.step(ctx, t.FailureReset, func() { s.state = StateIdle })
		}
	case !last:
		if s.apply(ctx, func() { s.state = StateSuccess }) {
			s.step(ctx, t.Advance, func() {
				s.index++
				s.state = StateIdle
			})
		}
	default:
		if s.apply(ctx, func() {
			s.state = StateCountdown
			s.countdown = s.opts.CountdownFrom
		}) {
			s.runCountdown(ctx, stream)
		}
	}
}

func (s *Session) runCountdown(ctx context.Context, stream Stream) {
	tick := s.opts.Timings.CountdownTick
	for n := s.opts.CountdownFrom - 1; n > 0; n-- {
		if !s.step(ctx, tick, func() { s.countdown = n }) {
			return
		}
	}
	if !s.wait(ctx, tick) {
		return
	}
	s.captureFrame(ctx, stream)
}

// captureFrame encodes the current frame at the stream's native size,
// stores it and releases the stream.
func (s *Session) captureFrame(ctx context.Context, stream Stream) {
	img, err := stream.Frame(ctx)
	if err != nil {
		s.deviceFailure(ctx, err)
		return
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.opts.JPEGQuality}); err != nil {
		s.deviceFailure(ctx, fmt.Errorf("encode frame: %w", err))
		return
	}
	b := img.Bounds()
	s.apply(ctx, func() {
		if s.frame != nil {
			return
		}
		s.frame = &Frame{
			SessionID:  s.id,
			Data:       buf.Bytes(),
			MimeType:   MimeJPEG,
			Width:      b.Dx(),
			Height:     b.Dy(),
			CapturedAt: time.Now(),
		}
		s.countdown = 0
		s.releaseLocked()
		s.state = StateCaptured
		s.log.Info("photo captured", "bytes", buf.Len(), "width", b.Dx(), "height", b.Dy())
	})
}

func (s *Session) deviceFailure(ctx context.Context, err error) {
	s.apply(ctx, func() {
		s.log.Warn("camera stream failed", "error", err)
		s.releaseLocked()
		s.countdown = 0
		s.lastErr = DeviceErrorMessage
		s.state = StateError
	})
}

// wait sleeps for d unless ctx ends first.
func (s *Session) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// apply runs fn under the lock and publishes the result, unless the
// lifecycle that owns ctx has ended.
func (s *Session) apply(ctx context.Context, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	fn()
	s.publishLocked()
	return true
}

func (s *Session) step(ctx context.Context, d time.Duration, fn func()) bool {
	return s.wait(ctx, d) && s.apply(ctx, fn)
}
