package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
)

// Detection is one result from the remote detector.
type Detection struct {
	Label      string    `json:"label"`
	Confidence float32   `json:"confidence"`
	Box        []float32 `json:"box"`
}

// Remote sends each frame as a JPEG binary message to a detection server
// and reads back a JSON array of detections. One request is in flight at a
// time; the connection is dialed lazily and redialed after any error.
type Remote struct {
	url           string
	minConfidence float32

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewRemote targets ws://host/ws.
func NewRemote(host string, minConfidence float64) *Remote {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	return &Remote{url: u.String(), minConfidence: float32(minConfidence)}
}

func (r *Remote) Evaluate(ctx context.Context, frame image.Image, challenge capture.Challenge) (bool, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, nil); err != nil {
		return false, fmt.Errorf("encode frame: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	dets, err := r.roundTrip(ctx, buf.Bytes())
	if err != nil {
		r.dropLocked()
		return false, err
	}
	gesture := challenge.Gesture
	if gesture == "" {
		gesture = challenge.Label
	}
	return Matches(dets, gesture, r.minConfidence), nil
}

func (r *Remote) roundTrip(ctx context.Context, payload []byte) ([]Detection, error) {
	if r.conn == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, nil)
		if err != nil {
			return nil, fmt.Errorf("dial detector %s: %w", r.url, err)
		}
		r.conn = conn
	}
	conn := r.conn

	// A zero deadline clears any earlier one.
	deadline, _ := ctx.Deadline()
	conn.SetWriteDeadline(deadline)
	conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read detections: %w", err)
	}
	var dets []Detection
	if err := json.Unmarshal(msg, &dets); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return dets, nil
}

func (r *Remote) dropLocked() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// Close drops the connection. The next Evaluate redials.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked()
	return nil
}

// Matches reports whether any detection names gesture with at least
// minConfidence.
func Matches(dets []Detection, gesture string, minConfidence float32) bool {
	for _, d := range dets {
		if strings.EqualFold(d.Label, gesture) && d.Confidence >= minConfidence {
			return true
		}
	}
	return false
}
