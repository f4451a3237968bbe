package classifier

import (
	"context"
	"image"
	"time"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
)

type timeoutClassifier struct {
	next    capture.PoseClassifier
	timeout time.Duration
}

// WithTimeout bounds every Evaluate call of c by d. A non-positive d
// returns c unchanged.
func WithTimeout(c capture.PoseClassifier, d time.Duration) capture.PoseClassifier {
	if d <= 0 {
		return c
	}
	return &timeoutClassifier{next: c, timeout: d}
}

func (t *timeoutClassifier) Evaluate(ctx context.Context, frame image.Image, challenge capture.Challenge) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Evaluate(ctx, frame, challenge)
}
