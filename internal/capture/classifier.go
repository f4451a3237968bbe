package capture

import (
	"context"
	"image"
	"math/rand/v2"
	"sync"
)

// DefaultSuccessProbability is the chance that the simulated classifier
// accepts a pose.
const DefaultSuccessProbability = 0.7

// PoseClassifier decides whether frame shows the pose asked for by challenge.
// A false result with a nil error is a normal rejection, not a failure.
type PoseClassifier interface {
	Evaluate(ctx context.Context, frame image.Image, challenge Challenge) (bool, error)
}

// Simulated accepts poses at random with a fixed probability and ignores
// the frame. It stands in until a real recognizer is configured.
type Simulated struct {
	probability float64

	mu  sync.Mutex
	rng *rand.Rand // nil uses the global source
}

// NewSimulated returns a classifier with the given success probability.
// A nil rng draws from the global source.
func NewSimulated(probability float64, rng *rand.Rand) *Simulated {
	return &Simulated{probability: probability, rng: rng}
}

func (s *Simulated) Evaluate(ctx context.Context, _ image.Image, _ Challenge) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.draw() < s.probability, nil
}

func (s *Simulated) draw() float64 {
	if s.rng == nil {
		return rand.Float64()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
