package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// Humanized interaction timing. Sites actively block uniform-timing
// automation, so randomized offsets are a functional requirement here.
const (
	defaultTypingDelayMin = 50 * time.Millisecond
	defaultTypingDelayMax = 150 * time.Millisecond
)

// clickPoint picks a randomized click position within the central 30-70%
// region of the element's bounding box.
func clickPoint(box *interfaces.Box) (float64, float64) {
	x := box.X + box.Width*(0.3+rand.Float64()*0.4)
	y := box.Y + box.Height*(0.3+rand.Float64()*0.4)
	return x, y
}

// typingDelay returns a randomized inter-keystroke delay, honoring the
// strategy's anti-detection bounds when configured.
func typingDelay(cfg models.AntiDetectionConfig) time.Duration {
	min, max := defaultTypingDelayMin, defaultTypingDelayMax
	if cfg.TypingDelayMin > 0 {
		min = cfg.TypingDelayMin
	}
	if cfg.TypingDelayMax > min {
		max = cfg.TypingDelayMax
	}
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// boundedWait returns a random duration in [min, max]
func boundedWait(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// sleepCtx sleeps for d or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
