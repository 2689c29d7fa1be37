package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/taskhub/notifier/internal/queue"
)

// KindLimiters holds one token bucket limiter per delivery kind.
// Each limiter enforces a steady-state rate (e.g. 100 tokens/sec).
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum, so a notification storm on
// one path cannot monopolise the socket write side.
type KindLimiters struct {
	limiters map[queue.Kind]*rate.Limiter
}

// New creates a KindLimiters with ratePerSec tokens per second per kind.
func New(ratePerSec int) *KindLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec // burst == rate: prevents any "saved up" burst above the limit

	return &KindLimiters{
		limiters: map[queue.Kind]*rate.Limiter{
			queue.KindUser:      rate.NewLimiter(r, burst),
			queue.KindTaskRoom:  rate.NewLimiter(r, burst),
			queue.KindBroadcast: rate.NewLimiter(r, burst),
		},
	}
}

// Wait blocks until the kind's limiter grants a token. Unknown kinds pass
// through unlimited; the worker rejects them afterwards.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (kl *KindLimiters) Wait(ctx context.Context, k queue.Kind) error {
	l, ok := kl.limiters[k]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
