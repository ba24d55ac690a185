package transport

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"animesanta/internal/config"
	"animesanta/internal/santa"
)

// Policy bounds how a failed call is retried.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

func PolicyFromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		Attempts:     cfg.Attempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Jitter:       true,
	}
}

// Delay returns the wait before attempt (1-based) is retried.
func (p Policy) Delay(attempt int, rng *rand.Rand) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

// Retrying wraps a Transport with Policy. Permanent failures and context
// cancellation are returned at once.
type Retrying struct {
	Next   Transport
	Policy Policy
	Logger *zap.Logger
	// Sleep waits d or until ctx ends. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Transport = (*Retrying)(nil)

func WithRetry(next Transport, p Policy, logger *zap.Logger) *Retrying {
	return &Retrying{
		Next:   next,
		Policy: p,
		Logger: logger,
		Sleep:  sleepCtx,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Retrying) do(ctx context.Context, op string, fn func() error) error {
	attempts := r.Policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !retryable(ctx, err) {
			return err
		}
		if attempt == attempts {
			break
		}
		r.mu.Lock()
		d := r.Policy.Delay(attempt, r.rng)
		r.mu.Unlock()
		if r.Logger != nil {
			r.Logger.Debug("transport call failed; retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", d),
				zap.Error(err),
			)
		}
		sleep := r.Sleep
		if sleep == nil {
			sleep = sleepCtx
		}
		if serr := sleep(ctx, d); serr != nil {
			return err
		}
	}
	return err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, ErrPermanent)
}

func (r *Retrying) Send(ctx context.Context, chatID int64, msg Message) (santa.MessageRef, error) {
	var ref santa.MessageRef
	err := r.do(ctx, "send", func() error {
		var err error
		ref, err = r.Next.Send(ctx, chatID, msg)
		return err
	})
	return ref, err
}

func (r *Retrying) Forward(ctx context.Context, from santa.MessageRef, to int64) (santa.MessageRef, error) {
	var ref santa.MessageRef
	err := r.do(ctx, "forward", func() error {
		var err error
		ref, err = r.Next.Forward(ctx, from, to)
		return err
	})
	return ref, err
}

func (r *Retrying) Copy(ctx context.Context, from santa.MessageRef, to int64) (santa.MessageRef, error) {
	var ref santa.MessageRef
	err := r.do(ctx, "copy", func() error {
		var err error
		ref, err = r.Next.Copy(ctx, from, to)
		return err
	})
	return ref, err
}

func (r *Retrying) AnswerInteraction(ctx context.Context, id, text string) error {
	return r.do(ctx, "answer", func() error {
		return r.Next.AnswerInteraction(ctx, id, text)
	})
}
