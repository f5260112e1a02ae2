package auth

import (
	"context"
	"time"
)

// Clock is the time source used for challenge expiry and credential timestamps.
type Clock interface {
	Now() time.Time
}

// SleepFunc blocks for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when woken by the context.
type SleepFunc func(ctx context.Context, d time.Duration) error

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
