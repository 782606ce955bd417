// Package clock provides a context-injectable time source so that
// insertion timestamps can be pinned in tests.
package clock

import (
	"context"
	"time"
)

type ctxKey struct{}

// NowFunc returns the current time
type NowFunc func() time.Time

// With returns a context whose Now calls f
func With(ctx context.Context, f NowFunc) context.Context {
	return context.WithValue(ctx, ctxKey{}, f)
}

// Now returns the time from the context's clock, or time.Now
func Now(ctx context.Context) time.Time {
	if f, ok := ctx.Value(ctxKey{}).(NowFunc); ok && f != nil {
		return f()
	}
	return time.Now()
}

// Fixed returns a NowFunc that always reports t
func Fixed(t time.Time) NowFunc {
	return func() time.Time { return t }
}

// Ticking returns a NowFunc that starts at t and advances by step on every call
func Ticking(t time.Time, step time.Duration) NowFunc {
	cur := t
	return func() time.Time {
		now := cur
		cur = cur.Add(step)
		return now
	}
}
