// Package pagination drives a fetcher session forward through infinite
// scroll or click-to-load listings.
package pagination

import (
	"context"
	"time"
)

// Driver is the common shape of both paginators
type Driver interface {
	HasMore() bool
	// Advance moves to the next batch of results. False means the caller should stop.
	Advance(ctx context.Context) bool
}

// StopFunc reports whether a stop was requested by the operator
type StopFunc func() bool

func stopped(ctx context.Context, stop StopFunc) bool {
	if ctx.Err() != nil {
		return true
	}
	return stop != nil && stop()
}

// sleep waits d or until ctx is done; it reports whether the full delay elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
