// Package worker holds the long-running generator loops of the
// simulation: users, suppliers/products, needs, offers and providers.
// Every loop is a fixed sleep interval plus uniform jitter; both come
// from configuration so scheduling stays an explicit policy.
package worker

import (
	"context"
	"math/rand/v2"
	"time"
)

// wait sleeps for interval plus a uniform random jitter and reports
// whether the loop should keep running.
func wait(ctx context.Context, interval, jitter time.Duration) bool {
	d := interval
	if jitter > 0 {
		d += rand.N(jitter)
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
