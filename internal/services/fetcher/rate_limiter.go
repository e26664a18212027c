package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ternarybob/fury/internal/common"
)

// domainLimiter spaces requests to one host. Every domain gets its own
// token bucket so a slow host never starves the rest of the import.
type domainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	delay    time.Duration
}

func newDomainLimiter(delay time.Duration) *domainLimiter {
	return &domainLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    delay,
	}
}

// Wait blocks until the host's rate limit allows another request, or the
// context is cancelled.
func (d *domainLimiter) Wait(ctx context.Context, rawURL string) error {
	if d.delay <= 0 {
		return nil
	}

	host := common.URLHost(rawURL)
	if host == "" {
		return nil
	}

	d.mu.Lock()
	limiter, ok := d.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(d.delay), 1)
		d.limiters[host] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}
