package admission

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

// RateLimiter keeps a sliding-window log of admitted requests per user and
// tier. No interval of length WindowMs ever holds more than MaxRequests
// admissions. A log expires one window after its last use.
type RateLimiter struct {
	mu   sync.Mutex
	logs *ttlcache.Cache[string, *windowLog]
	now  func() time.Time
}

type windowLog struct {
	mu   sync.Mutex
	hits []time.Time
}

func NewRateLimiter() *RateLimiter {
	logs := ttlcache.New[string, *windowLog]()
	go logs.Start()

	return &RateLimiter{logs: logs, now: time.Now}
}

func (r *RateLimiter) log(key string, window time.Duration) *windowLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item := r.logs.Get(key); item != nil {
		return item.Value()
	}
	l := &windowLog{}
	r.logs.Set(key, l, window)
	return l
}

// Allow records a request for the user. When the window is full it returns
// false and how long until the oldest admission leaves the window.
func (r *RateLimiter) Allow(userID string, cfg models.TierConfig) (bool, time.Duration) {
	limit := cfg.RateLimit
	if limit.MaxRequests <= 0 || limit.WindowMs <= 0 {
		return true, 0
	}
	window := limit.Window()

	l := r.log(userID+"|"+string(cfg.Tier), window)
	now := r.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-window)
	kept := l.hits[:0]
	for _, hit := range l.hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	l.hits = kept

	if len(l.hits) >= limit.MaxRequests {
		return false, l.hits[0].Add(window).Sub(now)
	}
	l.hits = append(l.hits, now)
	return true, 0
}

func (r *RateLimiter) Len() int {
	return r.logs.Len()
}

func (r *RateLimiter) Close() {
	r.logs.Stop()
}
