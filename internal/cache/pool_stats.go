package cache

import (
	"sync"
	"time"

	"github.com/coupondrop/coupon-distribution-service/internal/models"
)

// PoolStats caches the coupon pool counts so exhausted-pool responses do
// not recount on every request. Process-scoped; empty after restart.
type PoolStats struct {
	mu        sync.RWMutex
	counts    models.PoolCounts
	fetchedAt time.Time
	ttl       time.Duration
}

func NewPoolStats(ttl time.Duration) *PoolStats {
	return &PoolStats{ttl: ttl}
}

func (p *PoolStats) Get() (models.PoolCounts, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.fetchedAt.IsZero() || time.Since(p.fetchedAt) > p.ttl {
		return models.PoolCounts{}, false
	}
	return p.counts, true
}

func (p *PoolStats) Set(counts models.PoolCounts) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts = counts
	p.fetchedAt = time.Now()
}

// Invalidate drops the snapshot; every coupon write and successful claim
// calls this so reported counts track the store.
func (p *PoolStats) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchedAt = time.Time{}
}
