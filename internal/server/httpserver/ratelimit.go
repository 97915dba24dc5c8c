package httpserver

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/quotaledger/pkg/cmap"
)

// sweepEvery is the number of Allow calls between idle sweeps.
const sweepEvery = 512

// ipLimiter applies one token bucket per client address and forgets
// addresses that stay idle longer than idleTTL.
type ipLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	byIP    *cmap.Map[*limiterEntry]
	hits    atomic.Uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// newIPLimiter returns nil when rps or burst is not positive, which
// disables limiting.
func newIPLimiter(rps float64, burst int, idleTTL time.Duration) *ipLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &ipLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byIP:    cmap.New[*limiterEntry](),
	}
}

// Allow reports whether ip may make one more request at now.
func (l *ipLimiter) Allow(ip string, now time.Time) bool {
	if l == nil || ip == "" {
		return true
	}
	e, _ := l.byIP.GetOrCreate(ip, func() *limiterEntry {
		return &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
	})
	e.lastSeen.Store(now.UnixNano())
	allowed := e.limiter.AllowN(now, 1)

	if l.hits.Add(1)%sweepEvery == 0 {
		cutoff := now.Add(-l.idleTTL).UnixNano()
		l.byIP.DeleteFunc(func(_ string, e *limiterEntry) bool {
			return e.lastSeen.Load() < cutoff
		})
	}
	return allowed
}

// tracked returns the number of addresses currently held.
func (l *ipLimiter) tracked() int {
	if l == nil {
		return 0
	}
	return l.byIP.Count()
}
