package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool keeps a token-bucket limiter per caller key. Keys are the
// presented API key when there is one, otherwise the remote IP.
type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg SecConfig
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	return &limiterPool{m: make(map[string]*rate.Limiter), cfg: cfg}
}

func (lp *limiterPool) get(key string) *rate.Limiter {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if l, ok := lp.m[key]; ok {
		return l
	}
	rps := lp.cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := lp.cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	lp.m[key] = l
	return l
}

// Allow reports whether the caller identified by key may proceed.
func (lp *limiterPool) Allow(key string) bool {
	return lp.get(key).Allow()
}
