package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ToySwap/TS-Backend/internal/utils"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per logged-in user. Two buckets exist:
// a general one for the whole API and a stricter one for listing creation,
// since new listings fan out into image signing and geocoding work.
type RateLimiter struct {
	generalRate  rate.Limit
	generalBurst int
	createRate   rate.Limit
	createBurst  int

	mu       sync.Mutex
	general  map[string]*userLimiter
	creating map[string]*userLimiter

	stopCh chan struct{}
}

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

const limiterTTL = 10 * time.Minute

// NewRateLimiter starts the limiter and its background cleanup loop.
// Defaults: 120 req/min general, 10 req/min for listing creation.
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		generalRate:  rate.Limit(120.0 / 60.0),
		generalBurst: 120,
		createRate:   rate.Limit(10.0 / 60.0),
		createBurst:  10,
		general:      make(map[string]*userLimiter),
		creating:     make(map[string]*userLimiter),
		stopCh:       make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// General returns the API-wide per-user middleware. Must run after the
// session middleware (it needs the user ID from context).
func (rl *RateLimiter) General() func(http.Handler) http.Handler {
	return rl.middleware(rl.general, rl.generalRate, rl.generalBurst)
}

// ListingCreate returns the stricter middleware for listing creation.
func (rl *RateLimiter) ListingCreate() func(http.Handler) http.Handler {
	return rl.middleware(rl.creating, rl.createRate, rl.createBurst)
}

func (rl *RateLimiter) middleware(buckets map[string]*userLimiter, limit rate.Limit, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: missing user ID in context", http.StatusUnauthorized)
				return
			}

			if !rl.take(buckets, userID, limit, burst) {
				// Retry-After: seconds until one token refills.
				retry := int(math.Ceil(1.0 / float64(limit)))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) take(buckets map[string]*userLimiter, userID string, limit rate.Limit, burst int) bool {
	rl.mu.Lock()
	ul, exists := buckets[userID]
	if !exists {
		ul = &userLimiter{limiter: rate.NewLimiter(limit, burst)}
		buckets[userID] = ul
	}
	ul.lastAccess = time.Now()
	rl.mu.Unlock()

	return ul.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := time.Now()
	rl.mu.Lock()
	for _, buckets := range []map[string]*userLimiter{rl.general, rl.creating} {
		for userID, ul := range buckets {
			if now.Sub(ul.lastAccess) > limiterTTL {
				delete(buckets, userID)
			}
		}
	}
	rl.mu.Unlock()
}
