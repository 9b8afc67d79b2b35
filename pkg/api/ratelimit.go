package api

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

// rateLimitConfig configures per-client request limiting.
type rateLimitConfig struct {
	requestsPerSecond float64
	burstSize         int
	cleanupInterval   time.Duration
	clientExpiration  time.Duration
	maxClients        int
}

func defaultRateLimitConfig() rateLimitConfig {
	return rateLimitConfig{
		requestsPerSecond: 100,
		burstSize:         200,
		cleanupInterval:   5 * time.Minute,
		clientExpiration:  10 * time.Minute,
		maxClients:        100000,
	}
}

// tokenBucket holds one client's refillable budget.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// rateLimiter tracks a token bucket per client address (or per operator
// once authenticated). nil means limiting is off.
type rateLimiter struct {
	cfg     rateLimitConfig
	logger  logging.Logger
	clients map[string]*tokenBucket
	mu      sync.RWMutex
	stopCh  chan struct{}
}

// newRateLimiterFromEnv builds a limiter when FLUPS_RATE_LIMIT is set.
// FLUPS_RATE_LIMIT_RPS and FLUPS_RATE_LIMIT_BURST tune it.
func newRateLimiterFromEnv(logger logging.Logger) *rateLimiter {
	enabled := os.Getenv("FLUPS_RATE_LIMIT")
	if enabled != "true" && enabled != "1" {
		return nil
	}

	cfg := defaultRateLimitConfig()
	if rps := os.Getenv("FLUPS_RATE_LIMIT_RPS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil && v > 0 {
			cfg.requestsPerSecond = v
		}
	}
	if burst := os.Getenv("FLUPS_RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil && v > 0 {
			cfg.burstSize = v
		}
	}

	rl := &rateLimiter{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]*tokenBucket),
		stopCh:  make(chan struct{}),
	}
	go rl.cleanupLoop()

	logger.Info("rate limiting enabled",
		logging.Float64("rps", cfg.requestsPerSecond),
		logging.Int("burst", cfg.burstSize),
	)
	return rl
}

// allow spends one token for the client, refilling by elapsed time.
func (rl *rateLimiter) allow(clientID string) bool {
	bucket := rl.getBucket(clientID)
	if bucket == nil {
		// Tracking table full: fail closed for new clients
		return false
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	bucket.tokens += now.Sub(bucket.lastRefill).Seconds() * rl.cfg.requestsPerSecond
	if bucket.tokens > float64(rl.cfg.burstSize) {
		bucket.tokens = float64(rl.cfg.burstSize)
	}
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

func (rl *rateLimiter) getBucket(clientID string) *tokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientID]
	count := len(rl.clients)
	rl.mu.RUnlock()
	if exists {
		return bucket
	}
	if rl.cfg.maxClients > 0 && count >= rl.cfg.maxClients {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if bucket, exists = rl.clients[clientID]; exists {
		return bucket
	}
	if rl.cfg.maxClients > 0 && len(rl.clients) >= rl.cfg.maxClients {
		return nil
	}
	bucket = &tokenBucket{
		tokens:     float64(rl.cfg.burstSize),
		lastRefill: time.Now(),
	}
	rl.clients[clientID] = bucket
	return bucket
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.cleanupInterval)
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

// cleanup drops buckets idle past the expiration window.
func (rl *rateLimiter) cleanup() {
	now := time.Now()
	expired := make([]string, 0)

	rl.mu.RLock()
	for clientID, bucket := range rl.clients {
		bucket.mu.Lock()
		idle := now.Sub(bucket.lastRefill) > rl.cfg.clientExpiration
		bucket.mu.Unlock()
		if idle {
			expired = append(expired, clientID)
		}
	}
	rl.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	rl.mu.Lock()
	for _, clientID := range expired {
		if bucket, exists := rl.clients[clientID]; exists {
			bucket.mu.Lock()
			if now.Sub(bucket.lastRefill) > rl.cfg.clientExpiration {
				delete(rl.clients, clientID)
			}
			bucket.mu.Unlock()
		}
	}
	rl.mu.Unlock()

	rl.logger.Debug("rate limiter cleanup", logging.Count(len(expired)))
}

func (rl *rateLimiter) stop() {
	close(rl.stopCh)
}

// rateLimitMiddleware applies the limiter per client; authenticated
// callers are tracked by operator so a shared proxy address cannot
// starve them.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := clientAddr(r)
		if p := principalFrom(r.Context()); p.Authenticated {
			clientID = "operator:" + p.OperatorID
		}

		if !s.limiter.allow(clientID) {
			s.logger.Warn("rate limit exceeded",
				logging.String("client", clientID),
				logging.Path(r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
