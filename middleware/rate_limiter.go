package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type rlClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits each client IP to a request budget per window. Idle
// clients are evicted by a background janitor; Close stops it.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rlClient
	limit   rate.Limit
	burst   int
	done    chan struct{}
}

// NewRateLimiter creates a limiter allowing requests per window for each
// client IP. Config validation guarantees positive values; a zero budget
// here would divide by zero, so it is clamped to one.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		clients: make(map[string]*rlClient),
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
		done:    make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Handler returns the Fiber middleware enforcing the limit.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()

		rl.mu.Lock()
		cl, ok := rl.clients[ip]
		if !ok {
			cl = &rlClient{limiter: rate.NewLimiter(rl.limit, rl.burst)}
			rl.clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		rl.mu.Unlock()

		if !cl.limiter.Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "rate limit exceeded",
			})
		}
		return c.Next()
	}
}

// Close stops the janitor.
func (rl *RateLimiter) Close() {
	close(rl.done)
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, cl := range rl.clients {
				if time.Since(cl.lastSeen) > 10*time.Minute {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}
