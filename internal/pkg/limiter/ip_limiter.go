/*
Package limiter provides rate limiting functionality based on IP addresses.

It utilizes the Token Bucket algorithm (rate.Limiter) to control the request frequency
for each client IP address and includes a cleanup goroutine to periodically remove
inactive limiters, preventing memory leaks.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/resp"

	"golang.org/x/time/rate"
)

const cleanupInterval = 3 * time.Minute

// IPRateLimiter implements a rate limiter keyed by client IP address.
type IPRateLimiter struct {
	// mu is used to protect concurrent access to the limits map.
	mu sync.RWMutex

	// limits stores the map from client IP address to the *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the rate (rate.Limit) of the limiter, defining the number of events allowed per second.
	r rate.Limit

	// b is the burst size (token bucket size) of the limiter.
	b int

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewIPRateLimiter creates and returns a new IPRateLimiter instance.
// It accepts rate r and burst capacity b, and starts a background goroutine to periodically clean up inactive limiters.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go i.cleanUpVisitors()

	return i
}

// GetLimiter retrieves the rate limiter corresponding to the given IP address.
// If the limiter for that IP address does not exist, a new one is created and stored in the map.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// Allow reports whether the request from r may proceed.
func (i *IPRateLimiter) Allow(r *http.Request) bool {
	return i.GetLimiter(ClientIP(r)).Allow()
}

// Stop terminates the background cleanup goroutine.
func (i *IPRateLimiter) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// Done is closed once the cleanup goroutine has exited after Stop.
func (i *IPRateLimiter) Done() <-chan struct{} {
	return i.done
}

// cleanUpVisitors periodically removes limiters whose token bucket is full again,
// which means the IP has been idle long enough to be forgotten.
func (i *IPRateLimiter) cleanUpVisitors() {
	defer close(i.done)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.mu.Lock()
			count := 0
			for ip, limiter := range i.limits {
				if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
					delete(i.limits, ip)
					count++
				}
			}
			remaining := len(i.limits)
			i.mu.Unlock()

			logx.Debug("Rate limiter cleanup finished.", "removed", count, "remaining", remaining)

		case <-i.stop:
			return
		}
	}
}

// Middleware returns an HTTP middleware that performs rate limiting checks on incoming requests.
// If a request exceeds the limit, it responds with a 429 Too Many Requests error.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of r.RemoteAddr, or "unknown_ip" when it is empty.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}
