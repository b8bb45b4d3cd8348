package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// PushRateLimiter throttles operator screen pushes per client IP with a
// token bucket.
type PushRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
}

// NewPushRateLimiter allows perMinute pushes sustained with the given
// burst per client IP. Non-positive values are clamped to 1.
func NewPushRateLimiter(perMinute, burst int) *PushRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	limiter := &PushRateLimiter{
		rate:  rate.Every(time.Minute / time.Duration(perMinute)),
		burst: burst,
	}
	go limiter.cleanupRoutine()
	return limiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (p *PushRateLimiter) get(ip string) *rate.Limiter {
	now := time.Now()
	if val, ok := p.limiters.Load(ip); ok {
		cl := val.(*clientLimiter)
		cl.lastSeen = now
		return cl.limiter
	}
	cl := &clientLimiter{limiter: rate.NewLimiter(p.rate, p.burst), lastSeen: now}
	p.limiters.Store(ip, cl)
	return cl.limiter
}

// RateLimit rejects requests exceeding the per-IP budget with 429.
func (p *PushRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !p.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// cleanupRoutine drops limiters for IPs idle longer than an hour.
func (p *PushRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		p.limiters.Range(func(key, val interface{}) bool {
			if val.(*clientLimiter).lastSeen.Before(cutoff) {
				p.limiters.Delete(key)
			}
			return true
		})
	}
}
