package http

import (
	"net/http"
	"strconv"

	"filechain/internal/domain"

	"github.com/gin-gonic/gin"
)

// limitWrites returns middleware that counts requests to routeID per client
// address. It is a no-op when no limiter is configured.
func (s *Server) limitWrites(routeID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
			c.Next()
			return
		}
		key := "endpoint:" + routeID + ":client:" + c.ClientIP()
		decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
		switch {
		case err != nil && s.rateLimitFailClosed:
			s.logger.Error("rate limiter unavailable, refusing request", "route", routeID, "error", err)
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			c.Abort()
		case err != nil:
			s.logger.Warn("rate limiter unavailable, admitting request", "route", routeID, "error", err)
			c.Next()
		case !decision.Allowed:
			for name, value := range s.limitHeaders(decision) {
				c.Header(name, value)
			}
			if s.metrics != nil {
				s.metrics.RateLimited(routeID)
			}
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			c.Abort()
		default:
			for name, value := range s.limitHeaders(decision) {
				c.Header(name, value)
			}
			c.Next()
		}
	}
}

// limitHeaders renders the RateLimit-* fields of a decision. Retry-After is
// only present on refusals.
func (s *Server) limitHeaders(d domain.RateLimitDecision) map[string]string {
	h := make(map[string]string, 4)
	if d.Limit > 0 {
		h["RateLimit-Limit"] = strconv.Itoa(d.Limit)
	}
	if d.Remaining >= 0 {
		h["RateLimit-Remaining"] = strconv.Itoa(d.Remaining)
	}
	if d.ResetAt.IsZero() {
		return h
	}
	h["RateLimit-Reset"] = strconv.FormatInt(d.ResetAt.Unix(), 10)
	if !d.Allowed {
		h["Retry-After"] = strconv.FormatInt(d.RetryAfter(s.now()), 10)
	}
	return h
}
