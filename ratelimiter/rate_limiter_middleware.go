package ratelimiter

import (
	"net"
	"net/http"
	"strings"

	"github.com/funnelmon/funnelmon/helpers/handlers"

	"code.cloudfoundry.org/lager/v3"
)

// RateLimiterMiddleware throttles requests per calling client. The key
// is the first X-Forwarded-For hop when present, the peer address
// otherwise.
type RateLimiterMiddleware struct {
	logger      lager.Logger
	RateLimiter Limiter
}

func NewRateLimiterMiddleware(rateLimiter Limiter, logger lager.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		logger:      logger,
		RateLimiter: rateLimiter,
	}
}

func (mw *RateLimiterMiddleware) CheckRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if mw.RateLimiter.ExceedsLimit(key) {
			mw.logger.Info("error-exceed-rate-limit", lager.Data{"client": key})
			handlers.WriteErrorResponse(w, http.StatusTooManyRequests, "Request-Limit-Exceeded", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
